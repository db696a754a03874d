package handler

import (
	"net/http"

	"copraledger/internal/middleware"
	"copraledger/internal/model"
	"copraledger/internal/service"
	"copraledger/pkg/pagination"
	"copraledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	loanService service.LoanService
}

func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

func (h *LoanHandler) RegisterRoutes(router *gin.RouterGroup) {
	loans := router.Group("/api/loans")
	{
		loans.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CreateLoan)
		loans.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.ListLoans)
		loans.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.GetLoan)
		loans.PUT("/:id/approve", middleware.RequireRole(model.RoleAdmin), h.ApproveLoan)
		loans.PUT("/:id/reject", middleware.RequireRole(model.RoleAdmin), h.RejectLoan)
		loans.PUT("/:id/cancel", middleware.RequireRole(model.RoleAdmin), h.CancelLoan)
		loans.POST("/:id/payments", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.RecordPayment)
		loans.GET("/:id/payments", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.ListPayments)
	}
}

// CreateLoan requests a new cash advance for a supplier
// @Summary      Create loan
// @Description  Validates the requested amount against the supplier's credit-based eligible amount before creating a PENDING loan
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLoanRequest  true  "Create Loan Payload"
// @Success      201      {object}  response.Response{data=service.LoanResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/loans [post]
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req service.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	loan, err := h.loanService.CreateLoan(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, loan))
}

// ListLoans returns a paginated loan list
// @Summary      List loans
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        supplier_id  query     string  false  "Filter by supplier"
// @Param        status       query     string  false  "Filter by status (PENDING, APPROVED, REJECTED, PAID, CANCELLED)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.LoanFilter{
		SupplierID: c.Query("supplier_id"),
		Status:     c.Query("status"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	loans, total, err := h.loanService.ListLoans(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"loans": loans,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetLoan returns a single loan with its remaining balance
// @Summary      Get loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=service.LoanResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/loans/{id} [get]
func (h *LoanHandler) GetLoan(c *gin.Context) {
	loan, err := h.loanService.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// ApproveLoan approves a pending loan and releases the funds
// @Summary      Approve loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=service.LoanResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/loans/{id}/approve [put]
func (h *LoanHandler) ApproveLoan(c *gin.Context) {
	loan, err := h.loanService.ApproveLoan(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// RejectLoan rejects a pending loan
// @Summary      Reject loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=service.LoanResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/loans/{id}/reject [put]
func (h *LoanHandler) RejectLoan(c *gin.Context) {
	loan, err := h.loanService.RejectLoan(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// CancelLoan cancels a pending loan or an approved loan with no payments
// @Summary      Cancel loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=service.LoanResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/loans/{id}/cancel [put]
func (h *LoanHandler) CancelLoan(c *gin.Context) {
	loan, err := h.loanService.CancelLoan(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// RecordPayment records a manual repayment against a loan
// @Summary      Record loan payment
// @Description  Applies a manual payment interest-first; auto-debit payments are created only by purchase transactions
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Loan ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Record Payment Payload"
// @Success      201      {object}  response.Response{data=service.LoanPaymentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/loans/{id}/payments [post]
func (h *LoanHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	payment, err := h.loanService.RecordManualPayment(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments returns every payment recorded against a loan
// @Summary      List loan payments
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Loan ID"
// @Success      200  {object}  response.Response{data=[]service.LoanPaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/loans/{id}/payments [get]
func (h *LoanHandler) ListPayments(c *gin.Context) {
	payments, err := h.loanService.ListLoanPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
