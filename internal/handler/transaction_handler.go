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

type TransactionHandler struct {
	transactionService service.TransactionService
}

func NewTransactionHandler(transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	transactions := router.Group("/api/transactions")
	{
		transactions.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.CreateTransaction)
		transactions.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.ListTransactions)
		transactions.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.GetTransaction)
		transactions.PUT("/:id/cancel", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CancelTransaction)
		transactions.PUT("/:id/void", middleware.RequireRole(model.RoleAdmin), h.VoidTransaction)
	}
}

// CreateTransaction records a copra purchase and auto-debits outstanding loans
// @Summary      Create purchase transaction
// @Description  Records a purchase, auto-debits up to 40% of the proceeds against outstanding loans, and refreshes the supplier's credit score
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTransactionRequest  true  "Create Transaction Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, txn))
}

// ListTransactions returns a paginated transaction list
// @Summary      List transactions
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        supplier_id  query     string  false  "Filter by supplier"
// @Param        status       query     string  false  "Filter by status (PENDING, COMPLETED, CANCELLED, VOIDED)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.TransactionFilter{
		SupplierID: c.Query("supplier_id"),
		Status:     c.Query("status"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	txns, total, err := h.transactionService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}

// GetTransaction returns a single transaction with its loan deductions
// @Summary      Get transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=service.TransactionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	txn, err := h.transactionService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, txn))
}

// CancelTransaction reverses a completed transaction's loan deductions
// @Summary      Cancel transaction
// @Description  Reverses every recorded loan deduction from its stored interest/principal split and restores supplier balance
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=service.TransactionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/transactions/{id}/cancel [put]
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	txn, err := h.transactionService.CancelTransaction(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, txn))
}

// VoidTransaction voids a completed transaction, reversing loan deductions
// @Summary      Void transaction
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  response.Response{data=service.TransactionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/transactions/{id}/void [put]
func (h *TransactionHandler) VoidTransaction(c *gin.Context) {
	txn, err := h.transactionService.VoidTransaction(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, txn))
}
