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

type SupplierHandler struct {
	supplierService    service.SupplierService
	creditScoreService service.CreditScoreService
}

func NewSupplierHandler(supplierService service.SupplierService, creditScoreService service.CreditScoreService) *SupplierHandler {
	return &SupplierHandler{
		supplierService:    supplierService,
		creditScoreService: creditScoreService,
	}
}

func (h *SupplierHandler) RegisterRoutes(router *gin.RouterGroup) {
	suppliers := router.Group("/api/suppliers")
	{
		suppliers.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.CreateSupplier)
		suppliers.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.ListSuppliers)
		suppliers.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.GetSupplier)
		suppliers.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.UpdateSupplier)
		suppliers.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeactivateSupplier)
		suppliers.POST("/:id/sync-balance", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.SyncBalance)
		suppliers.GET("/:id/credit-score", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff), h.GetCreditScore)
		suppliers.GET("/:id/credit-score/history", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.GetCreditScoreHistory)
	}
}

// CreateSupplier registers a new copra supplier
// @Summary      Create supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSupplierRequest  true  "Create Supplier Payload"
// @Success      201      {object}  response.Response{data=service.SupplierResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/suppliers [post]
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req service.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.CreateSupplier(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supplier))
}

// ListSuppliers returns a paginated supplier list
// @Summary      List suppliers
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        active_only  query     bool  false  "Only active suppliers"
// @Param        page         query     int   false  "Page number (default 1)"
// @Param        limit        query     int   false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/suppliers [get]
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	params := pagination.Parse(c)
	activeOnly := c.Query("active_only") == "true"

	suppliers, total, err := h.supplierService.ListSuppliers(c.Request.Context(), activeOnly, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"suppliers": suppliers,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// GetSupplier returns a single supplier
// @Summary      Get supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=service.SupplierResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [get]
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	supplier, err := h.supplierService.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// UpdateSupplier patches supplier contact details
// @Summary      Update supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Supplier ID"
// @Param        payload  body      service.UpdateSupplierRequest  true  "Update Supplier Payload"
// @Success      200      {object}  response.Response{data=service.SupplierResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/suppliers/{id} [put]
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	var req service.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// DeactivateSupplier soft-deactivates a supplier
// @Summary      Deactivate supplier
// @Description  Marks the supplier inactive; existing loans and transactions are preserved
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [delete]
func (h *SupplierHandler) DeactivateSupplier(c *gin.Context) {
	if err := h.supplierService.DeactivateSupplier(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Supplier deactivated"}))
}

// SyncBalance recomputes the supplier's outstanding balance from loan rows
// @Summary      Sync supplier balance
// @Description  Recomputes current_balance as the sum of outstanding principal across approved loans
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id}/sync-balance [post]
func (h *SupplierHandler) SyncBalance(c *gin.Context) {
	balance, err := h.supplierService.SyncBalance(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"current_balance": balance}))
}

// GetCreditScore returns the supplier's latest credit assessment
// @Summary      Get supplier credit score
// @Description  Returns the most recent stored assessment, computing one on demand if none exists
// @Tags         credit-scores
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=service.CreditScoreResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id}/credit-score [get]
func (h *SupplierHandler) GetCreditScore(c *gin.Context) {
	score, err := h.creditScoreService.GetSupplierScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, score))
}

// GetCreditScoreHistory returns past credit assessments, newest first
// @Summary      Credit score history
// @Tags         credit-scores
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Supplier ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      404    {object}  response.Response
// @Router       /api/suppliers/{id}/credit-score/history [get]
func (h *SupplierHandler) GetCreditScoreHistory(c *gin.Context) {
	params := pagination.Parse(c)

	scores, total, err := h.creditScoreService.ListHistory(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"scores": scores,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}
