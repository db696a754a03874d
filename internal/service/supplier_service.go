package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"copraledger/internal/model"
	"copraledger/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
}

type SupplierResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContactPerson  string `json:"contact_person"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	CurrentBalance string `json:"current_balance"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
}

// --- Interface ---

type SupplierService interface {
	CreateSupplier(ctx context.Context, userID string, req CreateSupplierRequest) (SupplierResponse, error)
	UpdateSupplier(ctx context.Context, userID string, id string, req UpdateSupplierRequest) (SupplierResponse, error)
	GetSupplier(ctx context.Context, id string) (SupplierResponse, error)
	ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]SupplierResponse, int64, error)
	// DeactivateSupplier soft-deactivates: suppliers referenced by loans or
	// transactions are never physically removed.
	DeactivateSupplier(ctx context.Context, userID string, id string) error
	// SyncBalance exposes the balance aggregator for manual reconciliation.
	SyncBalance(ctx context.Context, userID string, id string) (string, error)
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	balance      BalanceAggregator
}

func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	balance BalanceAggregator,
) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		balance:      balance,
	}
}

// --- Implementation ---

func (s *supplierService) CreateSupplier(ctx context.Context, userID string, req CreateSupplierRequest) (SupplierResponse, error) {
	supplier := &model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.supplierRepo.Create(txCtx, supplier); createErr != nil {
			return fmt.Errorf("failed to create supplier: %w", createErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateSupplier, supplier.ID.String(), supplier.Name, nil)
	})
	if err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(supplier), nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, userID string, id string, req UpdateSupplierRequest) (SupplierResponse, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, fmt.Errorf("invalid supplier id: %w", err)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return SupplierResponse{}, fmt.Errorf("supplier not found: %w", err)
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.supplierRepo.Update(txCtx, supplier); updateErr != nil {
			return fmt.Errorf("failed to update supplier: %w", updateErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionUpdateSupplier, supplier.ID.String(), supplier.Name, nil)
	})
	if err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(supplier), nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id string) (SupplierResponse, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, fmt.Errorf("invalid supplier id: %w", err)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return SupplierResponse{}, fmt.Errorf("supplier not found: %w", err)
	}
	return toSupplierResponse(supplier), nil
}

func (s *supplierService) ListSuppliers(ctx context.Context, activeOnly bool, page, limit int) ([]SupplierResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	suppliers, total, err := s.supplierRepo.List(ctx, activeOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch suppliers: %w", err)
	}

	result := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		result = append(result, toSupplierResponse(&suppliers[i]))
	}
	return result, total, nil
}

func (s *supplierService) DeactivateSupplier(ctx context.Context, userID string, id string) error {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid supplier id: %w", err)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("supplier not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deactErr := s.supplierRepo.Deactivate(txCtx, supplierID); deactErr != nil {
			return fmt.Errorf("failed to deactivate supplier: %w", deactErr)
		}
		return s.writeAudit(txCtx, userID, model.ActionDeactivateSupplier, supplierID.String(), supplier.Name, nil)
	})
}

func (s *supplierService) SyncBalance(ctx context.Context, userID string, id string) (string, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid supplier id: %w", err)
	}

	var balance string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		supplier, lockErr := s.supplierRepo.FindByIDForUpdate(txCtx, supplierID)
		if lockErr != nil {
			return fmt.Errorf("supplier not found: %w", lockErr)
		}

		recalculated, balErr := s.balance.Recalculate(txCtx, supplierID)
		if balErr != nil {
			return balErr
		}
		balance = recalculated.StringFixed(4)

		return s.writeAudit(txCtx, userID, model.ActionSyncBalance, supplierID.String(), supplier.Name, map[string]interface{}{
			"previous_balance": supplier.CurrentBalance.StringFixed(4),
			"new_balance":      balance,
		})
	})
	if err != nil {
		return "", err
	}

	return balance, nil
}

// --- Helpers ---

func (s *supplierService) writeAudit(ctx context.Context, userID string, action, entityID, entityName string, details map[string]interface{}) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	if details != nil {
		if payload, err := json.Marshal(details); err == nil {
			entry.Details = string(payload)
		}
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toSupplierResponse(supplier *model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:             supplier.ID.String(),
		Name:           supplier.Name,
		ContactPerson:  supplier.ContactPerson,
		Phone:          supplier.Phone,
		Email:          supplier.Email,
		Address:        supplier.Address,
		CurrentBalance: supplier.CurrentBalance.StringFixed(4),
		IsActive:       supplier.IsActive,
		CreatedAt:      supplier.CreatedAt.Format(time.RFC3339),
	}
}
