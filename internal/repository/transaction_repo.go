package repository

import (
	"context"

	"copraledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionListFilter narrows transaction listings.
type TransactionListFilter struct {
	SupplierID string // uuid string or empty for all
	Status     string // PENDING, COMPLETED, CANCELLED, VOIDED or empty for all
	Page       int
	Limit      int
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindByIDWithPayments(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// FindCompletedBySupplier returns the scoring input: every COMPLETED,
	// non-deleted transaction for the supplier, oldest first.
	FindCompletedBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Transaction, error)
	List(ctx context.Context, filter TransactionListFilter) ([]model.Transaction, int64, error)
	Update(ctx context.Context, txn *model.Transaction) error
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	return GetDB(ctx, r.db).Create(txn).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	if err := GetDB(ctx, r.db).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByIDWithPayments(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	if err := GetDB(ctx, r.db).Preload("LoanPayments").First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindCompletedBySupplier(ctx context.Context, supplierID uuid.UUID) ([]model.Transaction, error) {
	var txns []model.Transaction
	if err := GetDB(ctx, r.db).
		Where("supplier_id = ? AND status = ?", supplierID, model.TxStatusCompleted).
		Order("transaction_date asc").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionListFilter) ([]model.Transaction, int64, error) {
	var txns []model.Transaction
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.SupplierID != "" {
			q = q.Where("supplier_id = ?", filter.SupplierID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	if err := apply(db.Model(&model.Transaction{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Supplier")).
		Order("transaction_date desc").Offset(offset).Limit(filter.Limit).
		Find(&txns).Error; err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *model.Transaction) error {
	return GetDB(ctx, r.db).Save(txn).Error
}
