package repository

import (
	"context"

	"copraledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanListFilter narrows loan listings.
type LoanListFilter struct {
	SupplierID string
	Status     string
	Page       int
	Limit      int
}

type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	// FindOutstandingBySupplierForUpdate returns APPROVED, not-fully-paid
	// loans oldest first, row-locked for the duration of the transaction.
	FindOutstandingBySupplierForUpdate(ctx context.Context, supplierID uuid.UUID) ([]*model.Loan, error)
	List(ctx context.Context, filter LoanListFilter) ([]model.Loan, int64, error)
	Update(ctx context.Context, loan *model.Loan) error
	// SumOutstandingPrincipal computes sum(amount - total_paid) over the
	// supplier's APPROVED loans — the balance aggregator's input.
	SumOutstandingPrincipal(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return GetDB(ctx, r.db).Create(loan).Error
}

func (r *loanRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindOutstandingBySupplierForUpdate(ctx context.Context, supplierID uuid.UUID) ([]*model.Loan, error) {
	var loans []*model.Loan
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND status = ? AND total_paid < total_amount_with_interest",
			supplierID, model.LoanStatusApproved).
		Order("created_at asc").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) List(ctx context.Context, filter LoanListFilter) ([]model.Loan, int64, error) {
	var loans []model.Loan
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

	if err := apply(db.Model(&model.Loan{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Supplier")).
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&loans).Error; err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *model.Loan) error {
	return GetDB(ctx, r.db).Save(loan).Error
}

func (r *loanRepository) SumOutstandingPrincipal(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Loan{}).
		Select("COALESCE(SUM(amount - total_paid), 0) AS total").
		Where("supplier_id = ? AND status = ?", supplierID, model.LoanStatusApproved).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
