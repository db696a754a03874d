package repository

import (
	"context"

	"copraledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoanPaymentRepository interface {
	Create(ctx context.Context, payment *model.LoanPayment) error
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.LoanPayment, error)
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]model.LoanPayment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByReferencePrefix(ctx context.Context, prefix string) (int64, error)
}

type loanPaymentRepository struct {
	db *gorm.DB
}

func NewLoanPaymentRepository(db *gorm.DB) LoanPaymentRepository {
	return &loanPaymentRepository{db: db}
}

func (r *loanPaymentRepository) Create(ctx context.Context, payment *model.LoanPayment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *loanPaymentRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.LoanPayment, error) {
	var payments []model.LoanPayment
	if err := GetDB(ctx, r.db).
		Where("transaction_id = ?", transactionID).
		Order("created_at asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *loanPaymentRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]model.LoanPayment, error) {
	var payments []model.LoanPayment
	if err := GetDB(ctx, r.db).
		Where("loan_id = ?", loanID).
		Order("payment_date desc").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *loanPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.LoanPayment{}).Error
}

func (r *loanPaymentRepository) CountByReferencePrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.LoanPayment{}).
		Where("reference_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
