package repository

import (
	"context"

	"copraledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditScoreRepository interface {
	// Create appends a new assessment; score rows are never updated in place.
	Create(ctx context.Context, score *model.CreditScore) error
	FindLatestBySupplier(ctx context.Context, supplierID uuid.UUID) (*model.CreditScore, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, page, limit int) ([]model.CreditScore, int64, error)
}

type creditScoreRepository struct {
	db *gorm.DB
}

func NewCreditScoreRepository(db *gorm.DB) CreditScoreRepository {
	return &creditScoreRepository{db: db}
}

func (r *creditScoreRepository) Create(ctx context.Context, score *model.CreditScore) error {
	return GetDB(ctx, r.db).Create(score).Error
}

func (r *creditScoreRepository) FindLatestBySupplier(ctx context.Context, supplierID uuid.UUID) (*model.CreditScore, error) {
	var score model.CreditScore
	if err := GetDB(ctx, r.db).
		Where("supplier_id = ?", supplierID).
		Order("assessment_date desc").
		First(&score).Error; err != nil {
		return nil, err
	}
	return &score, nil
}

func (r *creditScoreRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, page, limit int) ([]model.CreditScore, int64, error) {
	var scores []model.CreditScore
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.CreditScore{}).
		Where("supplier_id = ?", supplierID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Where("supplier_id = ?", supplierID).
		Order("assessment_date desc").Offset(offset).Limit(limit).
		Find(&scores).Error; err != nil {
		return nil, 0, err
	}

	return scores, total, nil
}
