package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"copraledger/internal/ledger"
	"copraledger/internal/model"
	"copraledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditScoreResponse struct {
	ID                     string `json:"id"`
	SupplierID             string `json:"supplier_id"`
	Score                  int    `json:"score"`
	TransactionConsistency string `json:"transaction_consistency"`
	TotalSupplyScore       string `json:"total_supply_score"`
	TransactionCountScore  string `json:"transaction_count_score"`
	EligibleAmount         string `json:"eligible_amount"`
	TransactionCount       int    `json:"transaction_count"`
	CreditPercentage       string `json:"credit_percentage"`
	AverageTransaction     string `json:"average_transaction"`
	AssessmentDate         string `json:"assessment_date"`
}

// CreditScoreService owns the derived credit-score view: it is the only
// component that appends assessment rows.
type CreditScoreService interface {
	// GetSupplierScore returns the latest assessment, computing and
	// persisting one on the fly if the supplier has never been assessed.
	GetSupplierScore(ctx context.Context, supplierID string) (CreditScoreResponse, error)
	// Refresh recomputes the score from the current completed transaction
	// set and appends a new assessment row.
	Refresh(ctx context.Context, supplierID uuid.UUID) (*model.CreditScore, error)
	ListHistory(ctx context.Context, supplierID string, page, limit int) ([]CreditScoreResponse, int64, error)
}

type creditScoreService struct {
	scoreRepo       repository.CreditScoreRepository
	transactionRepo repository.TransactionRepository
	supplierRepo    repository.SupplierRepository
}

func NewCreditScoreService(
	scoreRepo repository.CreditScoreRepository,
	transactionRepo repository.TransactionRepository,
	supplierRepo repository.SupplierRepository,
) CreditScoreService {
	return &creditScoreService{
		scoreRepo:       scoreRepo,
		transactionRepo: transactionRepo,
		supplierRepo:    supplierRepo,
	}
}

func (s *creditScoreService) GetSupplierScore(ctx context.Context, supplierID string) (CreditScoreResponse, error) {
	id, err := uuid.Parse(supplierID)
	if err != nil {
		return CreditScoreResponse{}, fmt.Errorf("invalid supplier id: %w", err)
	}

	if _, err := s.supplierRepo.FindByID(ctx, id); err != nil {
		return CreditScoreResponse{}, fmt.Errorf("supplier not found: %w", err)
	}

	score, err := s.scoreRepo.FindLatestBySupplier(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		score, err = s.Refresh(ctx, id)
	}
	if err != nil {
		return CreditScoreResponse{}, fmt.Errorf("failed to load credit score: %w", err)
	}

	return toCreditScoreResponse(*score), nil
}

func (s *creditScoreService) Refresh(ctx context.Context, supplierID uuid.UUID) (*model.CreditScore, error) {
	transactions, err := s.transactionRepo.FindCompletedBySupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}

	card := ledger.ScoreSupplier(transactions)

	score := model.CreditScore{
		SupplierID:             supplierID,
		Score:                  card.Score,
		TransactionConsistency: card.TransactionConsistency,
		TotalSupplyScore:       card.TotalSupplyScore,
		TransactionCountScore:  card.TransactionCountScore,
		EligibleAmount:         card.EligibleAmount,
		TransactionCount:       card.TransactionCount,
		CreditPercentage:       card.CreditPercentage,
		AverageTransaction:     card.AverageTransaction,
		AssessmentDate:         time.Now(),
	}

	if err := s.scoreRepo.Create(ctx, &score); err != nil {
		return nil, fmt.Errorf("failed to persist credit score: %w", err)
	}

	return &score, nil
}

func (s *creditScoreService) ListHistory(ctx context.Context, supplierID string, page, limit int) ([]CreditScoreResponse, int64, error) {
	id, err := uuid.Parse(supplierID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid supplier id: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	scores, total, err := s.scoreRepo.ListBySupplier(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch score history: %w", err)
	}

	result := make([]CreditScoreResponse, 0, len(scores))
	for _, score := range scores {
		result = append(result, toCreditScoreResponse(score))
	}
	return result, total, nil
}

func toCreditScoreResponse(score model.CreditScore) CreditScoreResponse {
	return CreditScoreResponse{
		ID:                     score.ID.String(),
		SupplierID:             score.SupplierID.String(),
		Score:                  score.Score,
		TransactionConsistency: score.TransactionConsistency.StringFixed(4),
		TotalSupplyScore:       score.TotalSupplyScore.StringFixed(4),
		TransactionCountScore:  score.TransactionCountScore.StringFixed(4),
		EligibleAmount:         score.EligibleAmount.StringFixed(4),
		TransactionCount:       score.TransactionCount,
		CreditPercentage:       score.CreditPercentage.StringFixed(4),
		AverageTransaction:     score.AverageTransaction.StringFixed(4),
		AssessmentDate:         score.AssessmentDate.Format(time.RFC3339),
	}
}
