package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditScore is one assessment of a supplier's creditworthiness, derived
// from their completed transaction history. Rows are append-only; the
// supplier's current score is the latest row by AssessmentDate.
type CreditScore struct {
	ID                     uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_credit_scores_supplier_assessed,priority:1" json:"supplier_id"`
	Supplier               *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Score                  int             `gorm:"not null" json:"score"` // 0-100
	TransactionConsistency decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"transaction_consistency"`
	TotalSupplyScore       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"total_supply_score"`
	TransactionCountScore  decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"transaction_count_score"`
	EligibleAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"eligible_amount"`
	TransactionCount       int             `gorm:"not null;default:0" json:"transaction_count"`
	CreditPercentage       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"credit_percentage"`
	AverageTransaction     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"average_transaction"`
	AssessmentDate         time.Time       `gorm:"not null;index:idx_credit_scores_supplier_assessed,priority:2,sort:desc" json:"assessment_date"`
	CreatedAt              time.Time       `json:"created_at"`
}
