package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanStatus enum constants
const (
	LoanStatusPending   = "PENDING"
	LoanStatusApproved  = "APPROVED"
	LoanStatusRejected  = "REJECTED"
	LoanStatusPaid      = "PAID"
	LoanStatusCancelled = "CANCELLED"
	LoanStatusVoided    = "VOIDED"
)

// Loan represents a short-term cash advance against future copra deliveries.
// Invariants maintained by the amortization and reversal engines:
// TotalPaid == PrincipalPaid + InterestPaid, and TotalPaid never exceeds
// TotalAmountWithInterest. Status moves one-way except PAID -> APPROVED when
// a payment is reversed.
type Loan struct {
	ID                      uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier                *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Amount                  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	InterestRate            decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"interest_rate"` // percent, flat
	TotalAmountWithInterest decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount_with_interest"`
	TotalPaid               decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_paid"`
	PrincipalPaid           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"principal_paid"`
	InterestPaid            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"interest_paid"`
	Status                  string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DueDate                 time.Time       `json:"due_date"`
	ApprovedAt              *time.Time      `json:"approved_at"`
	CompletedAt             *time.Time      `json:"completed_at"`
	CancelledAt             *time.Time      `json:"cancelled_at"`
	VoidedAt                *time.Time      `json:"voided_at"`
	CreatedAt               time.Time       `gorm:"index" json:"created_at"` // FIFO auto-debit order key
	UpdatedAt               time.Time       `json:"updated_at"`
	DeletedAt               gorm.DeletedAt  `gorm:"index" json:"-"`
}

// RemainingBalance is what is still owed against the loan, interest included.
func (l *Loan) RemainingBalance() decimal.Decimal {
	return l.TotalAmountWithInterest.Sub(l.TotalPaid)
}

// TotalWithInterest derives amount * (1 + rate/100).
func TotalWithInterest(amount, ratePercent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return amount.Mul(hundred.Add(ratePercent)).Div(hundred)
}
