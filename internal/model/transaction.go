package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionStatus enum constants
const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusCancelled = "CANCELLED"
	TxStatusVoided    = "VOIDED"
)

// Transaction represents a copra purchase from a supplier.
// TotalKilo and TotalAmount are derived at creation time:
// total_kilo = quantity - less_kilo, total_amount = total_kilo * unit_price.
// LoanPayments records exactly which loans were auto-debited and by how much,
// which is what makes cancellation/void an exact inverse.
type Transaction struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier             *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Quantity             decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	LessKilo             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"less_kilo"` // deduction before pricing (moisture, trash)
	UnitPrice            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TotalKilo            decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_kilo"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	Status               string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	LoanDeduction        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"loan_deduction"`
	AmountAfterDeduction decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"amount_after_deduction"`
	PaidAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`
	LoanPayments         []LoanPayment   `gorm:"foreignKey:TransactionID" json:"loan_payments,omitempty"`
	TransactionDate      time.Time       `gorm:"not null;index" json:"transaction_date"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}
