package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enum constants
const (
	PaymentMethodAutoDebit    = "AUTO_DEBIT"
	PaymentMethodManual       = "MANUAL"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCash         = "CASH"
)

// LoanPayment is one allocation of money against a loan. Auto-debit rows
// carry the originating TransactionID; manual payments leave it nil.
// The interest/principal split recorded here is the authoritative source
// for reversals — reversal never recomputes the split from loan aggregates.
type LoanPayment struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LoanID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"loan_id"`
	Loan             *Loan           `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	TransactionID    *uuid.UUID      `gorm:"type:uuid;index" json:"transaction_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	InterestPortion  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"interest_portion"`
	PrincipalPortion decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"principal_portion"`
	PaymentMethod    string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentDate      time.Time       `gorm:"not null" json:"payment_date"`
	ReferenceNumber  string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_number"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
