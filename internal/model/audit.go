package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateSupplier     = "CREATE_SUPPLIER"
	ActionUpdateSupplier     = "UPDATE_SUPPLIER"
	ActionDeactivateSupplier = "DEACTIVATE_SUPPLIER"
	ActionSyncBalance        = "SYNC_BALANCE"

	ActionCreateTransaction = "CREATE_TRANSACTION"
	ActionCancelTransaction = "CANCEL_TRANSACTION"
	ActionVoidTransaction   = "VOID_TRANSACTION"

	ActionCreateLoan        = "CREATE_LOAN"
	ActionApproveLoan       = "APPROVE_LOAN"
	ActionRejectLoan        = "REJECT_LOAN"
	ActionCancelLoan        = "CANCEL_LOAN"
	ActionRecordLoanPayment = "RECORD_LOAN_PAYMENT"
)

// AuditLog tracks Who, What, and When for every ledger mutation
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
