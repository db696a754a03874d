package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supplier represents a copra supplier the operation buys from.
// CurrentBalance is a derived aggregate (sum of outstanding principal across
// APPROVED loans) and is written exclusively by the balance aggregator.
type Supplier struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	ContactPerson  string          `gorm:"type:varchar(255)" json:"contact_person"`
	Phone          string          `gorm:"type:varchar(50)" json:"phone"`
	Email          string          `gorm:"type:varchar(255)" json:"email"`
	Address        string          `gorm:"type:text" json:"address"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"current_balance"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}
