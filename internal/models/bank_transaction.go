package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankTransaction is immutable once persisted except for the Matched flag,
// which only match confirmation sets.
type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"type:uuid;index;not null;uniqueIndex:uq_tenant_external_id,priority:1" json:"tenant_id"`
	ExternalID      *string         `gorm:"uniqueIndex:uq_tenant_external_id,priority:2" json:"external_id,omitempty"`
	TransactionDate time.Time       `gorm:"column:transaction_date;index;not null" json:"transaction_date"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	Description     string          `json:"description"`
	Matched         bool            `gorm:"index;not null;default:false" json:"matched"`
	CreatedAt       time.Time       `json:"created_at"`
}
