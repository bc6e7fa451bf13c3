package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusOpen    InvoiceStatus = "open"
	InvoiceStatusMatched InvoiceStatus = "matched"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Invoice is created by the invoice boundary and mutated only by match
// confirmation (open -> matched). Amounts are fixed-point decimals.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;index;not null;uniqueIndex:uq_tenant_invoice_number,priority:1" json:"tenant_id"`
	VendorID      *uuid.UUID      `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	InvoiceNumber string          `gorm:"uniqueIndex:uq_tenant_invoice_number,priority:2" json:"invoice_number"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	DueDate       time.Time       `json:"due_date"`
	Description   string          `json:"description"`
	Status        InvoiceStatus   `gorm:"index;not null;default:open" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
