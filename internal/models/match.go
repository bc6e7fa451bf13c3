package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusProposed   MatchStatus = "proposed"
	MatchStatusConfirmed  MatchStatus = "confirmed"
	MatchStatusRejected   MatchStatus = "rejected"
	MatchStatusSuperseded MatchStatus = "superseded"
)

// ReconciliationMatch links an invoice to a bank transaction with a score.
// Rejected and superseded rows are retained for audit, never deleted. At most
// one confirmed match may reference any invoice or transaction.
type ReconciliationMatch struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"tenant_id"`
	InvoiceID     uuid.UUID   `gorm:"type:uuid;index;not null" json:"invoice_id"`
	TransactionID uuid.UUID   `gorm:"type:uuid;index;not null" json:"transaction_id"`
	Score         int         `gorm:"not null" json:"score"`
	Status        MatchStatus `gorm:"index;not null;default:proposed" json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}
