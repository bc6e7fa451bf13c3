package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IdempotencyRecord stores the committed result of a keyed request. One row
// per (tenant_id, idempotency_key); the unique index is what closes the race
// between concurrent callers of the same key.
type IdempotencyRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_tenant_idempotency_key,priority:1" json:"tenant_id"`
	IdempotencyKey string         `gorm:"not null;uniqueIndex:uq_tenant_idempotency_key,priority:2" json:"idempotency_key"`
	PayloadHash    string         `gorm:"size:64;not null" json:"payload_hash"`
	StoredResult   datatypes.JSON `json:"stored_result"`
	CreatedAt      time.Time      `json:"created_at"`
}
