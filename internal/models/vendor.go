package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a tenant-scoped counterparty referenced by invoices.
type Vendor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_tenant_vendor_name,priority:1" json:"tenant_id"`
	Name      string    `gorm:"not null;uniqueIndex:uq_tenant_vendor_name,priority:2" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
