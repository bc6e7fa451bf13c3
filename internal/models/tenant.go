package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization. Every other entity carries its
// ID and every query filters by it.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
