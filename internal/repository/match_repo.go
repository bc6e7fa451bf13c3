package repository

import (
	"errors"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(tenantID, id uuid.UUID) (*models.ReconciliationMatch, error) {
	var match models.ReconciliationMatch
	err := r.db.First(&match, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "match"}
		}
		return nil, err
	}
	return &match, nil
}

// List returns matches for a tenant, optionally filtered by status.
func (r *MatchRepository) List(tenantID uuid.UUID, status string, limit, offset int) ([]models.ReconciliationMatch, error) {
	var matches []models.ReconciliationMatch

	query := r.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&matches).Error
	return matches, err
}
