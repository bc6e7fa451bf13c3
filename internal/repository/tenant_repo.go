package repository

import (
	"errors"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *TenantRepository) GetByID(id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "tenant"}
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *TenantRepository) List(limit, offset int) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.Order("created_at ASC").Limit(limit).Offset(offset).Find(&tenants).Error
	return tenants, err
}

// Exists reports whether the tenant is known. Used by handlers to reject
// requests against unknown tenants before touching tenant-scoped tables.
func (r *TenantRepository) Exists(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Tenant{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
