package repository

import (
	"errors"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceRepository is tenant-scoped data access for invoices. Every method
// takes the tenant ID as its first parameter; there are no global scans.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(tenantID uuid.UUID, invoice *models.Invoice) error {
	invoice.TenantID = tenantID
	return r.db.Create(invoice).Error
}

// GetByID fetch a single invoice by ID
func (r *InvoiceRepository) GetByID(tenantID, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "invoice"}
		}
		return nil, err
	}
	return &invoice, nil
}

// List returns invoices for a tenant, optionally filtered by status.
func (r *InvoiceRepository) List(tenantID uuid.UUID, status string, limit, offset int) ([]models.Invoice, error) {
	var invoices []models.Invoice

	query := r.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error
	return invoices, err
}

// ListOpen returns the invoices eligible for candidate generation.
func (r *InvoiceRepository) ListOpen(tenantID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("tenant_id = ? AND status = ?", tenantID, models.InvoiceStatusOpen).
		Order("created_at ASC").
		Find(&invoices).Error
	return invoices, err
}

// Delete removes an invoice unless a confirmed match references it.
func (r *InvoiceRepository) Delete(tenantID, id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: "invoice"}
			}
			return err
		}

		var confirmed int64
		err := tx.Model(&models.ReconciliationMatch{}).
			Where("tenant_id = ? AND invoice_id = ? AND status = ?", tenantID, id, models.MatchStatusConfirmed).
			Count(&confirmed).Error
		if err != nil {
			return err
		}
		if confirmed > 0 {
			return &apperr.InvalidStateError{Reason: "invoice has a confirmed match and cannot be deleted"}
		}

		return tx.Delete(&invoice).Error
	})
}
