package repository

import (
	"errors"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) GetByID(tenantID, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.First(&tx, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Resource: "bank transaction"}
		}
		return nil, err
	}
	return &tx, nil
}

func (r *BankTransactionRepository) List(tenantID uuid.UUID, limit, offset int) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.
		Where("tenant_id = ?", tenantID).
		Order("transaction_date DESC").
		Limit(limit).Offset(offset).
		Find(&txs).Error
	return txs, err
}

// ListUnmatched returns the transactions eligible for candidate generation.
func (r *BankTransactionRepository) ListUnmatched(tenantID uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.
		Where("tenant_id = ? AND matched = ?", tenantID, false).
		Order("transaction_date ASC").
		Find(&txs).Error
	return txs, err
}
