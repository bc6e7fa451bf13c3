// Package importer validates and persists batches of bank transactions.
// A batch commits atomically: any invalid entry rejects the whole batch
// before a single row is written.
package importer

import (
	"context"
	"errors"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/metrics"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// TransactionInput is one entry of an import batch. Amount is a string so the
// caller's fixed-point value survives intact.
type TransactionInput struct {
	ExternalID  string `json:"external_id,omitempty"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// ImportResult is the stored idempotency result for a keyed import: replays
// must return exactly this value.
type ImportResult struct {
	CreatedCount   int         `json:"created_count"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// Import validates and persists a batch in its own transaction.
func (s *Service) Import(ctx context.Context, tenantID uuid.UUID, inputs []TransactionInput) (*ImportResult, error) {
	var result *ImportResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.ImportTx(tx, tenantID, inputs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportTx persists the batch inside the caller's transaction. The
// idempotency guard uses this form so the rows and the idempotency record
// commit together.
func (s *Service) ImportTx(tx *gorm.DB, tenantID uuid.UUID, inputs []TransactionInput) (*ImportResult, error) {
	transactions, err := validate(tenantID, inputs)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{TransactionIDs: make([]uuid.UUID, 0, len(transactions))}

	for i := range transactions {
		t := &transactions[i]

		// An entry already imported under the same external ID is reused
		// rather than duplicated.
		if t.ExternalID != nil {
			var existing models.BankTransaction
			err := tx.Where("tenant_id = ? AND external_id = ?", tenantID, *t.ExternalID).
				First(&existing).Error
			if err == nil {
				result.TransactionIDs = append(result.TransactionIDs, existing.ID)
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}

		if err := tx.Create(t).Error; err != nil {
			return nil, err
		}
		result.CreatedCount++
		result.TransactionIDs = append(result.TransactionIDs, t.ID)
	}

	metrics.TransactionsImported.Add(float64(result.CreatedCount))
	s.log.Info("imported bank transactions",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", result.CreatedCount),
		zap.Int("batch_size", len(inputs)),
	)
	return result, nil
}

// validate converts every input into a persistable row, failing the whole
// batch on the first invalid entry.
func validate(tenantID uuid.UUID, inputs []TransactionInput) ([]models.BankTransaction, error) {
	transactions := make([]models.BankTransaction, 0, len(inputs))
	now := time.Now().UTC()

	for i, in := range inputs {
		amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
		if err != nil {
			return nil, &apperr.ValidationError{Index: i, Field: "amount", Reason: "is not a valid fixed-point value"}
		}
		if amount.Exponent() < -2 {
			return nil, &apperr.ValidationError{Index: i, Field: "amount", Reason: "has more than 2 decimal places"}
		}

		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if !validCurrency(currency) {
			return nil, &apperr.ValidationError{Index: i, Field: "currency", Reason: "must be a 3-letter ISO code"}
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
		if err != nil {
			return nil, &apperr.ValidationError{Index: i, Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
		}

		var externalID *string
		if ext := strings.TrimSpace(in.ExternalID); ext != "" {
			externalID = &ext
		}

		transactions = append(transactions, models.BankTransaction{
			ID:              uuid.New(),
			TenantID:        tenantID,
			ExternalID:      externalID,
			TransactionDate: date,
			Amount:          amount,
			Currency:        currency,
			Description:     in.Description,
			CreatedAt:       now,
		})
	}
	return transactions, nil
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
