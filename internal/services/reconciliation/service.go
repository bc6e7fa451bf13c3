// Package reconciliation runs the match selection and confirmation lifecycle
// for one tenant at a time.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/metrics"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result reports one reconciliation run: the proposals outstanding after the
// run plus the input set sizes.
type Result struct {
	Matches           []models.ReconciliationMatch `json:"matches"`
	TotalInvoices     int                          `json:"total_invoices"`
	TotalTransactions int                          `json:"total_transactions"`
	MatchesFound      int                          `json:"matches_found"`
}

type Service struct {
	db       *gorm.DB
	minScore int
	log      *zap.Logger
}

// NewService builds the service. minScore is the weak-match floor: only
// candidates scoring strictly above it become proposals.
func NewService(db *gorm.DB, minScore int, log *zap.Logger) *Service {
	return &Service{db: db, minScore: minScore, log: log}
}

// Reconcile scores every eligible candidate pair and persists at most one
// proposed match per invoice. Re-running against unchanged state is a no-op:
// an unchanged proposal is kept, a stale one is superseded, none are
// duplicated. Runs for the same tenant are serialized by a per-tenant
// advisory lock on postgres.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID) (*Result, error) {
	var result *Result

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryLockKey(tenantID)).Error; err != nil {
				return fmt.Errorf("failed to acquire tenant lock: %w", err)
			}
		}

		generator := matching.NewGenerator(
			repository.NewInvoiceRepository(tx),
			repository.NewBankTransactionRepository(tx),
		)
		invoices, transactions, err := generator.Inputs(tenantID)
		if err != nil {
			return err
		}

		result = &Result{
			Matches:           []models.ReconciliationMatch{},
			TotalInvoices:     len(invoices),
			TotalTransactions: len(transactions),
		}

		created := 0
		for i := range invoices {
			invoice := &invoices[i]

			best, ok := selectBest(invoice, transactions, s.minScore)
			if !ok {
				continue
			}

			match, wasCreated, err := s.propose(tx, tenantID, invoice.ID, best)
			if err != nil {
				return err
			}
			if wasCreated {
				created++
			}
			result.Matches = append(result.Matches, *match)
		}

		result.MatchesFound = len(result.Matches)
		metrics.MatchesProposed.Add(float64(created))
		s.log.Info("reconciliation run completed",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("invoices", result.TotalInvoices),
			zap.Int("transactions", result.TotalTransactions),
			zap.Int("proposals", result.MatchesFound),
			zap.Int("created", created),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type scored struct {
	transaction *models.BankTransaction
	score       int
}

// selectBest folds over the eligible transactions keeping the best candidate
// for one invoice. Ties break on earlier transaction date, then on lower
// transaction ID, so the selection is a total order.
func selectBest(invoice *models.Invoice, transactions []models.BankTransaction, minScore int) (scored, bool) {
	var best scored
	found := false

	for i := range transactions {
		tx := &transactions[i]
		if tx.Currency != invoice.Currency {
			continue
		}

		score := matching.Score(invoice, tx)
		if score <= minScore {
			continue
		}

		candidate := scored{transaction: tx, score: score}
		if !found || better(candidate, best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.transaction.TransactionDate.Equal(b.transaction.TransactionDate) {
		return a.transaction.TransactionDate.Before(b.transaction.TransactionDate)
	}
	return a.transaction.ID.String() < b.transaction.ID.String()
}

// propose writes the best candidate as a proposed match, superseding a stale
// prior proposal for the invoice instead of duplicating it.
func (s *Service) propose(tx *gorm.DB, tenantID, invoiceID uuid.UUID, best scored) (*models.ReconciliationMatch, bool, error) {
	var existing models.ReconciliationMatch
	err := tx.Where("tenant_id = ? AND invoice_id = ? AND status = ?",
		tenantID, invoiceID, models.MatchStatusProposed).
		First(&existing).Error

	switch {
	case err == nil:
		if existing.TransactionID == best.transaction.ID && existing.Score == best.score {
			return &existing, false, nil
		}
		// Stale proposal: retained for audit, replaced by the new best.
		if err := tx.Model(&models.ReconciliationMatch{}).
			Where("tenant_id = ? AND id = ?", tenantID, existing.ID).
			Update("status", models.MatchStatusSuperseded).Error; err != nil {
			return nil, false, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First proposal for this invoice.
	default:
		return nil, false, err
	}

	match := models.ReconciliationMatch{
		ID:            uuid.New(),
		TenantID:      tenantID,
		InvoiceID:     invoiceID,
		TransactionID: best.transaction.ID,
		Score:         best.score,
		Status:        models.MatchStatusProposed,
		CreatedAt:     time.Now().UTC(),
	}
	if err := tx.Create(&match).Error; err != nil {
		return nil, false, err
	}
	return &match, true, nil
}

// Confirm transitions a proposed match to confirmed. In the same transaction
// the invoice becomes matched, the bank transaction becomes matched, and any
// other proposed match referencing either is rejected. Concurrent confirms of
// the same match race on the guarded status transition: exactly one wins.
func (s *Service) Confirm(ctx context.Context, tenantID, matchID uuid.UUID) (*models.ReconciliationMatch, error) {
	var confirmed models.ReconciliationMatch

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.ReconciliationMatch
		err := tx.Where("tenant_id = ? AND id = ?", tenantID, matchID).First(&match).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &apperr.NotFoundError{Resource: "match"}
			}
			return err
		}

		// The WHERE on status makes the transition atomic: a concurrent
		// confirm finds zero rows affected.
		res := tx.Model(&models.ReconciliationMatch{}).
			Where("tenant_id = ? AND id = ? AND status = ?", tenantID, matchID, models.MatchStatusProposed).
			Update("status", models.MatchStatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &apperr.InvalidStateError{
				Reason: fmt.Sprintf("match is %s, only proposed matches can be confirmed", match.Status),
			}
		}

		if err := tx.Model(&models.Invoice{}).
			Where("tenant_id = ? AND id = ?", tenantID, match.InvoiceID).
			Update("status", models.InvoiceStatusMatched).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.BankTransaction{}).
			Where("tenant_id = ? AND id = ?", tenantID, match.TransactionID).
			Update("matched", true).Error; err != nil {
			return err
		}

		// Enforces at most one confirmed match per invoice and transaction.
		if err := tx.Model(&models.ReconciliationMatch{}).
			Where("tenant_id = ? AND id <> ? AND status = ? AND (invoice_id = ? OR transaction_id = ?)",
				tenantID, match.ID, models.MatchStatusProposed, match.InvoiceID, match.TransactionID).
			Update("status", models.MatchStatusRejected).Error; err != nil {
			return err
		}

		return tx.Where("tenant_id = ? AND id = ?", tenantID, matchID).First(&confirmed).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.MatchesConfirmed.Inc()
	s.log.Info("match confirmed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("match_id", matchID.String()),
		zap.String("invoice_id", confirmed.InvoiceID.String()),
		zap.String("transaction_id", confirmed.TransactionID.String()),
	)
	return &confirmed, nil
}

// advisoryLockKey derives a stable 64-bit lock key from the tenant ID.
func advisoryLockKey(tenantID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	return int64(h.Sum64())
}
