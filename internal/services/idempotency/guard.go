// Package idempotency wraps write operations with exactly-once semantics per
// (tenant, key). The unique index on idempotency_records is the authority:
// the guard claims the key inside the same database transaction that runs the
// operation, so a concurrent caller with the same key either blocks until the
// first commit and then replays the stored result, or observes the committed
// record directly. The operation never runs twice for one key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Operation runs inside the guard's database transaction. Its side effects
// commit together with the idempotency record, or not at all.
type Operation func(tx *gorm.DB) (any, error)

type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Execute runs op with idempotency protection. When key is empty the
// operation runs directly with no dedup. The returned bool reports whether
// the result was replayed from a stored record.
func (g *Guard) Execute(ctx context.Context, tenantID uuid.UUID, key string, payload any, op Operation) (json.RawMessage, bool, error) {
	if key == "" {
		var raw json.RawMessage
		err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result, err := op(tx)
			if err != nil {
				return err
			}
			raw, err = json.Marshal(result)
			return err
		})
		if err != nil {
			return nil, false, err
		}
		return raw, false, nil
	}

	hash := HashPayload(payload)

	// Fast path: a committed record for this key.
	stored, err := g.lookup(ctx, tenantID, key)
	if err != nil {
		return nil, false, err
	}
	if stored != nil {
		return g.replay(stored, hash)
	}

	var raw json.RawMessage
	txErr := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claiming the key first makes the unique index the arbiter for
		// concurrent callers before any side effect of op is possible.
		record := models.IdempotencyRecord{
			ID:             uuid.New(),
			TenantID:       tenantID,
			IdempotencyKey: key,
			PayloadHash:    hash,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		result, err := op(tx)
		if err != nil {
			return err
		}

		raw, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}

		return tx.Model(&models.IdempotencyRecord{}).
			Where("id = ?", record.ID).
			Update("stored_result", datatypes.JSON(raw)).Error
	})
	if txErr != nil {
		if isUniqueViolation(txErr) {
			// Lost the race: another caller committed this key. Treat it as
			// a replay of the committed result.
			stored, err := g.lookup(ctx, tenantID, key)
			if err != nil {
				return nil, false, err
			}
			if stored != nil {
				return g.replay(stored, hash)
			}
		}
		return nil, false, txErr
	}
	return raw, false, nil
}

func (g *Guard) lookup(ctx context.Context, tenantID uuid.UUID, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := g.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (g *Guard) replay(record *models.IdempotencyRecord, hash string) (json.RawMessage, bool, error) {
	if record.PayloadHash != hash {
		return nil, false, &apperr.ConflictError{
			Reason: "idempotency key reused with a different payload",
		}
	}
	return json.RawMessage(record.StoredResult), true, nil
}

// HashPayload produces the digest compared on key reuse.
func HashPayload(payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		b = fmt.Append(nil, payload)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
