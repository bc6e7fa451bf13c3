// Package explain produces human-readable rationales for match decisions.
// The AI collaborator is optional: when it is disabled, unconfigured, or
// failing, a deterministic template built from the scoring factors answers
// instead. Explaining never fails the caller.
package explain

import (
	"context"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"

	"go.uber.org/zap"
)

// Explainer produces a rationale for a scored pair. Implementations must
// always return a usable string.
type Explainer interface {
	Explain(ctx context.Context, invoice *models.Invoice, tx *models.BankTransaction, score int) string
}

// New selects the explainer once at startup: the OpenAI adapter when the AI
// path is enabled and configured, the deterministic template otherwise.
func New(cfg config.AIConfig, log *zap.Logger) Explainer {
	if cfg.Enabled && cfg.APIKey != "" {
		return NewOpenAIExplainer(cfg, log)
	}
	log.Info("AI explanations disabled, using deterministic template")
	return &TemplateExplainer{}
}
