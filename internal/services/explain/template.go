package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
)

// TemplateExplainer builds a deterministic rationale from the same factors
// the scorer uses. It is the last line of defense and never fails.
type TemplateExplainer struct{}

func (e *TemplateExplainer) Explain(_ context.Context, invoice *models.Invoice, tx *models.BankTransaction, score int) string {
	var factors []string

	amountDiff := invoice.Amount.Sub(tx.Amount).Abs()
	switch {
	case amountDiff.IsZero():
		factors = append(factors, "the amounts match exactly")
	case amountDiff.Cmp(decimal.RequireFromString("0.01")) <= 0:
		factors = append(factors, fmt.Sprintf("the amounts are within 1 minor unit (difference: %s)", amountDiff))
	default:
		factors = append(factors, fmt.Sprintf("amount difference: %s", amountDiff))
	}

	dateDiff := daysApart(invoice.DueDate, tx.TransactionDate)
	switch {
	case dateDiff == 0:
		factors = append(factors, "dates match exactly")
	case dateDiff <= 3:
		factors = append(factors, fmt.Sprintf("dates are within %d days", dateDiff))
	default:
		factors = append(factors, fmt.Sprintf("date difference: %d days", dateDiff))
	}

	if invoice.Currency == tx.Currency {
		factors = append(factors, fmt.Sprintf("both in %s", invoice.Currency))
	} else {
		factors = append(factors, fmt.Sprintf("currencies differ (%s vs %s)", invoice.Currency, tx.Currency))
	}

	invDesc := strings.ToLower(invoice.Description)
	txDesc := strings.ToLower(tx.Description)
	if invDesc != "" && txDesc != "" &&
		(strings.Contains(invDesc, txDesc) || strings.Contains(txDesc, invDesc)) {
		factors = append(factors, "one description contains the other")
	}

	return fmt.Sprintf("Match score: %d/100. Factors: %s.", score, strings.Join(factors, "; "))
}

func daysApart(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(au.Sub(bu) / (24 * time.Hour))
	if days < 0 {
		days = -days
	}
	return days
}
