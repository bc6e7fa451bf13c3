// Package matching scores (invoice, transaction) pairs for reconciliation.
//
// A score is an integer in [0, 100] built from three factors:
//   - Amount: 50 for an exact match, a 0-30 band within one minor currency
//     unit, 0 beyond.
//   - Date: up to 15, fading linearly over a 3 day window.
//   - Text: up to 5 from description similarity.
//
// The score is a pure function of the two records. Given identical inputs it
// always returns the identical integer; each factor is rounded half-up before
// summing.
package matching

import (
	"math"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
)

const (
	ExactAmountWeight     = 50
	AmountToleranceWeight = 30
	DateProximityWeight   = 15
	TextSimilarityWeight  = 5

	DateToleranceDays = 3
)

// AmountTolerance is one minor currency unit. All supported currencies are
// treated as 2-decimal.
var AmountTolerance = decimal.RequireFromString("0.01")

// Score computes the match score for an invoice/transaction pair.
func Score(invoice *models.Invoice, tx *models.BankTransaction) int {
	total := amountFactor(invoice.Amount, tx.Amount) +
		dateFactor(invoice.DueDate, tx.TransactionDate) +
		textFactor(invoice.Description, tx.Description)

	// Guards against rounding overflow only; factor maxima already sum below 100.
	if total > 100 {
		total = 100
	}
	return total
}

func amountFactor(a, b decimal.Decimal) int {
	diff := a.Sub(b).Abs()
	if diff.IsZero() {
		return ExactAmountWeight
	}
	if diff.Cmp(AmountTolerance) <= 0 {
		proportion := decimal.NewFromInt(1).Sub(diff.DivRound(AmountTolerance, 8))
		scaled := decimal.NewFromInt(AmountToleranceWeight).Mul(proportion)
		// decimal.Round is half away from zero, which is half-up for
		// non-negative values.
		return int(scaled.Round(0).IntPart())
	}
	return 0
}

func dateFactor(dueDate, txDate time.Time) int {
	days := daysBetween(dueDate, txDate)
	if days > DateToleranceDays {
		return 0
	}
	value := DateProximityWeight * (1 - float64(days)/float64(DateToleranceDays))
	return roundHalfUp(value)
}

func textFactor(invoiceDesc, txDesc string) int {
	ratio := similarityRatio(invoiceDesc, txDesc)
	return roundHalfUp(TextSimilarityWeight * ratio)
}

// similarityRatio returns a value in [0, 1] from the proportion of aligned
// characters shared by the two descriptions. Containment of one description
// in the other (case-insensitive) counts as 1.0.
func similarityRatio(a, b string) float64 {
	al := strings.ToLower(strings.TrimSpace(a))
	bl := strings.ToLower(strings.TrimSpace(b))
	if al == "" || bl == "" {
		return 0
	}
	if strings.Contains(al, bl) || strings.Contains(bl, al) {
		return 1.0
	}
	common := lcsLength(al, bl)
	return 2 * float64(common) / float64(len(al)+len(bl))
}

// lcsLength returns the length of the longest common subsequence.
func lcsLength(a, b string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[len(a)][len(b)]
}

// daysBetween returns the whole-day difference between two calendar dates,
// ignoring the time-of-day component.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(au.Sub(bu) / (24 * time.Hour))
	if days < 0 {
		days = -days
	}
	return days
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
