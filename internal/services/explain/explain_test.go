package explain_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/services/explain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func samplePair() (*models.Invoice, *models.BankTransaction) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-123",
		Amount:        decimal.RequireFromString("120.00"),
		Currency:      "USD",
		DueDate:       day,
		Description:   "Acme Corp Invoice 123",
	}
	tx := &models.BankTransaction{
		ID:              uuid.New(),
		Amount:          decimal.RequireFromString("120.00"),
		Currency:        "USD",
		TransactionDate: day,
		Description:     "ACME CORP INV123",
	}
	return invoice, tx
}

func TestTemplateExplainer(t *testing.T) {
	ctx := context.Background()

	t.Run("is deterministic and never empty", func(t *testing.T) {
		invoice, tx := samplePair()
		e := &explain.TemplateExplainer{}

		first := e.Explain(ctx, invoice, tx, 69)
		require.NotEmpty(t, first)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, e.Explain(ctx, invoice, tx, 69))
		}
	})

	t.Run("names the matching factors", func(t *testing.T) {
		invoice, tx := samplePair()
		e := &explain.TemplateExplainer{}

		text := e.Explain(ctx, invoice, tx, 69)
		assert.Contains(t, text, "69/100")
		assert.Contains(t, text, "amounts match exactly")
		assert.Contains(t, text, "dates match exactly")
		assert.Contains(t, text, "USD")
	})

	t.Run("reports divergence for a weak pair", func(t *testing.T) {
		invoice, tx := samplePair()
		tx.Amount = decimal.RequireFromString("99.50")
		tx.TransactionDate = invoice.DueDate.AddDate(0, 0, 10)
		tx.Currency = "EUR"
		e := &explain.TemplateExplainer{}

		text := e.Explain(ctx, invoice, tx, 0)
		assert.Contains(t, text, "amount difference")
		assert.Contains(t, text, "10 days")
		assert.Contains(t, text, "currencies differ")
	})
}

func TestNew(t *testing.T) {
	log := zap.NewNop()

	t.Run("disabled AI selects the template", func(t *testing.T) {
		e := explain.New(config.AIConfig{Enabled: false}, log)
		_, ok := e.(*explain.TemplateExplainer)
		assert.True(t, ok)
	})

	t.Run("enabled without a key selects the template", func(t *testing.T) {
		e := explain.New(config.AIConfig{Enabled: true}, log)
		_, ok := e.(*explain.TemplateExplainer)
		assert.True(t, ok)
	})

	t.Run("enabled with a key selects the AI adapter", func(t *testing.T) {
		e := explain.New(config.AIConfig{Enabled: true, APIKey: "sk-test"}, log)
		_, ok := e.(*explain.OpenAIExplainer)
		assert.True(t, ok)
	})
}

func TestOpenAIExplainer(t *testing.T) {
	ctx := context.Background()

	newExplainer := func(baseURL string) *explain.OpenAIExplainer {
		return explain.NewOpenAIExplainer(config.AIConfig{
			Enabled: true,
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
			BaseURL: baseURL,
			Timeout: 2 * time.Second,
		}, zap.NewNop())
	}

	t.Run("returns the completion text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Amounts and dates line up, this looks valid."}}]}`))
		}))
		defer server.Close()

		invoice, tx := samplePair()
		text := newExplainer(server.URL).Explain(ctx, invoice, tx, 69)
		assert.Equal(t, "Amounts and dates line up, this looks valid.", text)
	})

	t.Run("falls back to the template on a server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		}))
		defer server.Close()

		invoice, tx := samplePair()
		text := newExplainer(server.URL).Explain(ctx, invoice, tx, 69)
		assert.Contains(t, text, "69/100")
		assert.Contains(t, text, "amounts match exactly")
	})

	t.Run("falls back when the endpoint is unreachable", func(t *testing.T) {
		invoice, tx := samplePair()
		text := newExplainer("http://127.0.0.1:1").Explain(ctx, invoice, tx, 69)
		assert.Contains(t, text, "69/100")
	})

	t.Run("falls back on an empty choice list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		invoice, tx := samplePair()
		text := newExplainer(server.URL).Explain(ctx, invoice, tx, 69)
		assert.Contains(t, text, "69/100")
	})
}
