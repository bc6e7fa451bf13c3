package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/database"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/routes"
	"invoice-reconciliation-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Matching: config.MatchingConfig{MinScore: 20},
		AI:       config.AIConfig{Enabled: false},
	}

	r := gin.New()
	routes.RegisterRoutes(r, db, cfg, zap.NewNop())
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTenant(t *testing.T, r *gin.Engine, name string) uuid.UUID {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/tenants", fmt.Sprintf(`{"name":%q}`, name), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tenant models.Tenant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tenant))
	return tenant.ID
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTenantEndpoints(t *testing.T) {
	t.Run("create and fetch", func(t *testing.T) {
		r, _ := newTestServer(t)
		id := createTenant(t, r, "acme")

		w := doJSON(t, r, http.MethodGet, "/api/tenants/"+id.String(), "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "acme")
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		r, _ := newTestServer(t)
		createTenant(t, r, "acme")
		w := doJSON(t, r, http.MethodPost, "/api/tenants", `{"name":"acme"}`, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		r, _ := newTestServer(t)
		w := doJSON(t, r, http.MethodPost, "/api/tenants", `{"name":"  "}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		r, _ := newTestServer(t)
		w := doJSON(t, r, http.MethodGet, "/api/tenants/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTenantScoping(t *testing.T) {
	r, _ := newTestServer(t)

	t.Run("scoped routes reject unknown tenants", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/tenants/"+uuid.NewString()+"/invoices", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("scoped routes reject malformed tenant ids", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/tenants/not-a-uuid/invoices", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvoiceEndpoints(t *testing.T) {
	r, _ := newTestServer(t)
	tenantID := createTenant(t, r, "acme")
	base := "/api/tenants/" + tenantID.String() + "/invoices"

	t.Run("create", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base,
			`{"invoice_number":"INV-1","amount":"120.00","currency":"usd","due_date":"2024-03-15","description":"Acme Corp Invoice 123"}`, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var invoice models.Invoice
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice))
		assert.Equal(t, "USD", invoice.Currency)
		assert.Equal(t, models.InvoiceStatusOpen, invoice.Status)
	})

	t.Run("duplicate invoice number conflicts", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base,
			`{"invoice_number":"INV-1","amount":"99.00","currency":"USD","due_date":"2024-03-16"}`, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, base,
			`{"invoice_number":"INV-2","amount":"-5.00","currency":"USD","due_date":"2024-03-15"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list filters by status", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, base+"?status=open", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var invoices []models.Invoice
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoices))
		assert.Len(t, invoices, 1)
	})

	t.Run("unknown invoice is 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, base+"/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestImportEndpoint(t *testing.T) {
	batch := `{"transactions":[
		{"amount":"120.00","currency":"USD","date":"2024-03-15","description":"ACME CORP INV123"},
		{"amount":"45.50","currency":"USD","date":"2024-03-16","description":"office supplies"}
	]}`

	t.Run("creates the batch", func(t *testing.T) {
		r, _ := newTestServer(t)
		tenantID := createTenant(t, r, "acme")

		w := doJSON(t, r, http.MethodPost,
			"/api/tenants/"+tenantID.String()+"/bank-transactions/import", batch, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var result importer.ImportResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 2, result.CreatedCount)
		assert.Len(t, result.TransactionIDs, 2)
	})

	t.Run("same key replays the stored result", func(t *testing.T) {
		r, db := newTestServer(t)
		tenantID := createTenant(t, r, "acme")
		path := "/api/tenants/" + tenantID.String() + "/bank-transactions/import"
		headers := map[string]string{"Idempotency-Key": "import-1"}

		first := doJSON(t, r, http.MethodPost, path, batch, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		second := doJSON(t, r, http.MethodPost, path, batch, headers)
		require.Equal(t, http.StatusCreated, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())

		var count int64
		require.NoError(t, db.Model(&models.BankTransaction{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("same key with a different payload conflicts", func(t *testing.T) {
		r, _ := newTestServer(t)
		tenantID := createTenant(t, r, "acme")
		path := "/api/tenants/" + tenantID.String() + "/bank-transactions/import"
		headers := map[string]string{"Idempotency-Key": "import-1"}

		first := doJSON(t, r, http.MethodPost, path, batch, headers)
		require.Equal(t, http.StatusCreated, first.Code)

		other := `{"transactions":[{"amount":"1.00","currency":"USD","date":"2024-03-15"}]}`
		w := doJSON(t, r, http.MethodPost, path, other, headers)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("key in the payload body works too", func(t *testing.T) {
		r, _ := newTestServer(t)
		tenantID := createTenant(t, r, "acme")
		path := "/api/tenants/" + tenantID.String() + "/bank-transactions/import"
		body := `{"idempotency_key":"body-key","transactions":[{"amount":"1.00","currency":"USD","date":"2024-03-15"}]}`

		first := doJSON(t, r, http.MethodPost, path, body, nil)
		require.Equal(t, http.StatusCreated, first.Code)

		second := doJSON(t, r, http.MethodPost, path, body, nil)
		require.Equal(t, http.StatusCreated, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
	})

	t.Run("invalid entry is 400 and names the index", func(t *testing.T) {
		r, db := newTestServer(t)
		tenantID := createTenant(t, r, "acme")

		bad := `{"transactions":[
			{"amount":"1.00","currency":"USD","date":"2024-03-15"},
			{"amount":"1.00","currency":"USD","date":"not-a-date"}
		]}`
		w := doJSON(t, r, http.MethodPost,
			"/api/tenants/"+tenantID.String()+"/bank-transactions/import", bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "index 1")

		var count int64
		require.NoError(t, db.Model(&models.BankTransaction{}).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})

	t.Run("empty batch is 400", func(t *testing.T) {
		r, _ := newTestServer(t)
		tenantID := createTenant(t, r, "acme")
		w := doJSON(t, r, http.MethodPost,
			"/api/tenants/"+tenantID.String()+"/bank-transactions/import", `{"transactions":[]}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReconcileAndConfirmEndpoints(t *testing.T) {
	r, _ := newTestServer(t)
	tenantID := createTenant(t, r, "acme")
	base := "/api/tenants/" + tenantID.String()

	w := doJSON(t, r, http.MethodPost, base+"/invoices",
		`{"invoice_number":"INV-1","amount":"120.00","currency":"USD","due_date":"2024-03-15","description":"Acme Corp Invoice 123"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/bank-transactions/import",
		`{"transactions":[{"amount":"120.00","currency":"USD","date":"2024-03-15","description":"ACME CORP INV123"}]}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/reconcile", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Matches      []models.ReconciliationMatch `json:"matches"`
		MatchesFound int                          `json:"matches_found"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.MatchesFound)
	match := result.Matches[0]
	assert.Equal(t, models.MatchStatusProposed, match.Status)

	// The proposal is visible on the match listing.
	w = doJSON(t, r, http.MethodGet, base+"/matches?status=proposed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.ReconciliationMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	// Explain recomputes the score deterministically.
	w = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("%s/reconcile/explain?invoice_id=%s&transaction_id=%s", base, match.InvoiceID, match.TransactionID), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var explained struct {
		Score       int    `json:"score"`
		Explanation string `json:"explanation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &explained))
	assert.Equal(t, match.Score, explained.Score)
	assert.NotEmpty(t, explained.Explanation)

	// Confirm, then a second confirm must fail.
	w = doJSON(t, r, http.MethodPost, base+"/matches/"+match.ID.String()+"/confirm", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed models.ReconciliationMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
	assert.Equal(t, models.MatchStatusConfirmed, confirmed.Status)

	w = doJSON(t, r, http.MethodPost, base+"/matches/"+match.ID.String()+"/confirm", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, base+"/matches/"+uuid.NewString()+"/confirm", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
