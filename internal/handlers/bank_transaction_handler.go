package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"invoice-reconciliation-backend/internal/metrics"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/idempotency"
	"invoice-reconciliation-backend/internal/services/importer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BankTransactionHandler struct {
	importer        *importer.Service
	guard           *idempotency.Guard
	transactionRepo *repository.BankTransactionRepository
}

func NewBankTransactionHandler(
	importerService *importer.Service,
	guard *idempotency.Guard,
	transactionRepo *repository.BankTransactionRepository,
) *BankTransactionHandler {
	return &BankTransactionHandler{
		importer:        importerService,
		guard:           guard,
		transactionRepo: transactionRepo,
	}
}

// Import persists a transaction batch. An Idempotency-Key header (or the
// equivalent payload field) routes the request through the guard: a retry
// with the same key and payload replays the stored result.
func (h *BankTransactionHandler) Import(c *gin.Context) {
	var payload struct {
		Transactions   []importer.TransactionInput `json:"transactions"`
		IdempotencyKey string                      `json:"idempotency_key"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(payload.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transactions must not be empty"})
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		key = payload.IdempotencyKey
	}

	id := tenantID(c)
	raw, replayed, err := h.guard.Execute(c.Request.Context(), id, key, payload.Transactions,
		func(tx *gorm.DB) (any, error) {
			return h.importer.ImportTx(tx, id, payload.Transactions)
		})
	if err != nil {
		respondError(c, err)
		return
	}
	if replayed {
		metrics.IdempotentReplays.Inc()
	}

	var result importer.ImportResult
	if err := json.Unmarshal(raw, &result); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *BankTransactionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.transactionRepo.List(tenantID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}
