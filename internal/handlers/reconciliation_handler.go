package handler

import (
	"net/http"
	"strconv"

	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/explain"
	"invoice-reconciliation-backend/internal/services/matching"
	"invoice-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service         *reconciliation.Service
	explainer       explain.Explainer
	invoiceRepo     *repository.InvoiceRepository
	transactionRepo *repository.BankTransactionRepository
	matchRepo       *repository.MatchRepository
}

func NewReconciliationHandler(
	service *reconciliation.Service,
	explainer explain.Explainer,
	invoiceRepo *repository.InvoiceRepository,
	transactionRepo *repository.BankTransactionRepository,
	matchRepo *repository.MatchRepository,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:         service,
		explainer:       explainer,
		invoiceRepo:     invoiceRepo,
		transactionRepo: transactionRepo,
		matchRepo:       matchRepo,
	}
}

// Run executes a reconciliation pass for the tenant and returns the
// outstanding proposed matches.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	result, err := h.service.Reconcile(c.Request.Context(), tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm transitions a proposed match to confirmed.
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	matchID, ok := parseUUIDParam(c, "matchId")
	if !ok {
		return
	}

	match, err := h.service.Confirm(c.Request.Context(), tenantID(c), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// ListMatches returns matches for the tenant, optionally filtered by status.
func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	matches, err := h.matchRepo.List(tenantID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

// Explain recomputes the score for a pair and returns a rationale. The
// response is 200 even when the AI collaborator is unavailable: the
// deterministic template always answers.
func (h *ReconciliationHandler) Explain(c *gin.Context) {
	id := tenantID(c)

	invoiceID, err := uuid.Parse(c.Query("invoice_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice_id"})
		return
	}
	transactionID, err := uuid.Parse(c.Query("transaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_id"})
		return
	}

	invoice, err := h.invoiceRepo.GetByID(id, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	transaction, err := h.transactionRepo.GetByID(id, transactionID)
	if err != nil {
		respondError(c, err)
		return
	}

	score := matching.Score(invoice, transaction)
	explanation := h.explainer.Explain(c.Request.Context(), invoice, transaction, score)

	c.JSON(http.StatusOK, gin.H{
		"invoice_id":     invoiceID,
		"transaction_id": transactionID,
		"score":          score,
		"explanation":    explanation,
	})
}
