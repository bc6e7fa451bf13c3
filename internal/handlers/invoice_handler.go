package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceHandler struct {
	invoiceRepo *repository.InvoiceRepository
}

func NewInvoiceHandler(invoiceRepo *repository.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{invoiceRepo: invoiceRepo}
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var payload struct {
		InvoiceNumber string `json:"invoice_number"`
		VendorID      string `json:"vendor_id"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		DueDate       string `json:"due_date"`
		Description   string `json:"description"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive fixed-point value"})
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
	if len(currency) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency must be a 3-letter ISO code"})
		return
	}

	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be a valid YYYY-MM-DD date"})
		return
	}

	invoiceNumber := strings.TrimSpace(payload.InvoiceNumber)
	if invoiceNumber == "" {
		invoiceNumber = uuid.New().String()
	}

	var vendorID *uuid.UUID
	if payload.VendorID != "" {
		id, err := uuid.Parse(payload.VendorID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor_id"})
			return
		}
		vendorID = &id
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: invoiceNumber,
		VendorID:      vendorID,
		Amount:        amount,
		Currency:      currency,
		DueDate:       dueDate,
		Description:   payload.Description,
		Status:        models.InvoiceStatusOpen,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.invoiceRepo.Create(tenantID(c), invoice); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "invoice number already exists for this tenant"})
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := parseUUIDParam(c, "invoiceId")
	if !ok {
		return
	}

	invoice, err := h.invoiceRepo.GetByID(tenantID(c), invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	invoices, err := h.invoiceRepo.List(tenantID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, ok := parseUUIDParam(c, "invoiceId")
	if !ok {
		return
	}

	if err := h.invoiceRepo.Delete(tenantID(c), invoiceID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
