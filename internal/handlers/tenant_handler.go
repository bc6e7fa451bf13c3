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
)

type TenantHandler struct {
	tenantRepo *repository.TenantRepository
}

func NewTenantHandler(tenantRepo *repository.TenantRepository) *TenantHandler {
	return &TenantHandler{tenantRepo: tenantRepo}
}

func (h *TenantHandler) Create(c *gin.Context) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.tenantRepo.Create(tenant); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "tenant name already exists"})
		return
	}

	c.JSON(http.StatusCreated, tenant)
}

func (h *TenantHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tenants, err := h.tenantRepo.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenants)
}

func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "tenantId")
	if !ok {
		return
	}

	tenant, err := h.tenantRepo.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}
