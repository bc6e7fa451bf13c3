package handler

import (
	"errors"
	"net/http"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/logger"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tenantIDKey = "tenant_id"

// respondError maps the error taxonomy to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *apperr.ValidationError
		conflictErr     *apperr.ConflictError
		notFoundErr     *apperr.NotFoundError
		invalidStateErr *apperr.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.As(err, &invalidStateErr):
		c.JSON(http.StatusConflict, gin.H{"error": invalidStateErr.Error()})
	default:
		logger.GetLogger().Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// TenantMiddleware resolves and verifies the :tenantId path parameter before
// any tenant-scoped handler runs.
func TenantMiddleware(tenantRepo *repository.TenantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("tenantId"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid tenantId"})
			return
		}

		exists, err := tenantRepo.Exists(id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}

		c.Set(tenantIDKey, id)
		c.Next()
	}
}

func tenantID(c *gin.Context) uuid.UUID {
	return c.MustGet(tenantIDKey).(uuid.UUID)
}
