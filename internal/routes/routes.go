package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/config"
	handler "invoice-reconciliation-backend/internal/handlers"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/explain"
	"invoice-reconciliation-backend/internal/services/idempotency"
	"invoice-reconciliation-backend/internal/services/importer"
	"invoice-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	tenantRepo := repository.NewTenantRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	guard := idempotency.NewGuard(db)
	importerService := importer.NewService(db, log)
	reconService := reconciliation.NewService(db, cfg.Matching.MinScore, log)
	explainer := explain.New(cfg.AI, log)

	tenantHandler := handler.NewTenantHandler(tenantRepo)
	invoiceHandler := handler.NewInvoiceHandler(invoiceRepo)
	transactionHandler := handler.NewBankTransactionHandler(importerService, guard, transactionRepo)
	reconHandler := handler.NewReconciliationHandler(reconService, explainer, invoiceRepo, transactionRepo, matchRepo)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	tenants := api.Group("/tenants")
	tenants.POST("", tenantHandler.Create)
	tenants.GET("", tenantHandler.List)
	tenants.GET("/:tenantId", tenantHandler.Get)

	// Tenant-scoped routes: every request below verifies the tenant first.
	scoped := tenants.Group("/:tenantId", handler.TenantMiddleware(tenantRepo))

	invoices := scoped.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.Create)
		invoices.GET("", invoiceHandler.List)
		invoices.GET("/:invoiceId", invoiceHandler.Get)
		invoices.DELETE("/:invoiceId", invoiceHandler.Delete)
	}

	transactions := scoped.Group("/bank-transactions")
	{
		transactions.POST("/import", transactionHandler.Import)
		transactions.GET("", transactionHandler.List)
	}

	recon := scoped.Group("/reconcile")
	{
		recon.POST("", reconHandler.Run)
		recon.GET("/explain", reconHandler.Explain)
	}

	matches := scoped.Group("/matches")
	{
		matches.GET("", reconHandler.ListMatches)
		matches.POST("/:matchId/confirm", reconHandler.Confirm)
	}
}
