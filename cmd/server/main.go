package main

import (
	"time"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/database"
	"invoice-reconciliation-backend/internal/logger"
	"invoice-reconciliation-backend/internal/metrics"
	"invoice-reconciliation-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	defer log.Sync()

	db, err := database.InitDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.Middleware(log))
	r.Use(gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	httpMetrics := metrics.NewHTTPMetrics("reconciliation")
	r.Use(httpMetrics.Middleware())
	r.GET("/metrics", gin.WrapH(metrics.GetPrometheusHandler()))

	routes.RegisterRoutes(r, db, cfg, log)

	log.Info("starting server", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
