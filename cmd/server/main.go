package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhythmtaneja/SignFlow/internal/api"
	"github.com/rhythmtaneja/SignFlow/internal/config"
	"github.com/rhythmtaneja/SignFlow/internal/db"
	"github.com/rhythmtaneja/SignFlow/internal/render"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"github.com/rhythmtaneja/SignFlow/internal/storage"
	"github.com/rhythmtaneja/SignFlow/pkg/logger"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(cfg, zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	compositor := render.NewCompositor(cfg.Render, zapLogger)

	auditService := services.NewAuditService(database, cfg.Audit.BufferSize, zapLogger, metricsCollector)
	signatureService := services.NewSignatureService(database, store, auditService, zapLogger, metricsCollector)
	documentService := services.NewDocumentService(database, store, compositor, signatureService, auditService, zapLogger, metricsCollector)
	inviteService := services.NewInviteService(database, cfg, auditService, zapLogger)

	router := api.NewRouter(cfg, zapLogger, metricsCollector, documentService, signatureService, inviteService, auditService, database)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	auditService.Close()

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
