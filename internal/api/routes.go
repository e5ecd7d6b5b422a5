package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rhythmtaneja/SignFlow/internal/api/handlers"
	"github.com/rhythmtaneja/SignFlow/internal/api/middleware"
	"github.com/rhythmtaneja/SignFlow/internal/config"
	"github.com/rhythmtaneja/SignFlow/internal/services"
	"github.com/rhythmtaneja/SignFlow/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	engine           *gin.Engine
	logger           *zap.Logger
	metrics          *metrics.MetricsCollector
	authHandler      *handlers.AuthHandler
	docHandler       *handlers.DocumentHandler
	signatureHandler *handlers.SignatureHandler
	auditHandler     *handlers.AuditHandler
	authMiddleware   *middleware.AuthMiddleware
	reqMiddleware    *middleware.RequestMiddleware
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	mc *metrics.MetricsCollector,
	documentService *services.DocumentService,
	signatureService *services.SignatureService,
	inviteService *services.InviteService,
	auditService *services.AuditService,
	db *gorm.DB,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Security, db)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(reqMiddleware.LoginRateLimit())

	return &Router{
		engine:           engine,
		logger:           logger,
		metrics:          mc,
		authHandler:      handlers.NewAuthHandler(db, authMiddleware, logger),
		docHandler:       handlers.NewDocumentHandler(documentService, auditService, logger),
		signatureHandler: handlers.NewSignatureHandler(signatureService, documentService, inviteService, logger),
		auditHandler:     handlers.NewAuditHandler(auditService, documentService, logger),
		authMiddleware:   authMiddleware,
		reqMiddleware:    reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "SignFlow API is running"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.Counters(),
			"latencies": r.metrics.Latencies(),
			"sizes":     r.metrics.Sizes(),
		})
	})

	auth := r.engine.Group("/api/auth")
	{
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
	}

	// Public signing surface: authenticated by invite token, not session.
	r.engine.GET("/api/signatures/public/:token", r.signatureHandler.PublicInfo)
	r.engine.POST("/api/signatures/public", r.signatureHandler.PublicCreate)

	docs := r.engine.Group("/api/docs")
	docs.Use(r.authMiddleware.RequireAuth())
	{
		docs.POST("/upload", r.docHandler.Upload)
		docs.GET("", r.docHandler.List)
		docs.DELETE("/:id", r.docHandler.Delete)
		docs.GET("/file/:id", r.docHandler.View)
		docs.GET("/file/:id/view", r.docHandler.View)
	}

	sigs := r.engine.Group("/api/signatures")
	sigs.Use(r.authMiddleware.RequireAuth())
	{
		sigs.POST("", r.signatureHandler.Create)
		sigs.GET("", r.signatureHandler.ListAll)
		sigs.GET("/:id", r.signatureHandler.ListForDocument)
		sigs.GET("/generate/:documentId", r.signatureHandler.Generate)
		sigs.GET("/generate/:documentId/view", r.signatureHandler.Generate)
		sigs.POST("/invite", r.signatureHandler.Invite)
		sigs.PUT("/:id/status", r.signatureHandler.UpdateStatus)
		sigs.DELETE("/:id", r.signatureHandler.Delete)
		sigs.POST("/reject-document", r.signatureHandler.RejectDocument)
		sigs.GET("/status/:status", r.signatureHandler.ByStatus)
	}

	audit := r.engine.Group("/api/audit")
	audit.Use(r.authMiddleware.RequireAuth())
	{
		audit.GET("/:fileId", r.auditHandler.DocumentTrail)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
