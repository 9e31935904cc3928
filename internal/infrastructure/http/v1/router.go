// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmaerp/internal/core/identity"
	"pharmaerp/internal/core/numerator"
	"pharmaerp/internal/domain/catalog"
	"pharmaerp/internal/domain/receipt"
	"pharmaerp/internal/domain/sales"
	"pharmaerp/internal/domain/transfer"
	"pharmaerp/internal/infrastructure/http/v1/handlers"
	"pharmaerp/internal/infrastructure/http/v1/middleware"
	"pharmaerp/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	AppName     string
	Development bool

	// Logger for request logging
	Logger *logger.Logger

	// HealthChecks are pinged by the readiness probe
	HealthChecks map[string]handlers.Pinger

	// Users confirms X-User-ID against the users table
	Users identity.Resolver

	// Idempotency enables replay of mutating requests when non-nil
	Idempotency middleware.IdempotencyStore

	// Tracing starts an OpenTelemetry server span per request
	Tracing bool

	// Metrics records request metrics and serves them at MetricsPath when non-nil
	Metrics     MetricsExporter
	MetricsPath string

	// CORSOrigins enables CORS for the listed browser origins
	CORSOrigins []string

	Catalog   *catalog.Service
	Sales     *sales.Service
	Receipts  *receipt.Service
	Transfers *transfer.Service
	Numerator numerator.Generator
}

// MetricsExporter records requests and exposes the collected metrics.
type MetricsExporter interface {
	middleware.RequestRecorder
	Handler() http.Handler
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	middleware.SetupValidator()

	router := gin.New()

	// Global middleware (order matters!)
	// Tracing precedes Trace so log lines carry the span's trace id.
	// Recovery sits inside ErrorHandler so a panic is rendered like any other error.
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}
	if cfg.Tracing {
		router.Use(middleware.Tracing(cfg.AppName))
	}
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.AppName, cfg.HealthChecks)
	router.GET("/health", healthHandler.Ready)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.UserContext(cfg.Users))
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerInvoiceRoutes(api, handlers.NewInvoiceHandler(base, cfg.Sales))
	registerStockRoutes(api,
		handlers.NewReceiptHandler(base, cfg.Receipts),
		handlers.NewTransferHandler(base, cfg.Transfers),
	)
	registerBatchRoutes(api, handlers.NewBatchHandler(base, cfg.Catalog))
	registerDocNumberRoutes(api, handlers.NewDocNumberHandler(base, cfg.Numerator))

	return router
}

func registerInvoiceRoutes(rg *gin.RouterGroup, h *handlers.InvoiceHandler) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("/:id", h.Get)
		invoices.DELETE("/:id", h.Delete)
		invoices.POST("/:id/post", h.Post)
		invoices.POST("/:id/cancel", h.Cancel)
		invoices.POST("/:id/payments", h.AddPayment)
		invoices.GET("/:id/movements", h.Movements)
		invoices.GET("/:id/audit", h.History)
	}
}

func registerStockRoutes(rg *gin.RouterGroup, receipts *handlers.ReceiptHandler, transfers *handlers.TransferHandler) {
	rg.POST("/receipts", receipts.Create)
	rg.POST("/transfers", transfers.Create)
}

func registerBatchRoutes(rg *gin.RouterGroup, h *handlers.BatchHandler) {
	rg.PATCH("/batches/:id/status", h.UpdateStatus)
}

func registerDocNumberRoutes(rg *gin.RouterGroup, h *handlers.DocNumberHandler) {
	rg.POST("/doc-numbers/:type/next", h.Next)
}
