// Package handlers exposes the extraction engine over HTTP.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sjsage522/metaworker/internal/extractor"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/logger"
	"sjsage522/metaworker/services/cache"
)

// Service is the engine surface the HTTP API drives
type Service interface {
	ExtractSingle(ctx context.Context, item model.Item, opts model.Options) model.ExtractionRecord
	ExtractBatch(ctx context.Context, items []model.Item, opts model.Options) []model.ExtractionRecord
	ListSupportedSources() []model.SourceInfo
	ValidateAdapter(sourceID string) model.ValidationResult
	ReloadAdapter(sourceID string) bool
	CacheStats(ctx context.Context) model.CacheStats
	ClearCache(ctx context.Context)
	DeleteCacheEntry(ctx context.Context, rawURL string) bool
	ExportCache(ctx context.Context) *cache.Snapshot
	ImportCache(ctx context.Context, snap *cache.Snapshot) (int, error)
}

var _ Service = (*extractor.Engine)(nil)

// Handler handles HTTP requests for the extraction API
type Handler struct {
	svc     Service
	metrics http.Handler
	log     *logger.Logger
}

// New creates a Handler. metrics may be nil.
func New(svc Service, metrics http.Handler, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.ForServer()
	}
	return &Handler{svc: svc, metrics: metrics, log: log}
}

// Router builds a gin engine with the middleware and every route registered
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.log), CORS(), Caller())
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := r.Group("/api")

	// Extraction routes
	api.POST("/extract", h.handleExtract)
	api.POST("/extract/batch", h.handleExtractBatch)

	// Source routes
	api.GET("/sources", h.handleSources)
	api.GET("/sources/:id/validate", h.handleValidate)
	api.POST("/sources/:id/reload", h.handleReload)

	// Cache routes
	api.GET("/cache/stats", h.handleCacheStats)
	api.DELETE("/cache", h.handleCacheClear)
	api.DELETE("/cache/entry", h.handleCacheDelete)
	api.GET("/cache/export", h.handleCacheExport)
	api.POST("/cache/import", h.handleCacheImport)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
