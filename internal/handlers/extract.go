package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/logger"
)

// maxBatchItems bounds one batch request
const maxBatchItems = 500

type itemRequest struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	SourceHint string `json:"source_hint"`
}

type optionsRequest struct {
	TimeoutMs      int   `json:"timeout_ms"`
	EnableRetry    *bool `json:"enable_retry"`
	EnableCache    *bool `json:"enable_cache"`
	MaxConcurrency int   `json:"max_concurrency"`
	PacingMs       int   `json:"pacing_ms"`
}

type extractRequest struct {
	itemRequest
	Options optionsRequest `json:"options"`
}

type batchRequest struct {
	Items   []itemRequest  `json:"items"`
	Options optionsRequest `json:"options"`
}

func (i itemRequest) toItem() model.Item {
	id := strings.TrimSpace(i.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return model.Item{ID: id, URL: strings.TrimSpace(i.URL), Title: i.Title, SourceHint: i.SourceHint}
}

// toOptions applies the API defaults: retry and cache on unless disabled
func (o optionsRequest) toOptions() model.Options {
	opts := model.Options{
		Timeout:        time.Duration(o.TimeoutMs) * time.Millisecond,
		EnableRetry:    true,
		EnableCache:    true,
		MaxConcurrency: o.MaxConcurrency,
		Pacing:         time.Duration(o.PacingMs) * time.Millisecond,
	}
	if o.EnableRetry != nil {
		opts.EnableRetry = *o.EnableRetry
	}
	if o.EnableCache != nil {
		opts.EnableCache = *o.EnableCache
	}
	return opts
}

func (h *Handler) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, ok := helpers.ParseHTTPURL(req.URL); !ok {
		errorJSON(c, http.StatusBadRequest, "url must be an absolute http(s) url")
		return
	}

	rec := h.svc.ExtractSingle(c.Request.Context(), req.toItem(), req.Options.toOptions())
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) handleExtractBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		errorJSON(c, http.StatusBadRequest, "items must not be empty")
		return
	}
	if len(req.Items) > maxBatchItems {
		errorJSON(c, http.StatusBadRequest, "too many items")
		return
	}

	items := make([]model.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.toItem()
	}
	results := h.svc.ExtractBatch(c.Request.Context(), items, req.Options.toOptions())

	summary := map[model.ExtractionStatus]int{}
	for _, r := range results {
		summary[r.ExtractionStatus]++
	}
	h.log.WithFields(logger.Fields{"items": len(items), "summary": summary}).
		Info().Msg("Batch extracted")
	c.JSON(http.StatusOK, gin.H{"results": results, "summary": summary})
}
