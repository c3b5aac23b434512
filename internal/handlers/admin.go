package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sjsage522/metaworker/services/cache"
)

func (h *Handler) handleSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.svc.ListSupportedSources()})
}

func (h *Handler) handleValidate(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ValidateAdapter(c.Param("id")))
}

func (h *Handler) handleReload(c *gin.Context) {
	id := c.Param("id")
	if !h.svc.ReloadAdapter(id) {
		errorJSON(c, http.StatusNotFound, "unknown source "+id)
		return
	}
	h.log.Info().Str("source", id).Msg("Adapter reloaded via API")
	c.JSON(http.StatusOK, gin.H{"reloaded": true})
}

func (h *Handler) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CacheStats(c.Request.Context()))
}

func (h *Handler) handleCacheClear(c *gin.Context) {
	h.svc.ClearCache(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleCacheDelete(c *gin.Context) {
	u := c.Query("url")
	if u == "" {
		errorJSON(c, http.StatusBadRequest, "url query parameter is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": h.svc.DeleteCacheEntry(c.Request.Context(), u)})
}

func (h *Handler) handleCacheExport(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ExportCache(c.Request.Context()))
}

func (h *Handler) handleCacheImport(c *gin.Context) {
	var snap cache.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}
	n, err := h.svc.ImportCache(c.Request.Context(), &snap)
	if err != nil {
		h.log.WithError(err).Warn().Int("entries", len(snap.Entries)).Msg("Cache import rejected")
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}
