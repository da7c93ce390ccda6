package api

import (
	"log/slog"
	"net/http"

	"github.com/gtiscan/screener-api/internal/api/shared"
	"github.com/gtiscan/screener-api/internal/cache"
)

// CacheHandler exposes the result cache for inspection and manual flushes.
type CacheHandler struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(resultCache *cache.Cache, logger *slog.Logger) *CacheHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CacheHandler")
	}

	return &CacheHandler{
		cache:  resultCache,
		logger: logger.With(slog.String("component", "cache_handler")),
	}
}

// GetStats handles GET /api/cache/stats requests.
func (h *CacheHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.cache.GetStats())
}

// Clear handles DELETE /api/cache requests, dropping every cached result.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll()
	h.logger.Info("result cache cleared by request",
		slog.String("remote_addr", r.RemoteAddr))

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"status": "cache cleared",
	})
}
