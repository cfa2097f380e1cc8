package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/proxy"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/style"
	"tilehub/atlas/pkg/telemetry/metrics"
)

// StyleHandler serves rewritten style documents at GET /style/{styleId},
// cached under the style TTL.
type StyleHandler struct {
	rewriter  *style.Rewriter
	registry  *registry.Registry
	cache     *cache.ByteCache
	collector *metrics.Collector
	ttl       time.Duration
	logger    *slog.Logger
}

// NewStyleHandler creates a style handler. collector may be nil.
func NewStyleHandler(rw *style.Rewriter, reg *registry.Registry, c *cache.ByteCache, collector *metrics.Collector, ttl time.Duration) *StyleHandler {
	return &StyleHandler{
		rewriter:  rw,
		registry:  reg,
		cache:     c,
		collector: collector,
		ttl:       ttl,
		logger:    slog.Default().With("component", "style_handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *StyleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	styleID := r.PathValue("styleId")

	key := proxy.StyleCacheKey(styleID)
	if entry, ok := h.cache.Get(key); ok {
		h.recordCacheResult("style", true)
		h.writeStyle(w, entry.Payload, "HIT")
		h.recordRequest(start, http.StatusOK)
		return
	}
	h.recordCacheResult("style", false)

	doc, err := h.rewriter.Rewrite(r.Context(), styleID)
	if err != nil {
		resp := mapError(err, h.registry.IDs())
		h.logger.Warn("style rewrite failed",
			"style_id", styleID,
			"status", resp.Error.HTTPStatusCode(),
			"error", err,
		)
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	h.cache.Set(key, doc, "application/json", h.ttl)
	h.writeStyle(w, doc, "MISS")
	h.recordRequest(start, http.StatusOK)
}

func (h *StyleHandler) writeStyle(w http.ResponseWriter, payload []byte, cacheState string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.ttl.Seconds())))
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *StyleHandler) recordCacheResult(kind string, hit bool) {
	if h.collector == nil {
		return
	}
	if hit {
		h.collector.RecordCacheHit(kind)
	} else {
		h.collector.RecordCacheMiss(kind)
	}
}

func (h *StyleHandler) recordRequest(start time.Time, status int) {
	if h.collector != nil {
		h.collector.RecordRequest("style", fmt.Sprintf("%d", status), time.Since(start))
	}
}
