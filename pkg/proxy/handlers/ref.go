package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/style"
	"tilehub/atlas/pkg/telemetry/metrics"
)

// RefHandler resolves proxied references minted by the style rewriter at
// GET /ref/{provider}/{encoded} and GET /ref/{provider}/{encoded}/{suffix...}.
// The suffix carries glyph fontstack/range segments the map client
// substituted after the rewrite.
type RefHandler struct {
	rewriter  *style.Rewriter
	cache     *cache.ByteCache
	collector *metrics.Collector
	ttl       time.Duration
	logger    *slog.Logger
}

// NewRefHandler creates a reference handler. collector may be nil.
func NewRefHandler(rw *style.Rewriter, c *cache.ByteCache, collector *metrics.Collector, ttl time.Duration) *RefHandler {
	return &RefHandler{
		rewriter:  rw,
		cache:     c,
		collector: collector,
		ttl:       ttl,
		logger:    slog.Default().With("component", "ref_handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *RefHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	provider := r.PathValue("provider")
	encoded := r.PathValue("encoded")
	suffix := r.PathValue("suffix")

	key := "ref:" + provider + "/" + encoded + "/" + suffix
	if entry, ok := h.cache.Get(key); ok {
		h.recordCacheResult(true)
		h.write(w, entry.Payload, entry.ContentType, "HIT")
		h.recordRequest(start, http.StatusOK)
		return
	}
	h.recordCacheResult(false)

	res, err := h.rewriter.ResolveRef(r.Context(), provider, encoded, suffix)
	if err != nil {
		resp := mapError(err, nil)
		if resp.Error.HTTPStatusCode() >= 500 {
			h.logger.Warn("reference resolution failed",
				"provider", provider,
				"error", err,
			)
		}
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.cache.Set(key, res.Body, contentType, h.ttl)
	h.write(w, res.Body, contentType, "MISS")
	h.recordRequest(start, http.StatusOK)
}

func (h *RefHandler) write(w http.ResponseWriter, payload []byte, contentType, cacheState string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.ttl.Seconds())))
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *RefHandler) recordCacheResult(hit bool) {
	if h.collector == nil {
		return
	}
	if hit {
		h.collector.RecordCacheHit("ref")
	} else {
		h.collector.RecordCacheMiss("ref")
	}
}

func (h *RefHandler) recordRequest(start time.Time, status int) {
	if h.collector != nil {
		h.collector.RecordRequest("ref", strconv.Itoa(status), time.Since(start))
	}
}
