package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tilehub/atlas/pkg/proxy"
	"tilehub/atlas/pkg/proxy/types"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/telemetry/metrics"
)

// TileHandler serves tiles at GET /tiles/{styleId}/{sourceId}/{z}/{x}/{y}.
type TileHandler struct {
	tiles     *proxy.TileProxy
	registry  *registry.Registry
	collector *metrics.Collector
	ttl       time.Duration
	logger    *slog.Logger
}

// NewTileHandler creates a tile handler. collector may be nil.
func NewTileHandler(tiles *proxy.TileProxy, reg *registry.Registry, collector *metrics.Collector, ttl time.Duration) *TileHandler {
	return &TileHandler{
		tiles:     tiles,
		registry:  reg,
		collector: collector,
		ttl:       ttl,
		logger:    slog.Default().With("component", "tile_handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *TileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	styleID := r.PathValue("styleId")
	sourceID := r.PathValue("sourceId")

	z, x, y, err := parseCoordinates(r)
	if err != nil {
		resp := types.NewInvalidRequestError(err.Error(), "coordinates", types.CodeBadCoordinates)
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	res, err := h.tiles.Tile(r.Context(), styleID, sourceID, z, x, y)
	if err != nil {
		resp := mapError(err, h.registry.IDs())
		if resp.Error.HTTPStatusCode() >= 500 {
			h.logger.Warn("tile fetch failed",
				"style_id", styleID,
				"source_id", sourceID,
				"z", z, "x", x, "y", y,
				"error", err,
			)
		}
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	cacheState := "MISS"
	if res.FromCache {
		cacheState = "HIT"
	}
	h.recordCacheResult("tile", res.FromCache)

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.ttl.Seconds())))
	w.Header().Set("X-Cache", cacheState)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Payload)
	h.recordRequest(start, http.StatusOK)
}

// parseCoordinates reads z/x/y path values as non-negative integers. Range
// checks against the zoom grid happen in the tile proxy.
func parseCoordinates(r *http.Request) (z, x, y int, err error) {
	z, err = strconv.Atoi(r.PathValue("z"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("z is not an integer")
	}
	x, err = strconv.Atoi(r.PathValue("x"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("x is not an integer")
	}
	y, err = strconv.Atoi(r.PathValue("y"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("y is not an integer")
	}
	return z, x, y, nil
}

func (h *TileHandler) recordCacheResult(kind string, hit bool) {
	if h.collector == nil {
		return
	}
	if hit {
		h.collector.RecordCacheHit(kind)
	} else {
		h.collector.RecordCacheMiss(kind)
	}
}

func (h *TileHandler) recordRequest(start time.Time, status int) {
	if h.collector != nil {
		h.collector.RecordRequest("tiles", strconv.Itoa(status), time.Since(start))
	}
}
