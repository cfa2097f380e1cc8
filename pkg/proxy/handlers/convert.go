package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tilehub/atlas/pkg/convert"
	"tilehub/atlas/pkg/proxy/types"
	"tilehub/atlas/pkg/telemetry/metrics"
)

// maxConvertBodySize caps POST /convert request bodies.
const maxConvertBodySize = 1 << 20 // 1MB

// ConvertHandler runs the foreign style importer at POST /convert.
type ConvertHandler struct {
	converter *convert.Converter
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewConvertHandler creates a conversion handler. collector may be nil.
func NewConvertHandler(c *convert.Converter, collector *metrics.Collector) *ConvertHandler {
	return &ConvertHandler{
		converter: c,
		collector: collector,
		logger:    slog.Default().With("component", "convert_handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var in convert.Input
	body := http.MaxBytesReader(w, r.Body, maxConvertBodySize)
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		resp := types.NewInvalidRequestError("request body is not valid JSON", "", types.CodeInvalidJSON)
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	out, err := h.converter.Convert(r.Context(), in)
	if err != nil {
		resp := h.mapConvertError(err)
		writeErrorResponse(w, resp)
		h.recordRequest(start, resp.Error.HTTPStatusCode())
		return
	}

	h.logger.Info("style converted",
		"layers", out.Statistics.LayerCount,
		"sources", out.Statistics.SourceCount,
	)
	writeJSON(w, http.StatusOK, out)
	h.recordRequest(start, http.StatusOK)
}

func (h *ConvertHandler) mapConvertError(err error) *types.ErrorResponse {
	var badInput *convert.BadInputError
	var parseErr *convert.ParseError
	switch {
	case errors.As(err, &badInput):
		return types.NewInvalidRequestError(badInput.Error(), badInput.Field, types.CodeInvalidValue)
	case errors.As(err, &parseErr):
		return types.NewBadGatewayError("upstream style document could not be parsed")
	default:
		return mapError(err, nil)
	}
}

func (h *ConvertHandler) recordRequest(start time.Time, status int) {
	if h.collector != nil {
		h.collector.RecordRequest("convert", strconv.Itoa(status), time.Since(start))
	}
}
