package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tilehub/atlas/pkg/proxy"
	"tilehub/atlas/pkg/proxy/types"
	"tilehub/atlas/pkg/registry"
	"tilehub/atlas/pkg/style"
	"tilehub/atlas/pkg/upstream"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes an error envelope at its own status code.
func writeErrorResponse(w http.ResponseWriter, resp *types.ErrorResponse) {
	writeJSON(w, resp.Error.HTTPStatusCode(), resp)
}

// mapError converts a domain error into the client-facing envelope. Upstream
// failures are described generically; their bodies, hostnames, and any
// credentials never reach the client. knownIDs, when non-empty, is appended
// to unknown-style 404s to aid debugging.
func mapError(err error, knownIDs []string) *types.ErrorResponse {
	var badCoords *proxy.BadCoordinatesError
	var tileMissing *proxy.TileNotFoundError
	var badRef *style.BadReferenceError
	var notFound *registry.NotFoundError

	switch {
	case errors.As(err, &badCoords):
		return types.NewInvalidRequestError(badCoords.Error(), "coordinates", types.CodeBadCoordinates)

	case errors.As(err, &badRef):
		return types.NewInvalidRequestError("reference does not decode to a known upstream URL", "ref", types.CodeBadReference)

	case errors.As(err, &tileMissing):
		return types.NewNotFoundError("tile not found", types.CodeTileNotFound)

	case errors.As(err, &notFound):
		msg := "unknown style or source id"
		if len(knownIDs) > 0 {
			msg += "; known styles: " + strings.Join(knownIDs, ", ")
		}
		code := types.CodeStyleNotFound
		if notFound.SourceID != "" {
			code = types.CodeSourceNotFound
		}
		return types.NewNotFoundError(msg, code)

	case upstream.IsTimeout(err):
		return types.NewGatewayTimeoutError("upstream fetch timed out")

	case isUpstreamFailure(err):
		return types.NewBadGatewayError("failed to fetch upstream resource")

	default:
		return types.NewServerError("An internal error occurred. Please try again later.")
	}
}

func isUpstreamFailure(err error) bool {
	var statusErr *upstream.StatusError
	var upstreamMissing *upstream.NotFoundError
	var malformed *style.MalformedDocumentError
	return errors.As(err, &statusErr) || errors.As(err, &upstreamMissing) || errors.As(err, &malformed)
}
