package types

// ErrorResponse is the JSON envelope returned for every error condition, so
// map clients and curl users see one consistent shape.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message. It never contains
	// upstream URLs, credentials, or upstream response bodies.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Param is the request parameter that caused the error, if any.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates an unknown style, source, or tile (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeRateLimitExceeded indicates too many requests (429).
	ErrorTypeRateLimitExceeded = "rate_limit_exceeded"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates an upstream failure (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeGatewayTimeout indicates an upstream timeout (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"
)

// Error code constants for common scenarios.
const (
	// CodeStyleNotFound indicates an unregistered style id.
	CodeStyleNotFound = "style_not_found"

	// CodeSourceNotFound indicates a source id with no tile template.
	CodeSourceNotFound = "source_not_found"

	// CodeTileNotFound indicates the upstream has no tile at the
	// requested coordinates.
	CodeTileNotFound = "tile_not_found"

	// CodeBadCoordinates indicates out-of-range z/x/y values.
	CodeBadCoordinates = "bad_coordinates"

	// CodeBadReference indicates a /ref segment that does not decode.
	CodeBadReference = "bad_reference"

	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeInvalidValue indicates a field has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeUpstreamError indicates an upstream failure.
	CodeUpstreamError = "upstream_error"

	// CodeUpstreamTimeout indicates an upstream timeout.
	CodeUpstreamTimeout = "upstream_timeout"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates an error response for missing resources (404).
func NewNotFoundError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError creates an error response for upstream failures (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeUpstreamError)
}

// NewGatewayTimeoutError creates an error response for upstream timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeUpstreamTimeout)
}

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return 400
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeRateLimitExceeded:
		return 429
	case ErrorTypeServerError:
		return 500
	case ErrorTypeBadGateway:
		return 502
	case ErrorTypeGatewayTimeout:
		return 504
	default:
		return 500
	}
}
