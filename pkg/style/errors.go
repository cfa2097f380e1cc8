package style

import "fmt"

// MalformedDocumentError indicates the upstream returned a payload that is
// not a JSON object and therefore cannot be rewritten safely.
type MalformedDocumentError struct {
	StyleID string
	Reason  string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("upstream style document for %q is malformed: %s", e.StyleID, e.Reason)
}

// BadReferenceError indicates a /ref path segment that does not decode to a
// URL this service could have minted.
type BadReferenceError struct {
	Encoded string
	Reason  string
}

func (e *BadReferenceError) Error() string {
	return fmt.Sprintf("bad proxied reference %q: %s", e.Encoded, e.Reason)
}
