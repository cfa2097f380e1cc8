package registry

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a style id or source id is not registered.
// Callers turn it into a 404 with the list of known ids; the error itself
// carries only the missing identifiers.
type NotFoundError struct {
	// StyleID is the style id that was looked up.
	StyleID string

	// SourceID is set when the style exists but the source id has no
	// tile template (and no default template is registered).
	SourceID string
}

func (e *NotFoundError) Error() string {
	if e.SourceID != "" {
		return fmt.Sprintf("style %q has no tile template for source %q", e.StyleID, e.SourceID)
	}
	return fmt.Sprintf("style %q is not registered", e.StyleID)
}

// IsNotFound reports whether err is a registry NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
