package convert

import "fmt"

// BadInputError indicates invalid conversion input, detected before any
// network access.
type BadInputError struct {
	Field  string
	Reason string
}

func (e *BadInputError) Error() string {
	return fmt.Sprintf("invalid conversion input %q: %s", e.Field, e.Reason)
}

// ParseError indicates the fetched document is not valid JSON. The partial
// document is never returned.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream style document is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
