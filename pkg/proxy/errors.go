package proxy

import "fmt"

// BadCoordinatesError indicates tile coordinates outside the valid range.
// It is returned before any upstream request is made.
type BadCoordinatesError struct {
	Z, X, Y int
	Reason  string
}

func (e *BadCoordinatesError) Error() string {
	return fmt.Sprintf("invalid tile coordinates %d/%d/%d: %s", e.Z, e.X, e.Y, e.Reason)
}

// TileNotFoundError indicates the upstream has no tile at coordinates that
// were themselves valid. Empty ocean tiles at high zoom commonly 404.
type TileNotFoundError struct {
	StyleID  string
	SourceID string
	Z, X, Y  int
}

func (e *TileNotFoundError) Error() string {
	return fmt.Sprintf("no tile at %s/%s/%d/%d/%d", e.StyleID, e.SourceID, e.Z, e.X, e.Y)
}
