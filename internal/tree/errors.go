package tree

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/campaigngrid/internal/coords"
)

// ErrInvalidConfig marks builder configuration errors.
var ErrInvalidConfig = errors.New("invalid tree configuration")

// CoordError is a fatal build error tied to the coordinate that caused it,
// so that a human can find the offending configuration line.
type CoordError struct {
	Coord coords.Coord
	Err   error
}

func (e *CoordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Coord, e.Err)
}

func (e *CoordError) Unwrap() error { return e.Err }
