package m

import (
	"errors"
	"fmt"
)

// Errors returned by the engine. Wrapped errors match them with errors.Is.
var (
	ErrInvalidShape   = errors.New("dimensions must be positive")
	ErrOutOfRange     = errors.New("index out of range")
	ErrTooFewLayers   = errors.New("MLP needs at least one hidden layer")
	ErrNotInitialized = errors.New("MLP is not initialized")
	ErrInputSize      = errors.New("input is the wrong size")
	ErrTargetSize     = errors.New("target is the wrong size")
	ErrNotModel       = errors.New("stream is not a neural network model")
	ErrMalformedModel = errors.New("malformed model")
)

// IndexError reports an access outside a weight matrix or the layer list.
type IndexError struct {
	Op       string
	Row, Col int
	Rows     int
	Cols     int
}

func (e *IndexError) Error() string {
	if e.Op == "layer" {
		return fmt.Sprintf("layer does not exist: %d / %d", e.Row, e.Rows)
	}
	return fmt.Sprintf("out of bounds %s value %d, %d (shape %dx%d)", e.Op, e.Row, e.Col, e.Rows, e.Cols)
}

func (e *IndexError) Unwrap() error { return ErrOutOfRange }
