package m

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// WeightMatrix holds the connection weights between two adjacent layers. Row i is a
// neuron of the source layer, column j a neuron of the destination layer.
type WeightMatrix struct {
	d *mat.Dense
}

// NewWeightMatrix allocates a zeroed rows x cols matrix.
func NewWeightMatrix(rows, cols int) (*WeightMatrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("weight matrix %dx%d: %w", rows, cols, ErrInvalidShape)
	}
	return &WeightMatrix{d: mat.NewDense(rows, cols, nil)}, nil
}

// Rows returns the size of the source layer.
func (w *WeightMatrix) Rows() int {
	r, _ := w.d.Dims()
	return r
}

// Cols returns the size of the destination layer.
func (w *WeightMatrix) Cols() int {
	_, c := w.d.Dims()
	return c
}

func (w *WeightMatrix) inBounds(i, j int) bool {
	r, c := w.d.Dims()
	return i >= 0 && j >= 0 && i < r && j < c
}

// Set writes v at (i, j). Out of range indices leave the matrix untouched.
func (w *WeightMatrix) Set(i, j int, v float64) error {
	if !w.inBounds(i, j) {
		return &IndexError{Op: "set", Row: i, Col: j, Rows: w.Rows(), Cols: w.Cols()}
	}
	w.d.Set(i, j, v)
	return nil
}

// At returns the weight at (i, j), or zero and an *IndexError when out of range.
func (w *WeightMatrix) At(i, j int) (float64, error) {
	if !w.inBounds(i, j) {
		return 0, &IndexError{Op: "get", Row: i, Col: j, Rows: w.Rows(), Cols: w.Cols()}
	}
	return w.d.At(i, j), nil
}

// Clone returns a deep copy.
func (w *WeightMatrix) Clone() *WeightMatrix {
	return &WeightMatrix{d: mat.DenseCopyOf(w.d)}
}

// row exposes the backing storage of row i for in-place updates.
func (w *WeightMatrix) row(i int) []float64 {
	return w.d.RawRowView(i)
}
