// Package gradient converts raw RAS+B gradient arrays into the tabular
// representation expected by diffusion reconstruction backends: a vector of
// b-values alongside an N×3 matrix of unit direction vectors.
package gradient

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidGradient indicates a gradient array whose shape cannot be
// interpreted as RAS+B data. Use errors.Is() to check for it.
var ErrInvalidGradient = errors.New("gradient: invalid gradient information")

// Table is a gradient table: one diffusion-sensitizing direction and
// b-value per measurement.
type Table struct {
	bvals []float64
	bvecs *mat.Dense // N×3, one direction per row
}

// Len returns the number of measurements in the table.
func (t *Table) Len() int {
	return len(t.bvals)
}

// Bvals returns the b-value of each measurement.
func (t *Table) Bvals() []float64 {
	return t.bvals
}

// Bvecs returns the N×3 matrix of diffusion directions, one row per
// measurement.
func (t *Table) Bvecs() *mat.Dense {
	return t.bvecs
}

// FromRASB builds a Table from a RAS+B gradient array of shape (4, N) or
// (N, 4): rows 0-2 hold the direction components and row 3 the b-values.
// Input with the 4-valued axis second is transposed. A literal 4×4 input is
// ambiguous between the two orientations; it is accepted as-is after a
// warning, matching how acquisition pipelines hand these tables around.
func FromRASB(values [][]float64) (*Table, error) {
	rows := len(values)
	if rows == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidGradient)
	}
	cols := len(values[0])
	for i, row := range values {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: ragged array (row %d has %d values, want %d)",
				ErrInvalidGradient, i, len(row), cols)
		}
	}
	if cols == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidGradient)
	}

	if rows == 4 && cols == 4 {
		fmt.Println("Warning: gradient table is 4x4, make sure it is not transposed")
	} else if rows != 4 {
		if cols != 4 {
			return nil, fmt.Errorf("%w: shape (%d, %d) has no RAS+B axis",
				ErrInvalidGradient, rows, cols)
		}
		values = transpose(values)
		rows, cols = cols, rows
	}

	n := cols
	bvals := make([]float64, n)
	copy(bvals, values[3])

	bvecs := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		bvecs.Set(i, 0, values[0][i])
		bvecs.Set(i, 1, values[1][i])
		bvecs.Set(i, 2, values[2][i])
	}

	return &Table{bvals: bvals, bvecs: bvecs}, nil
}

// FromRASBVector builds a single-measurement Table from a flat 4-element
// gradient (gx, gy, gz, b).
func FromRASBVector(v []float64) (*Table, error) {
	if len(v) != 4 {
		return nil, fmt.Errorf("%w: got %d values, want 4", ErrInvalidGradient, len(v))
	}
	column := make([][]float64, 4)
	for i := range column {
		column[i] = []float64{v[i]}
	}
	return FromRASB(column)
}

func transpose(values [][]float64) [][]float64 {
	rows := len(values)
	cols := len(values[0])
	out := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = make([]float64, rows)
		for j := 0; j < rows; j++ {
			out[i][j] = values[j][i]
		}
	}
	return out
}
