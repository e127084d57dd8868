package survey

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	scigoErrors "github.com/YuminosukeSato/exoplanet/pkg/errors"
)

// Frame is a table over exactly the unified features, stored column-wise.
// Missing values are NaN.
type Frame struct {
	columns [NumFeatures][]float64
	n       int
}

// NewFrame creates an n-row frame with every value missing.
func NewFrame(n int) *Frame {
	f := &Frame{n: n}
	for j := range f.columns {
		col := make([]float64, n)
		for i := range col {
			col[i] = math.NaN()
		}
		f.columns[j] = col
	}
	return f
}

// NewFrameFromRows builds a frame from feature-ordered rows.
func NewFrameFromRows(rows [][]float64) (*Frame, error) {
	f := NewFrame(len(rows))
	for i, row := range rows {
		if len(row) != NumFeatures {
			return nil, scigoErrors.NewDimensionError("NewFrameFromRows", NumFeatures, len(row), 1)
		}
		for j, v := range row {
			f.columns[j][i] = v
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.n
}

// Column returns the live column of feature c. Writes are visible in the frame.
func (f *Frame) Column(c Feature) []float64 {
	return f.columns[c]
}

// Row returns a copy of row i in feature order.
func (f *Frame) Row(i int) []float64 {
	row := make([]float64, NumFeatures)
	for j := range f.columns {
		row[j] = f.columns[j][i]
	}
	return row
}

func (f *Frame) At(i int, c Feature) float64 {
	return f.columns[c][i]
}

func (f *Frame) Set(i int, c Feature, v float64) {
	f.columns[c][i] = v
}

// Append adds the rows of other below the rows of f.
func (f *Frame) Append(other *Frame) {
	for j := range f.columns {
		f.columns[j] = append(f.columns[j], other.columns[j]...)
	}
	f.n += other.n
}

// Select returns a new frame holding the given rows in the given order.
func (f *Frame) Select(indices []int) *Frame {
	out := &Frame{n: len(indices)}
	for j := range f.columns {
		col := make([]float64, len(indices))
		for k, i := range indices {
			col[k] = f.columns[j][i]
		}
		out.columns[j] = col
	}
	return out
}

// Dense copies the frame into an n×NumFeatures matrix.
func (f *Frame) Dense() (*mat.Dense, error) {
	if f.n == 0 {
		return nil, scigoErrors.NewValueError("Frame.Dense", "frame has no rows")
	}
	d := mat.NewDense(f.n, NumFeatures, nil)
	for j := range f.columns {
		d.SetCol(j, f.columns[j])
	}
	return d, nil
}

// MissingCount returns the number of NaN cells per feature.
func (f *Frame) MissingCount() [NumFeatures]int {
	var out [NumFeatures]int
	for j, col := range f.columns {
		for _, v := range col {
			if math.IsNaN(v) {
				out[j]++
			}
		}
	}
	return out
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(rows=%d, features=%d)", f.n, NumFeatures)
}
