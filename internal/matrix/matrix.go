// Package matrix provides a dense real matrix with row and column labels,
// the shape all pipeline inputs and outputs share.
package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrRowMismatch is returned when two matrices that must share a drug
	// axis differ in row count or row identity.
	ErrRowMismatch = errors.New("matrix: row labels do not align")

	// ErrNotFinite is returned when a matrix that must be fully observed
	// still contains NaN or Inf entries.
	ErrNotFinite = errors.New("matrix: non-finite entries present")
)

// Labeled is a dense matrix with string labels on both axes. Rows are drugs
// throughout the pipeline; columns are proteins (affinity) or samples
// (response).
type Labeled struct {
	Data *mat.Dense
	Rows []string
	Cols []string
}

// New builds a Labeled matrix and validates that the label lengths match the
// data dimensions.
func New(data *mat.Dense, rows, cols []string) (*Labeled, error) {
	r, c := data.Dims()
	if len(rows) != r || len(cols) != c {
		return nil, fmt.Errorf("matrix: labels (%d rows, %d cols) do not match data %dx%d",
			len(rows), len(cols), r, c)
	}
	return &Labeled{Data: data, Rows: rows, Cols: cols}, nil
}

// Dims returns the row and column counts.
func (m *Labeled) Dims() (int, int) {
	return m.Data.Dims()
}

// Clone returns a deep copy; the pipeline never mutates caller inputs.
func (m *Labeled) Clone() *Labeled {
	return &Labeled{
		Data: mat.DenseCopyOf(m.Data),
		Rows: append([]string(nil), m.Rows...),
		Cols: append([]string(nil), m.Cols...),
	}
}

// ColIndex returns the position of the named column, or -1.
func (m *Labeled) ColIndex(name string) int {
	for i, c := range m.Cols {
		if c == name {
			return i
		}
	}
	return -1
}

// SelectCols returns a copy holding only the columns at the given indices,
// in the given order.
func (m *Labeled) SelectCols(idx []int) *Labeled {
	r, _ := m.Data.Dims()
	out := mat.NewDense(r, len(idx), nil)
	cols := make([]string, len(idx))
	for j, src := range idx {
		out.SetCol(j, mat.Col(nil, src, m.Data))
		cols[j] = m.Cols[src]
	}
	return &Labeled{Data: out, Rows: append([]string(nil), m.Rows...), Cols: cols}
}

// CheckAligned verifies that m and other have identical row labels in
// identical order.
func (m *Labeled) CheckAligned(other *Labeled) error {
	if len(m.Rows) != len(other.Rows) {
		return fmt.Errorf("%w: %d vs %d rows", ErrRowMismatch, len(m.Rows), len(other.Rows))
	}
	for i := range m.Rows {
		if m.Rows[i] != other.Rows[i] {
			return fmt.Errorf("%w: row %d is %q vs %q", ErrRowMismatch, i, m.Rows[i], other.Rows[i])
		}
	}
	return nil
}

// CheckFinite verifies that every entry is a finite number.
func (m *Labeled) CheckFinite() error {
	r, c := m.Data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.Data.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: entry (%s, %s) = %v", ErrNotFinite, m.Rows[i], m.Cols[j], v)
			}
		}
	}
	return nil
}

// AlignRows subsets and reorders both matrices to the drug IDs they share,
// in the row order of a. The returned matrices satisfy CheckAligned.
func AlignRows(a, b *Labeled) (*Labeled, *Labeled, error) {
	pos := make(map[string]int, len(b.Rows))
	for i, id := range b.Rows {
		pos[id] = i
	}

	var aIdx, bIdx []int
	for i, id := range a.Rows {
		if j, ok := pos[id]; ok {
			aIdx = append(aIdx, i)
			bIdx = append(bIdx, j)
		}
	}
	if len(aIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: no shared row labels", ErrRowMismatch)
	}

	return a.selectRows(aIdx), b.selectRows(bIdx), nil
}

func (m *Labeled) selectRows(idx []int) *Labeled {
	_, c := m.Data.Dims()
	out := mat.NewDense(len(idx), c, nil)
	rows := make([]string, len(idx))
	for i, src := range idx {
		out.SetRow(i, mat.Row(nil, src, m.Data))
		rows[i] = m.Rows[src]
	}
	return &Labeled{Data: out, Rows: rows, Cols: append([]string(nil), m.Cols...)}
}
