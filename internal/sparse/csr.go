// Package sparse provides the row-major sparse matrix that carries feature
// blocks between vectorizers and the composite.
package sparse

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when matrices cannot be combined because
// their shapes disagree.
var ErrDimensionMismatch = errors.New("sparse: dimension mismatch")

// Matrix is a compressed sparse row matrix with float32 values.
// Column indices inside each row are strictly increasing and zeros are not stored.
type Matrix struct {
	rows    int
	cols    int
	indptr  []int
	indices []int
	data    []float32
}

// Zeros returns an empty rows x cols matrix.
func Zeros(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, indptr: make([]int, rows+1)}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored non-zero entries.
func (m *Matrix) NNZ() int { return len(m.data) }

// Row returns the column indices and values stored for row i.
// The returned slices alias the matrix and must not be modified.
func (m *Matrix) Row(i int) ([]int, []float32) {
	start, end := m.indptr[i], m.indptr[i+1]
	return m.indices[start:end], m.data[start:end]
}

// At returns the value at (i, j).
func (m *Matrix) At(i, j int) float32 {
	idx, vals := m.Row(i)
	k := sort.SearchInts(idx, j)
	if k < len(idx) && idx[k] == j {
		return vals[k]
	}
	return 0
}

// Equal reports whether both matrices have the same shape and entries.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.rows != o.rows || m.cols != o.cols || len(m.data) != len(o.data) {
		return false
	}
	for i := range m.indptr {
		if m.indptr[i] != o.indptr[i] {
			return false
		}
	}
	for k := range m.data {
		if m.indices[k] != o.indices[k] || m.data[k] != o.data[k] {
			return false
		}
	}
	return true
}

// ToDense expands the matrix into a gonum dense matrix.
// An empty shape yields an empty (zero value) matrix.
func (m *Matrix) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		idx, vals := m.Row(i)
		for k, j := range idx {
			d.Set(i, j, float64(vals[k]))
		}
	}
	return d
}

// FromDense builds a sparse matrix from any gonum matrix, dropping zeros.
func FromDense(d mat.Matrix) *Matrix {
	r, c := d.Dims()
	b := NewBuilder(c)
	for i := 0; i < r; i++ {
		row := make(map[int]float32)
		for j := 0; j < c; j++ {
			if v := d.At(i, j); v != 0 {
				row[j] = float32(v)
			}
		}
		b.AddRow(row)
	}
	return b.Build()
}

// String renders a short description, not the entries.
func (m *Matrix) String() string {
	return fmt.Sprintf("sparse.Matrix(%dx%d, nnz=%d)", m.rows, m.cols, len(m.data))
}

// Builder assembles a Matrix one row at a time.
type Builder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float32
}

// NewBuilder creates a builder for rows of the given width.
func NewBuilder(cols int) *Builder {
	return &Builder{cols: cols, indptr: []int{0}}
}

// AddRow appends a row given as column -> value. Zero values and columns
// outside [0, cols) are ignored.
func (b *Builder) AddRow(row map[int]float32) {
	cols := make([]int, 0, len(row))
	for j, v := range row {
		if v == 0 || j < 0 || j >= b.cols {
			continue
		}
		cols = append(cols, j)
	}
	sort.Ints(cols)
	for _, j := range cols {
		b.indices = append(b.indices, j)
		b.data = append(b.data, row[j])
	}
	b.indptr = append(b.indptr, len(b.data))
}

// Build returns the assembled matrix. The builder must not be reused.
func (b *Builder) Build() *Matrix {
	return &Matrix{
		rows:    len(b.indptr) - 1,
		cols:    b.cols,
		indptr:  b.indptr,
		indices: b.indices,
		data:    b.data,
	}
}

// HStack concatenates matrices left to right. Every block must have the same
// number of rows. With no blocks the result is nil.
func HStack(blocks ...*Matrix) (*Matrix, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	rows := blocks[0].rows
	cols, nnz := 0, 0
	for i, blk := range blocks {
		if blk.rows != rows {
			return nil, fmt.Errorf("%w: block %d has %d rows, expected %d", ErrDimensionMismatch, i, blk.rows, rows)
		}
		cols += blk.cols
		nnz += len(blk.data)
	}
	out := &Matrix{
		rows:    rows,
		cols:    cols,
		indptr:  make([]int, rows+1),
		indices: make([]int, 0, nnz),
		data:    make([]float32, 0, nnz),
	}
	for i := 0; i < rows; i++ {
		offset := 0
		for _, blk := range blocks {
			idx, vals := blk.Row(i)
			for k, j := range idx {
				out.indices = append(out.indices, j+offset)
				out.data = append(out.data, vals[k])
			}
			offset += blk.cols
		}
		out.indptr[i+1] = len(out.data)
	}
	return out, nil
}
