package matrix

import (
	"fmt"
	"math"
	"strings"
)

// Dense is a row-major matrix of float64 values.
// r is rows, c is columns, and data holds r*c elements in row-major order.
type Dense struct {
	r, c int
	data []float64
}

// NewDense creates an r×c Dense matrix initialized to zeros.
// Returns ErrBadShape when rows or cols is non-positive.
// Complexity: O(r·c) time and memory.
func NewDense(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, matrixErrorf("NewDense", ErrBadShape)
	}
	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols)}, nil
}

// NewDenseFromRows builds a Dense from a non-empty, rectangular slice of rows.
// Returns ErrBadShape on empty input or ragged rows, ErrNaNInf on non-finite
// values. The input slices are copied; the result owns its storage.
// Complexity: O(r·c).
func NewDenseFromRows(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, matrixErrorf("NewDenseFromRows", ErrBadShape)
	}
	c := len(rows[0])
	m := &Dense{r: len(rows), c: c, data: make([]float64, len(rows)*c)}
	for i, row := range rows {
		if len(row) != c {
			return nil, matrixErrorf("NewDenseFromRows", ErrBadShape)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, matrixErrorf("NewDenseFromRows", ErrNaNInf)
			}
			m.data[i*c+j] = v
		}
	}
	return m, nil
}

// Rows returns the number of rows. Complexity: O(1).
func (m *Dense) Rows() int { return m.r }

// Cols returns the number of columns. Complexity: O(1).
func (m *Dense) Cols() int { return m.c }

// indexOf computes the flat index for (row, col) or returns ErrOutOfRange.
func (m *Dense) indexOf(row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, fmt.Errorf("Dense(%d,%d): %w", row, col, ErrOutOfRange)
	}
	return row*m.c + col, nil
}

// At retrieves the element at (row, col) or ErrOutOfRange. Complexity: O(1).
func (m *Dense) At(row, col int) (float64, error) {
	idx, err := m.indexOf(row, col)
	if err != nil {
		return 0, err
	}
	return m.data[idx], nil
}

// Set assigns v at (row, col). Returns ErrOutOfRange for bad indices and
// ErrNaNInf for non-finite values. Complexity: O(1).
func (m *Dense) Set(row, col int, v float64) error {
	idx, err := m.indexOf(row, col)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return matrixErrorf("Dense.Set", ErrNaNInf)
	}
	m.data[idx] = v
	return nil
}

// Row returns a zero-copy view of row i backed by the matrix storage.
// Mutating the returned slice mutates the matrix; callers needing a stable
// snapshot must copy. Returns ErrOutOfRange for an invalid index.
// Complexity: O(1).
func (m *Dense) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.r {
		return nil, fmt.Errorf("Dense.Row(%d): %w", i, ErrOutOfRange)
	}
	return m.data[i*m.c : (i+1)*m.c], nil
}

// SetRow copies v into row i. Returns ErrOutOfRange for a bad index and
// ErrDimensionMismatch when len(v) != Cols. Complexity: O(c).
func (m *Dense) SetRow(i int, v []float64) error {
	if i < 0 || i >= m.r {
		return fmt.Errorf("Dense.SetRow(%d): %w", i, ErrOutOfRange)
	}
	if len(v) != m.c {
		return matrixErrorf("Dense.SetRow", ErrDimensionMismatch)
	}
	copy(m.data[i*m.c:(i+1)*m.c], v)
	return nil
}

// Clone returns a deep copy. Complexity: O(r·c).
func (m *Dense) Clone() *Dense {
	cp := make([]float64, len(m.data))
	copy(cp, m.data)
	return &Dense{r: m.r, c: m.c, data: cp}
}

// VStack stacks a on top of b (both with equal column counts) into a fresh
// Dense. Returns ErrNilMatrix or ErrDimensionMismatch on bad input.
// Complexity: O((ra+rb)·c).
func VStack(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf("VStack", ErrNilMatrix)
	}
	if a.c != b.c {
		return nil, matrixErrorf("VStack", ErrDimensionMismatch)
	}
	out := &Dense{r: a.r + b.r, c: a.c, data: make([]float64, (a.r+b.r)*a.c)}
	copy(out.data, a.data)
	copy(out.data[len(a.data):], b.data)
	return out, nil
}

// String implements fmt.Stringer for debugging.
func (m *Dense) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dense(%dx%d)", m.r, m.c)
	if m.r*m.c <= 64 {
		sb.WriteByte('\n')
		for i := 0; i < m.r; i++ {
			for j := 0; j < m.c; j++ {
				fmt.Fprintf(&sb, "% .4f ", m.data[i*m.c+j])
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
