// Package matrix: sentinel error set.
// Every public operation returns one of these sentinels (optionally wrapped
// with operation context via matrixErrorf); tests match them with errors.Is.
// Panics are reserved for programmer errors in private helpers.

package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrNilMatrix indicates that a nil *Dense was passed where a matrix is required.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrBadShape is returned when a requested shape is invalid (r<=0 or c<=0),
	// or when input rows are ragged.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates a row or column index outside valid bounds.
	// Public indexers (At/Set/Row) return this, they do not panic.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions,
	// e.g. Add with different shapes, or Mul where a.Cols != b.Rows.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNotSquare signals that a square matrix was required but the input wasn't.
	ErrNotSquare = errors.New("matrix: matrix is not square")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrEigenFailed indicates that the Jacobi routine did not converge
	// within the given tolerance and iteration limit.
	ErrEigenFailed = errors.New("matrix: eigen decomposition failed")
)

// matrixErrorf wraps err with the operation tag for uniform reporting.
// Use only when err != nil.
func matrixErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
