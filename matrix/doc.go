// Package matrix provides the dense linear-algebra core used by every
// numeric stage of the pipeline: a row-major Dense type, canonical kernels
// (Add, Sub, Mul, Transpose, Scale, MatVec), column statistics (means,
// standard deviations, centering, covariance) and a cyclic Jacobi
// eigendecomposition for symmetric matrices.
//
// What
//
//   - Dense: flat row-major float64 storage, O(1) element access,
//     zero-copy row views for tight consumer loops.
//   - Kernels allocate fresh results; operands are never mutated.
//   - Statistics follow a fixed degenerate-value policy: zero-variance
//     columns z-score to zero, never NaN.
//   - Eigen sorts eigenpairs by descending eigenvalue and fixes each
//     eigenvector's sign so its largest-magnitude entry is non-negative,
//     making decompositions reproducible across runs.
//
// Determinism
//
//	All loops traverse in fixed i→j order; no randomness anywhere in this
//	package. Identical inputs always produce bit-identical outputs.
//
// Errors
//
//	Sentinel errors only (ErrNilMatrix, ErrBadShape, ErrOutOfRange,
//	ErrDimensionMismatch, ErrNotSquare, ErrNaNInf, ErrEigenFailed),
//	matched with errors.Is. Public entry points never panic on
//	user-triggered conditions.
//
// Complexity (r×c operands)
//
//   - Element access: O(1)
//   - Kernels: O(r·c) except Mul (O(r·c·k)) and Covariance (O(r·c²))
//   - Eigen: O(n³) per sweep, at most MaxIter sweeps
package matrix
