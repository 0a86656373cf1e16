package matrix

import (
	"math"
	"sort"
)

const opEigen = "Eigen"

// DefaultEigenTol is the off-diagonal Frobenius tolerance used when a
// non-positive tolerance is supplied.
const DefaultEigenTol = 1e-10

// DefaultEigenMaxIter bounds the number of full Jacobi sweeps.
const DefaultEigenMaxIter = 100

// Eigen computes the eigendecomposition of a symmetric matrix A using
// cyclic Jacobi rotations.
//
// Returns eigenvalues sorted in descending order and the matching
// eigenvectors as columns of the returned Dense. Each eigenvector's sign is
// fixed so that its largest-magnitude entry is non-negative, which makes the
// decomposition reproducible (eigenvectors are otherwise defined only up to
// sign). Ties between equal eigenvalues are broken by original column index.
//
// Errors:
//   - ErrNilMatrix / ErrNotSquare for invalid input.
//   - ErrEigenFailed when the off-diagonal norm does not drop below tol
//     within maxIter sweeps.
//
// Complexity: O(n³) per sweep; typically converges in well under
// DefaultEigenMaxIter sweeps for covariance-style inputs.
func Eigen(a *Dense, tol float64, maxIter int) ([]float64, *Dense, error) {
	if a == nil {
		return nil, nil, matrixErrorf(opEigen, ErrNilMatrix)
	}
	if a.r != a.c {
		return nil, nil, matrixErrorf(opEigen, ErrNotSquare)
	}
	if tol <= 0 {
		tol = DefaultEigenTol
	}
	if maxIter <= 0 {
		maxIter = DefaultEigenMaxIter
	}

	n := a.r
	// Work on a copy; accumulate rotations into v (starts as identity).
	w := a.Clone()
	v := &Dense{r: n, c: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		v.data[i*n+i] = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		off := offDiagNorm(w)
		if off < tol {
			return sortEigenPairs(w, v)
		}
		// One cyclic sweep over the strict upper triangle.
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				apq := w.data[p*n+q]
				if math.Abs(apq) == 0 {
					continue
				}
				app := w.data[p*n+p]
				aqq := w.data[q*n+q]

				// Rotation angle via the stable tau formulation.
				tau := (aqq - app) / (2 * apq)
				var t float64
				if tau >= 0 {
					t = 1 / (tau + math.Sqrt(1+tau*tau))
				} else {
					t = -1 / (-tau + math.Sqrt(1+tau*tau))
				}
				c := 1 / math.Sqrt(1+t*t)
				s := t * c

				rotate(w, v, p, q, c, s)
			}
		}
	}
	if offDiagNorm(w) < tol {
		return sortEigenPairs(w, v)
	}
	return nil, nil, matrixErrorf(opEigen, ErrEigenFailed)
}

// offDiagNorm returns the Frobenius norm of the strict off-diagonal part.
func offDiagNorm(w *Dense) float64 {
	n := w.r
	var s float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := w.data[i*n+j]
			s += 2 * v * v
		}
	}
	return math.Sqrt(s)
}

// rotate applies the Jacobi rotation J(p,q,θ) to w (two-sided) and
// accumulates it into v (one-sided).
func rotate(w, v *Dense, p, q int, c, s float64) {
	n := w.r
	for k := 0; k < n; k++ {
		wkp := w.data[k*n+p]
		wkq := w.data[k*n+q]
		w.data[k*n+p] = c*wkp - s*wkq
		w.data[k*n+q] = s*wkp + c*wkq
	}
	for k := 0; k < n; k++ {
		wpk := w.data[p*n+k]
		wqk := w.data[q*n+k]
		w.data[p*n+k] = c*wpk - s*wqk
		w.data[q*n+k] = s*wpk + c*wqk
	}
	for k := 0; k < n; k++ {
		vkp := v.data[k*n+p]
		vkq := v.data[k*n+q]
		v.data[k*n+p] = c*vkp - s*vkq
		v.data[k*n+q] = s*vkp + c*vkq
	}
}

// sortEigenPairs extracts the diagonal of w as eigenvalues, orders pairs by
// descending eigenvalue (stable on original index) and applies the sign
// convention to each eigenvector column.
func sortEigenPairs(w, v *Dense) ([]float64, *Dense, error) {
	n := w.r
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return w.data[idx[a]*n+idx[a]] > w.data[idx[b]*n+idx[b]]
	})

	values := make([]float64, n)
	vectors := &Dense{r: n, c: n, data: make([]float64, n*n)}
	for out, in := range idx {
		values[out] = w.data[in*n+in]
		// Locate the largest-magnitude entry to fix the sign.
		sign := 1.0
		best := 0.0
		for k := 0; k < n; k++ {
			if av := math.Abs(v.data[k*n+in]); av > best {
				best = av
				if v.data[k*n+in] < 0 {
					sign = -1.0
				} else {
					sign = 1.0
				}
			}
		}
		for k := 0; k < n; k++ {
			vectors.data[k*n+out] = sign * v.data[k*n+in]
		}
	}
	return values, vectors, nil
}
