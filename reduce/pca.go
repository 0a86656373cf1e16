// Package reduce projects feature matrices into low-dimensional embeddings:
// linear reduction by principal component analysis (covariance + Jacobi
// eigendecomposition), an explained-variance elbow helper for picking the
// component count, and a seeded non-linear 2-D neighbor-graph layout for
// visualization distances.
//
// Determinism
//
//	PCA inherits the matrix package's eigenvector sign convention; the 2-D
//	layout is driven entirely by an explicit seed. Identical inputs and
//	seeds reproduce identical embeddings.
package reduce

import (
	"errors"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/matrix"
)

// Sentinel errors.
var (
	// ErrNilInput is returned for nil feature matrices or embeddings.
	ErrNilInput = errors.New("reduce: nil input")

	// ErrTooFewCells is returned when fewer than two cells are available.
	ErrTooFewCells = errors.New("reduce: too few cells")
)

// PCAOptions configures the linear reduction.
//
// Fields:
//   - Components — number of principal components retained (default 20);
//     clamped to the feature count.
//   - Tol/MaxIter — Jacobi convergence parameters (defaults from matrix).
type PCAOptions struct {
	Components int
	Tol        float64
	MaxIter    int
}

// DefaultPCAOptions returns 20 components with default Jacobi parameters.
func DefaultPCAOptions() PCAOptions { return PCAOptions{Components: 20} }

// PCAResult bundles the reduced embedding with diagnostics.
type PCAResult struct {
	// Embedding holds cell scores: cells × Components.
	Embedding *dataset.Embedding
	// Loadings holds the retained eigenvectors: features × Components.
	Loadings *matrix.Dense
	// ExplainedVariance[i] is the fraction of total variance captured by
	// component i (descending).
	ExplainedVariance []float64
}

// PCA reduces a (typically z-scored) feature matrix to its leading
// principal components. Complexity: O(cells·features² + features³).
func PCA(fm *dataset.FeatureMatrix, opts PCAOptions) (*PCAResult, error) {
	if fm == nil || fm.X == nil {
		return nil, ErrNilInput
	}
	if fm.X.Rows() < 2 {
		return nil, ErrTooFewCells
	}
	if opts.Components <= 0 {
		opts.Components = DefaultPCAOptions().Components
	}
	k := opts.Components
	if k > fm.X.Cols() {
		k = fm.X.Cols()
	}

	cov, _, err := matrix.Covariance(fm.X)
	if err != nil {
		return nil, err
	}
	values, vectors, err := matrix.Eigen(cov, opts.Tol, opts.MaxIter)
	if err != nil {
		return nil, err
	}

	// Total variance for the explained fraction; numeric noise can leave
	// tiny negative eigenvalues — clamp them to zero.
	var total float64
	for i, v := range values {
		if v < 0 {
			values[i] = 0
			continue
		}
		total += v
	}
	explained := make([]float64, k)
	for i := 0; i < k; i++ {
		if total > 0 {
			explained[i] = values[i] / total
		}
	}

	loadings, err := matrix.NewDense(fm.X.Cols(), k)
	if err != nil {
		return nil, err
	}
	for j := 0; j < fm.X.Cols(); j++ {
		for c := 0; c < k; c++ {
			v, errAt := vectors.At(j, c)
			if errAt != nil {
				return nil, errAt
			}
			if errSet := loadings.Set(j, c, v); errSet != nil {
				return nil, errSet
			}
		}
	}

	centered, _, err := matrix.CenterColumns(fm.X)
	if err != nil {
		return nil, err
	}
	scores, err := matrix.Mul(centered, loadings)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(fm.CellIDs))
	copy(ids, fm.CellIDs)
	return &PCAResult{
		Embedding:         &dataset.Embedding{X: scores, CellIDs: ids},
		Loadings:          loadings,
		ExplainedVariance: explained,
	}, nil
}

// Elbow returns the number of leading components to keep: the first point
// where the marginal explained-variance drop between successive components
// falls below tol (the curve "flattens"). Always returns at least 1 and at
// most len(explained).
func Elbow(explained []float64, tol float64) int {
	if len(explained) == 0 {
		return 0
	}
	for i := 1; i < len(explained); i++ {
		if explained[i-1]-explained[i] < tol {
			return i
		}
	}
	return len(explained)
}
