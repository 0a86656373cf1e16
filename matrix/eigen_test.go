package matrix_test

import (
	"testing"

	"github.com/katalvlaran/scyto/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEigen_Diagonal verifies that eigenvalues of a diagonal matrix come out
// sorted in descending order with identity-like eigenvectors.
func TestEigen_Diagonal(t *testing.T) {
	a := mustDense(t, [][]float64{
		{1, 0, 0},
		{0, 5, 0},
		{0, 0, 3},
	})

	values, vectors, err := matrix.Eigen(a, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 3, 1}, values)

	// First eigenvector should pick out the middle coordinate.
	v10, _ := vectors.At(1, 0)
	assert.InDelta(t, 1.0, v10, 1e-9)
}

// TestEigen_Symmetric2x2 checks a classic analytic case:
// [[2,1],[1,2]] has eigenvalues 3 and 1.
func TestEigen_Symmetric2x2(t *testing.T) {
	a := mustDense(t, [][]float64{{2, 1}, {1, 2}})

	values, vectors, err := matrix.Eigen(a, 1e-12, 50)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, values[0], 1e-9)
	assert.InDelta(t, 1.0, values[1], 1e-9)

	// Eigenvector for λ=3 is (1,1)/√2 after the sign convention.
	v00, _ := vectors.At(0, 0)
	v10, _ := vectors.At(1, 0)
	assert.InDelta(t, v00, v10, 1e-9)
	assert.Greater(t, v00, 0.0, "sign convention: dominant entry non-negative")
}

// TestEigen_Reconstruction verifies A·v = λ·v for every pair.
func TestEigen_Reconstruction(t *testing.T) {
	a := mustDense(t, [][]float64{
		{4, 1, 0},
		{1, 3, 1},
		{0, 1, 2},
	})

	values, vectors, err := matrix.Eigen(a, 1e-12, 100)
	require.NoError(t, err)

	for k := 0; k < 3; k++ {
		v := make([]float64, 3)
		for i := 0; i < 3; i++ {
			vi, errAt := vectors.At(i, k)
			require.NoError(t, errAt)
			v[i] = vi
		}
		av, errMV := matrix.MatVec(a, v)
		require.NoError(t, errMV)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, values[k]*v[i], av[i], 1e-8, "A·v == λ·v")
		}
	}
}

// TestEigen_NotSquare verifies the shape guard.
func TestEigen_NotSquare(t *testing.T) {
	a := mustDense(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	_, _, err := matrix.Eigen(a, 0, 0)
	assert.ErrorIs(t, err, matrix.ErrNotSquare)
}
