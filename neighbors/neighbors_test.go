package neighbors_test

import (
	"testing"

	"github.com/katalvlaran/scyto/matrix"
	"github.com/katalvlaran/scyto/neighbors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFromRows(rows)
	require.NoError(t, err)
	return m
}

// TestSearch_Basic verifies ordering and exact distances on a line.
func TestSearch_Basic(t *testing.T) {
	refs := dense(t, [][]float64{{0}, {1}, {4}, {10}})
	queries := dense(t, [][]float64{{0.6}})

	hits, err := neighbors.Search(queries, refs, 2, neighbors.Options{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Len(t, hits[0], 2)
	assert.Equal(t, 1, hits[0][0].Index)
	assert.InDelta(t, 0.4, hits[0][0].Dist, 1e-12)
	assert.Equal(t, 0, hits[0][1].Index)
	assert.InDelta(t, 0.6, hits[0][1].Dist, 1e-12)
}

// TestSearch_TieBreak pins the deterministic index tie-break.
func TestSearch_TieBreak(t *testing.T) {
	refs := dense(t, [][]float64{{1}, {-1}, {1}})
	queries := dense(t, [][]float64{{0}})

	hits, err := neighbors.Search(queries, refs, 3, neighbors.Options{})
	require.NoError(t, err)
	idx := []int{hits[0][0].Index, hits[0][1].Index, hits[0][2].Index}
	assert.Equal(t, []int{0, 1, 2}, idx, "equal distances order by index")
}

// TestSearch_SkipSelfAndClamp covers self-exclusion and k clamping.
func TestSearch_SkipSelfAndClamp(t *testing.T) {
	emb := dense(t, [][]float64{{0}, {1}, {2}})

	hits, err := neighbors.Search(emb, emb, 10, neighbors.Options{SkipSelf: true})
	require.NoError(t, err)
	require.Len(t, hits[0], 2, "k clamps to n-1 with SkipSelf")
	assert.Equal(t, 1, hits[0][0].Index)
	for _, ns := range hits {
		for _, n := range ns {
			assert.NotEqual(t, -1, n.Index)
		}
	}

	_, err = neighbors.Search(emb, emb, 0, neighbors.Options{})
	assert.ErrorIs(t, err, neighbors.ErrBadK)
}

// TestSearch_DimensionMismatch verifies the shape guard.
func TestSearch_DimensionMismatch(t *testing.T) {
	a := dense(t, [][]float64{{0, 1}})
	b := dense(t, [][]float64{{0}})
	_, err := neighbors.Search(a, b, 1, neighbors.Options{})
	assert.ErrorIs(t, err, neighbors.ErrDimensionMismatch)
}

// TestSearch_Parallel verifies worker-count independence of results.
func TestSearch_Parallel(t *testing.T) {
	rows := make([][]float64, 50)
	for i := range rows {
		rows[i] = []float64{float64(i % 7), float64(i % 11)}
	}
	emb := dense(t, rows)

	serial, err := neighbors.Search(emb, emb, 5, neighbors.Options{Workers: 1, SkipSelf: true})
	require.NoError(t, err)
	parallel, err := neighbors.Search(emb, emb, 5, neighbors.Options{Workers: 8, SkipSelf: true})
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

// TestPurity distinguishes separated clusters from mixed labels.
func TestPurity(t *testing.T) {
	emb := dense(t, [][]float64{{0}, {0.1}, {0.2}, {10}, {10.1}, {10.2}})

	pure, err := neighbors.Purity(emb, []int{0, 0, 0, 1, 1, 1}, 2, neighbors.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, pure, "separated clusters are fully pure")

	mixed, err := neighbors.Purity(emb, []int{0, 1, 0, 1, 0, 1}, 2, neighbors.Options{})
	require.NoError(t, err)
	assert.Less(t, mixed, pure)

	_, err = neighbors.Purity(emb, []int{0}, 2, neighbors.Options{})
	assert.ErrorIs(t, err, neighbors.ErrBadLabels)
}
