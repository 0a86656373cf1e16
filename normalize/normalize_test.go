package normalize_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, genes []string, rows [][]float64) *dataset.Dataset {
	t.Helper()
	cells := make([]dataset.Cell, len(rows))
	for i, row := range rows {
		var idx []int
		var val []float64
		for gi, v := range row {
			if v != 0 {
				idx = append(idx, gi)
				val = append(val, v)
			}
		}
		cells[i] = dataset.Cell{
			ID:       fmt.Sprintf("P01_C%03d", i),
			SampleID: "P01",
			Counts:   dataset.SparseVec{Idx: idx, Val: val},
		}
	}
	ds, err := dataset.New(genes, cells, nil)
	require.NoError(t, err)
	return ds
}

// TestLogNormalize_Values verifies the transform against a hand computation.
func TestLogNormalize_Values(t *testing.T) {
	ds := buildDataset(t, []string{"A", "B"}, [][]float64{{3, 1}})

	n, err := normalize.LogNormalize(ds, normalize.Options{ScaleFactor: 4})
	require.NoError(t, err)

	// total=4, factor=1: log1p(3)=1.386..., log1p(1)=0.693...
	require.Len(t, n.Rows[0].Val, 2)
	assert.InDelta(t, math.Log1p(3), n.Rows[0].Val[0], 1e-12)
	assert.InDelta(t, math.Log1p(1), n.Rows[0].Val[1], 1e-12)
}

// TestLogNormalize_ZeroTotal pins the degenerate-cell policy: a zero-count
// cell maps to an all-zero row (no NaN/Inf) and stays zero on re-application.
func TestLogNormalize_ZeroTotal(t *testing.T) {
	ds := buildDataset(t, []string{"A", "B"}, [][]float64{
		{0, 0},
		{2, 2},
	})

	n, err := normalize.LogNormalize(ds, normalize.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, n.Rows[0].NNZ(), "zero-total cell yields empty row")
	for _, v := range n.Rows[1].Val {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

// TestFindVariableFeatures ranks a planted high-dispersion gene first.
func TestFindVariableFeatures(t *testing.T) {
	// GHI flips between 0 and 40 (high dispersion); the others are flat.
	genes := []string{"AAA", "BBB", "GHI", "CCC"}
	rows := make([][]float64, 40)
	for i := range rows {
		r := []float64{10, 10, 0, 10}
		if i%2 == 0 {
			r[2] = 40
		}
		rows[i] = r
	}
	ds := buildDataset(t, genes, rows)
	n, err := normalize.LogNormalize(ds, normalize.DefaultOptions())
	require.NoError(t, err)

	opts := normalize.DefaultFeatureOptions()
	opts.NFeatures = 2
	opts.MaxMean = 100 // keep everything mean-wise
	opts.MinDispersion = 0.0
	feats, err := normalize.FindVariableFeatures(n, opts)
	require.NoError(t, err)
	require.NotEmpty(t, feats)
	assert.Equal(t, "GHI", feats[0], "planted variable gene must rank first")
}

// TestFindVariableFeatures_NoQualifiers verifies the explicit failure mode.
func TestFindVariableFeatures_NoQualifiers(t *testing.T) {
	ds := buildDataset(t, []string{"A", "B"}, [][]float64{{1, 1}, {1, 1}, {1, 1}})
	n, err := normalize.LogNormalize(ds, normalize.DefaultOptions())
	require.NoError(t, err)

	opts := normalize.DefaultFeatureOptions()
	opts.MinDispersion = 99 // impossible cutoff
	_, err = normalize.FindVariableFeatures(n, opts)
	assert.ErrorIs(t, err, normalize.ErrNoVariableFeatures)
}

// TestScale verifies z-scoring, clipping and the zero-variance policy.
func TestScale(t *testing.T) {
	ds := buildDataset(t, []string{"A", "B"}, [][]float64{
		{1, 5},
		{2, 5},
		{3, 5},
	})
	n, err := normalize.LogNormalize(ds, normalize.DefaultOptions())
	require.NoError(t, err)

	fm, err := normalize.Scale(n, []string{"A", "B"}, normalize.DefaultScaleOptions())
	require.NoError(t, err)
	require.Equal(t, 3, fm.X.Rows())
	require.Equal(t, 2, fm.X.Cols())

	// Column A: strictly increasing counts with identical totals per row?
	// Totals differ, so just assert finite z-scores with zero column mean.
	var colSum float64
	for i := 0; i < 3; i++ {
		v, errAt := fm.X.At(i, 0)
		require.NoError(t, errAt)
		require.False(t, math.IsNaN(v))
		colSum += v
	}
	assert.InDelta(t, 0, colSum, 1e-9, "z-scored column sums to zero")

	_, err = normalize.Scale(n, []string{"MISSING"}, normalize.DefaultScaleOptions())
	assert.ErrorIs(t, err, normalize.ErrUnknownFeature)
}
