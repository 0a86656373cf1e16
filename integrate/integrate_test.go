package integrate_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/integrate"
	"github.com/katalvlaran/scyto/matrix"
	"github.com/katalvlaran/scyto/neighbors"
	"github.com/katalvlaran/scyto/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plantedPair builds two coordinate matrices of n rows each: rows
// 0..planted-1 share a near-identical signature across both sides, the
// rest are independent uniform noise.
func plantedPair(rng *rand.Rand, n, planted, dims int) (*matrix.Dense, *matrix.Dense) {
	mk := func() [][]float64 {
		rows := make([][]float64, n)
		for i := range rows {
			row := make([]float64, dims)
			for j := range row {
				row[j] = rng.Float64() * 10
			}
			rows[i] = row
		}
		return rows
	}
	ra, rb := mk(), mk()
	for i := 0; i < planted; i++ {
		for j := 0; j < dims; j++ {
			base := rng.Float64() * 10
			ra[i][j] = base + rng.Float64()*0.01
			rb[i][j] = base + rng.Float64()*0.01
		}
	}
	a, _ := matrix.NewDenseFromRows(ra)
	b, _ := matrix.NewDenseFromRows(rb)
	return a, b
}

func TestFindAnchorsRecoversPlantedPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a, b := plantedPair(rng, 60, 20, 30)

	set, err := integrate.FindAnchors(a, b)
	require.NoError(t, err)
	require.NotEmpty(t, set.Anchors)
	assert.Equal(t, 5, set.K)
	assert.GreaterOrEqual(t, set.Raw, len(set.Anchors))

	recovered := 0
	for _, an := range set.Anchors {
		assert.Greater(t, an.Score, 0.0)
		assert.LessOrEqual(t, an.Score, 1.0)
		if an.A == an.B && an.A < 20 {
			recovered++
		}
	}
	assert.GreaterOrEqual(t, recovered, 15, "planted correspondences recovered")
}

func TestFindAnchorsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a, b := plantedPair(rng, 40, 10, 20)

	fwd, err := integrate.FindAnchors(a, b)
	require.NoError(t, err)
	bwd, err := integrate.FindAnchors(b, a)
	require.NoError(t, err)

	require.Equal(t, len(fwd.Anchors), len(bwd.Anchors))
	scores := make(map[[2]int]float64, len(fwd.Anchors))
	for _, an := range fwd.Anchors {
		scores[[2]int{an.A, an.B}] = an.Score
	}
	for _, an := range bwd.Anchors {
		got, ok := scores[[2]int{an.B, an.A}]
		require.True(t, ok, "anchor (%d,%d) missing in forward direction", an.B, an.A)
		assert.InDelta(t, an.Score, got, 1e-12)
	}
}

func TestFindAnchorsSampleTooSmall(t *testing.T) {
	a, _ := matrix.NewDenseFromRows([][]float64{{1, 2}})
	b, _ := matrix.NewDenseFromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})

	_, err := integrate.FindAnchors(a, b)
	assert.ErrorIs(t, err, integrate.ErrSampleTooSmall)
}

func TestFindAnchorsOptionViolation(t *testing.T) {
	a, _ := matrix.NewDenseFromRows([][]float64{{1, 2}, {3, 4}})

	_, err := integrate.FindAnchors(a, a, integrate.WithK(0))
	assert.ErrorIs(t, err, integrate.ErrOptionViolation)

	_, err = integrate.FindAnchors(a, a, integrate.WithMinScore(1.5))
	assert.ErrorIs(t, err, integrate.ErrOptionViolation)
}

// makeNorm wraps dense expression rows into a Normalized as LogNormalize
// would produce, with cell IDs <sample>_BC<i>.
func makeNorm(sample string, genes []string, rows [][]float64) *normalize.Normalized {
	idx := make(map[string]int, len(genes))
	for i, g := range genes {
		idx[g] = i
	}
	n := &normalize.Normalized{Genes: genes, GeneIndex: idx}
	for i, row := range rows {
		var sv dataset.SparseVec
		for j, v := range row {
			if v != 0 {
				sv.Idx = append(sv.Idx, j)
				sv.Val = append(sv.Val, v)
			}
		}
		n.Rows = append(n.Rows, sv)
		n.CellIDs = append(n.CellIDs, fmt.Sprintf("%s_BC%03d", sample, i))
	}
	return n
}

func geneNames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

// twoTypeSample builds n cells over the given genes where cell i carries
// the type i%2 signature: type 0 expresses around lo, type 1 around hi.
func twoTypeSample(rng *rand.Rand, sample string, genes []string, n int, lo, hi float64) *normalize.Normalized {
	rows := make([][]float64, n)
	for i := range rows {
		base := lo
		if i%2 == 1 {
			base = hi
		}
		row := make([]float64, len(genes))
		for j := range row {
			row[j] = base + rng.Float64() - 0.5
		}
		rows[i] = row
	}
	return makeNorm(sample, genes, rows)
}

// denseFromNorm lays the named genes of every row out as a dense matrix.
func denseFromNorm(t *testing.T, n *normalize.Normalized, genes []string) *matrix.Dense {
	t.Helper()
	rows := make([][]float64, len(n.Rows))
	for i, sv := range n.Rows {
		row := make([]float64, len(genes))
		byGene := make(map[int]float64, len(sv.Idx))
		for k, gi := range sv.Idx {
			byGene[gi] = sv.Val[k]
		}
		for j, g := range genes {
			row[j] = byGene[n.GeneIndex[g]]
		}
		rows[i] = row
	}
	m, err := matrix.NewDenseFromRows(rows)
	require.NoError(t, err)
	return m
}

// crossSampleMixing is the mean fraction of k nearest neighbors drawn from
// the other sample; rows [0, split) are sample one.
func crossSampleMixing(t *testing.T, emb *matrix.Dense, split, k int) float64 {
	t.Helper()
	hits, err := neighbors.Search(emb, emb, k, neighbors.Options{SkipSelf: true})
	require.NoError(t, err)
	var cross, total float64
	for i, ns := range hits {
		for _, h := range ns {
			if (i < split) != (h.Index < split) {
				cross++
			}
			total++
		}
	}
	return cross / total
}

func TestIntegrateTwoSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shared := geneNames("S", 50)
	genesA := append(append([]string(nil), shared...), geneNames("A", 10)...)
	genesB := append(append([]string(nil), shared...), geneNames("B", 10)...)

	// Sample two carries a constant +3 batch offset on every gene.
	s1 := twoTypeSample(rng, "s1", genesA, 60, 1, 8)
	s2 := twoTypeSample(rng, "s2", genesB, 60, 4, 11)
	inputs := []integrate.Input{
		{SampleID: "s1", Norm: s1, Features: genesA},
		{SampleID: "s2", Norm: s2, Features: genesB},
	}

	// Before integration the batch offset keeps the samples apart.
	pre, err := matrix.VStack(denseFromNorm(t, s1, shared), denseFromNorm(t, s2, shared))
	require.NoError(t, err)
	preMix := crossSampleMixing(t, pre, 60, 5)
	assert.Less(t, preMix, 0.05)

	res, err := integrate.Integrate(inputs)
	require.NoError(t, err)

	// Corrected space interleaves the samples.
	postMix := crossSampleMixing(t, res.FM.X, 60, 5)
	assert.Greater(t, postMix, 0.2)
	assert.Greater(t, postMix, preMix)

	// Every cell from every usable sample survives integration.
	assert.Equal(t, 120, res.FM.X.Rows())
	assert.Len(t, res.FM.CellIDs, 120)
	assert.Equal(t, shared, res.FM.Genes)
	assert.Equal(t, 50, res.Report.SharedFeatures)

	require.Len(t, res.Report.Pairs, 1)
	pr := res.Report.Pairs[0]
	assert.False(t, pr.Excluded)
	assert.Greater(t, pr.Anchors, 0)
	assert.GreaterOrEqual(t, pr.RawAnchors, pr.Anchors)

	// The two synthetic types stay separated in the corrected space.
	labels := make([]int, 120)
	for i := range labels {
		labels[i] = (i % 60) % 2
	}
	purity, err := neighbors.Purity(res.FM.X, labels, 5, neighbors.Options{})
	require.NoError(t, err)
	assert.Greater(t, purity, 0.85)
}

func TestIntegrateDeterministic(t *testing.T) {
	build := func() *integrate.Result {
		rng := rand.New(rand.NewSource(3))
		shared := geneNames("S", 40)
		inputs := []integrate.Input{
			{SampleID: "s1", Norm: twoTypeSample(rng, "s1", shared, 30, 1, 8), Features: shared},
			{SampleID: "s2", Norm: twoTypeSample(rng, "s2", shared, 30, 1, 8), Features: shared},
		}
		res, err := integrate.Integrate(inputs, integrate.WithWorkers(4))
		require.NoError(t, err)
		return res
	}
	r1, r2 := build(), build()
	require.Equal(t, r1.FM.CellIDs, r2.FM.CellIDs)
	for i := 0; i < r1.FM.X.Rows(); i++ {
		a, _ := r1.FM.X.Row(i)
		b, _ := r2.FM.X.Row(i)
		assert.Equal(t, a, b, "row %d", i)
	}
}

func TestIntegrateExcludesTinySample(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	shared := geneNames("S", 40)
	inputs := []integrate.Input{
		{SampleID: "big", Norm: twoTypeSample(rng, "big", shared, 40, 1, 8), Features: shared},
		{SampleID: "mid", Norm: twoTypeSample(rng, "mid", shared, 30, 1, 8), Features: shared},
		{SampleID: "tiny", Norm: twoTypeSample(rng, "tiny", shared, 2, 1, 8), Features: shared},
	}

	res, err := integrate.Integrate(inputs)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiny"}, res.Report.ExcludedSamples)
	assert.NotEmpty(t, res.Report.Warnings)
	assert.Equal(t, 70, res.FM.X.Rows())
	// Largest sample anchors the merged order.
	assert.Contains(t, res.FM.CellIDs[0], "big_")
}

func TestIntegrateNeedsTwoSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	shared := geneNames("S", 40)
	inputs := []integrate.Input{
		{SampleID: "only", Norm: twoTypeSample(rng, "only", shared, 30, 1, 8), Features: shared},
	}
	_, err := integrate.Integrate(inputs)
	assert.ErrorIs(t, err, integrate.ErrNeedTwoSamples)
}

func TestSharedFeaturesOrderAndFloor(t *testing.T) {
	inputs := []integrate.Input{
		{SampleID: "a", Features: []string{"g3", "g1", "g2", "g9"}},
		{SampleID: "b", Features: []string{"g2", "g3", "g7"}},
	}
	shared, err := integrate.SharedFeatures(inputs, 2)
	require.NoError(t, err)
	// Intersection keeps the first input's ranking.
	assert.Equal(t, []string{"g3", "g2"}, shared)

	_, err = integrate.SharedFeatures(inputs, 3)
	assert.ErrorIs(t, err, integrate.ErrVocabularyTooSmall)
}
