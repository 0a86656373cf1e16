package dataset_test

import (
	"strings"
	"testing"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countsHeader = "cell\tgene\tcount\n"

// TestLoad_Basic loads two samples and checks grouping, vocabulary order
// and sparse count assembly.
func TestLoad_Basic(t *testing.T) {
	counts := countsHeader +
		"P01_AAAC\tCD3D\t4\n" +
		"P01_AAAC\tMT-CO1\t1\n" +
		"P02_GGTT\tCD3D\t2\n" +
		"P01_TTGG\tNKG7\t7\n"
	meta := "cell\tstage\n" +
		"P01_AAAC\tIII\n" +
		"P02_GGTT\tI\n"

	ds, err := dataset.Load(strings.NewReader(counts), strings.NewReader(meta), dataset.DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"CD3D", "MT-CO1", "NKG7"}, ds.Genes, "vocabulary follows first appearance")
	assert.Len(t, ds.Cells, 3)
	assert.Equal(t, []string{"P01_AAAC", "P02_GGTT", "P01_TTGG"}, ds.CellIDs())

	require.Len(t, ds.Samples, 2)
	assert.Equal(t, "P01", ds.Samples[0].ID, "samples sorted lexicographically")
	assert.Equal(t, "III", ds.Samples[0].ClinicalLabel)
	assert.Equal(t, []int{0, 2}, ds.Samples[0].CellIdx)
	assert.Equal(t, "I", ds.Samples[1].ClinicalLabel)

	c := ds.Cells[0]
	assert.Equal(t, "AAAC", c.Barcode)
	assert.Equal(t, "P01", c.SampleID)
	assert.Equal(t, []int{0, 1}, c.Counts.Idx)
	assert.Equal(t, []float64{4, 1}, c.Counts.Val)
}

// TestLoad_MalformedCellID verifies the fail-fast identifier policy.
func TestLoad_MalformedCellID(t *testing.T) {
	counts := countsHeader + "NOSEPARATOR\tCD3D\t1\n"
	_, err := dataset.Load(strings.NewReader(counts), nil, dataset.DefaultLoadOptions())
	assert.ErrorIs(t, err, dataset.ErrMalformedCellID)

	counts = countsHeader + "_AAAC\tCD3D\t1\n"
	_, err = dataset.Load(strings.NewReader(counts), nil, dataset.DefaultLoadOptions())
	assert.ErrorIs(t, err, dataset.ErrMalformedCellID, "empty patient part must fail")
}

// TestLoad_BadCount verifies rejection of negative and non-numeric counts.
func TestLoad_BadCount(t *testing.T) {
	for _, raw := range []string{"-1", "abc"} {
		counts := countsHeader + "P01_AAAC\tCD3D\t" + raw + "\n"
		_, err := dataset.Load(strings.NewReader(counts), nil, dataset.DefaultLoadOptions())
		assert.ErrorIs(t, err, dataset.ErrBadCount, raw)
	}
}

// TestLoad_ConflictingLabels verifies per-sample label consistency.
func TestLoad_ConflictingLabels(t *testing.T) {
	counts := countsHeader +
		"P01_AAAC\tCD3D\t1\n" +
		"P01_TTGG\tCD3D\t1\n"
	meta := "cell\tstage\nP01_AAAC\tI\nP01_TTGG\tIV\n"

	_, err := dataset.Load(strings.NewReader(counts), strings.NewReader(meta), dataset.DefaultLoadOptions())
	assert.ErrorIs(t, err, dataset.ErrConflictingLabel)
}

// TestSubset verifies regrouping and disappearance of emptied samples.
func TestSubset(t *testing.T) {
	counts := countsHeader +
		"P01_AAAC\tCD3D\t1\n" +
		"P02_GGTT\tCD3D\t2\n" +
		"P01_TTGG\tNKG7\t3\n"
	ds, err := dataset.Load(strings.NewReader(counts), nil, dataset.DefaultLoadOptions())
	require.NoError(t, err)

	sub, err := ds.Subset([]int{0, 2})
	require.NoError(t, err)
	assert.Len(t, sub.Cells, 2)
	require.Len(t, sub.Samples, 1, "emptied sample P02 must disappear")
	assert.Equal(t, "P01", sub.Samples[0].ID)

	// Originals untouched.
	assert.Len(t, ds.Cells, 3)
	assert.Len(t, ds.Samples, 2)

	_, err = ds.Subset(nil)
	assert.ErrorIs(t, err, dataset.ErrEmptyDataset)
}

// TestSplitCellID covers the separator contract directly.
func TestSplitCellID(t *testing.T) {
	p, b, err := dataset.SplitCellID("P07_ACGT-1", "_")
	require.NoError(t, err)
	assert.Equal(t, "P07", p)
	assert.Equal(t, "ACGT-1", b)

	_, _, err = dataset.SplitCellID("P07-ACGT", "_")
	assert.ErrorIs(t, err, dataset.ErrMalformedCellID)
}
