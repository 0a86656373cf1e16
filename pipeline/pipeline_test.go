package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/katalvlaran/scyto/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// variantPairs are (low, high) counts alternating across cells. The pairs
// share (2+low)·(2+high) = 144, so every gene keeps the same mean
// log-normalized expression while variance climbs — only the last two
// survive dispersion selection, giving a fixed shared vocabulary.
var variantPairs = [][2]int{{7, 14}, {6, 16}, {4, 22}, {2, 34}, {1, 46}, {0, 70}}

// writeCounts emits the triplet TSV for two identically built samples:
// 16 cells each, 6 variant genes, 10 flat genes and one balance gene that
// tops every cell up to 200 total counts.
func writeCounts(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("cell\tgene\tcount\n")
	for _, sample := range []string{"p1", "p2"} {
		for i := 0; i < 16; i++ {
			id := fmt.Sprintf("%s_BC%02d", sample, i)
			total := 0
			for j, pair := range variantPairs {
				// Alternate which parity gets the low value per gene.
				v := pair[i%2]
				if j%2 == 1 {
					v = pair[(i+1)%2]
				}
				if v > 0 {
					fmt.Fprintf(&b, "%s\tGV%d\t%d\n", id, j, v)
				}
				total += v
			}
			for j := 0; j < 10; j++ {
				fmt.Fprintf(&b, "%s\tGF%d\t5\n", id, j)
				total += 5
			}
			fmt.Fprintf(&b, "%s\tBAL\t%d\n", id, 200-total)
		}
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func writeMeta(t *testing.T, path string) {
	t.Helper()
	meta := "cell\tlabel\np1_BC00\thealthy\np2_BC00\tdisease\n"
	require.NoError(t, os.WriteFile(path, []byte(meta), 0o644))
}

func writeRefData(t *testing.T, dir string) (ref, tree, kb string) {
	t.Helper()
	ref = filepath.Join(dir, "reference.tsv")
	require.NoError(t, os.WriteFile(ref, []byte(
		"gene\ttypeEven\ttypeOdd\nGV5\t0\t3.5\nGV4\t0.4\t3\nGF0\t1.2\t1\n"), 0o644))

	tree = filepath.Join(dir, "markers.yaml")
	require.NoError(t, os.WriteFile(tree, []byte(`label: root
children:
  - label: variant-high
    genes: [GV5, GV4]
  - label: baseline
    genes: [GF0, GF1]
`), 0o644))

	kb = filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(kb, []byte(`variant-high:
  GV5: 1
  GV4: 1
baseline:
  GF0: 1
`), 0o644))
	return ref, tree, kb
}

func testConfig(t *testing.T, dir string) pipeline.Config {
	t.Helper()
	counts := filepath.Join(dir, "counts.tsv")
	meta := filepath.Join(dir, "meta.tsv")
	writeCounts(t, counts)
	writeMeta(t, meta)
	ref, tree, kb := writeRefData(t, dir)

	cfg := pipeline.DefaultConfig()
	cfg.Input = pipeline.InputConfig{Counts: counts, Meta: meta}
	cfg.QC.MinGenes = 2
	cfg.Normalize.ScaleFactor = 100
	cfg.Normalize.NFeatures = 10
	cfg.Integrate.MinSharedFeatures = 2
	cfg.Integrate.Dims = 2
	cfg.Reduce.Components = 2
	cfg.Reduce.LayoutNeighbors = 5
	cfg.Reduce.LayoutIterations = 10
	cfg.Cluster.K = 5
	cfg.Annotate.Reference = ref
	cfg.Annotate.MarkerTree = tree
	cfg.Annotate.KnowledgeBase = kb
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Seed = 42
	cfg.Workers = 2
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	rep, err := pipeline.Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 32, rep.CellsLoaded)
	assert.Equal(t, 32, rep.CellsRetained)
	require.NotNil(t, rep.QC)
	assert.Empty(t, rep.QC.ExcludedSamples)
	require.NotNil(t, rep.Integration)
	assert.Equal(t, 2, rep.Integration.SharedFeatures)
	assert.Empty(t, rep.Integration.ExcludedSamples)
	assert.GreaterOrEqual(t, rep.Clusters, 1)
	assert.Empty(t, rep.StrategyFailures)

	require.Len(t, rep.Outputs, 3)
	for _, name := range []string{"labels.tsv", "markers.tsv", "embedding.tsv"} {
		data, errRead := os.ReadFile(filepath.Join(cfg.Output.Dir, name))
		require.NoError(t, errRead, name)
		assert.NotEmpty(t, data, name)
	}

	// The embedding covers every cell.
	emb, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "embedding.tsv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(emb), "\n"), "\n")
	assert.Len(t, lines, 33) // header + 32 cells
}

func TestRunWithoutAnnotation(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Annotate = pipeline.AnnotateConfig{}

	rep, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	// No strategies configured: the labels table is skipped.
	assert.Len(t, rep.Outputs, 2)
	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "labels.tsv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSingleSampleSkipsIntegration(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Annotate = pipeline.AnnotateConfig{}

	// Rewrite counts with only sample p1.
	data, err := os.ReadFile(cfg.Input.Counts)
	require.NoError(t, err)
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "p2_") {
			kept = append(kept, line)
		}
	}
	require.NoError(t, os.WriteFile(cfg.Input.Counts, []byte(strings.Join(kept, "\n")), 0o644))

	rep, err := pipeline.Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 16, rep.CellsLoaded)
	require.NotEmpty(t, rep.Warnings)
	assert.Contains(t, rep.Warnings[0], "integration skipped")
	assert.Empty(t, rep.Integration.Pairs)
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Input.Counts = filepath.Join(dir, "nope.tsv")
	_, err := pipeline.Run(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
