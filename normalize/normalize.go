package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/scyto/dataset"
)

// Sentinel errors for normalization and feature selection.
var (
	// ErrNilInput is returned when a nil dataset or normalized result is passed.
	ErrNilInput = errors.New("normalize: nil input")

	// ErrNoVariableFeatures is returned when no gene passes the cutoffs.
	ErrNoVariableFeatures = errors.New("normalize: no variable features found")

	// ErrUnknownFeature is returned when scaling is asked for a gene outside
	// the vocabulary.
	ErrUnknownFeature = errors.New("normalize: unknown feature")
)

// Options configures LogNormalize.
type Options struct {
	// ScaleFactor is the target library size every cell is scaled to before
	// the log1p transform.
	ScaleFactor float64
}

// DefaultOptions returns the standard target library size of 10000.
func DefaultOptions() Options { return Options{ScaleFactor: 10000} }

// Normalized holds log-normalized expression as sparse rows parallel to
// CellIDs, over the same gene vocabulary as the source dataset.
type Normalized struct {
	Rows      []dataset.SparseVec
	CellIDs   []string
	Genes     []string
	GeneIndex map[string]int
}

// LogNormalize converts raw counts to log-normalized expression.
// A zero-total cell produces an empty (all-zero) row. The input dataset is
// not mutated. Complexity: O(total nonzero counts).
func LogNormalize(ds *dataset.Dataset, opts Options) (*Normalized, error) {
	if ds == nil {
		return nil, ErrNilInput
	}
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = DefaultOptions().ScaleFactor
	}
	out := &Normalized{
		Rows:      make([]dataset.SparseVec, len(ds.Cells)),
		CellIDs:   ds.CellIDs(),
		Genes:     ds.Genes,
		GeneIndex: ds.GeneIndex,
	}
	for i := range ds.Cells {
		counts := ds.Cells[i].Counts
		total := counts.Sum()
		if total == 0 {
			continue // all-zero row stays empty, never NaN
		}
		idx := make([]int, len(counts.Idx))
		val := make([]float64, len(counts.Val))
		copy(idx, counts.Idx)
		factor := opts.ScaleFactor / total
		for k, v := range counts.Val {
			val[k] = math.Log1p(v * factor)
		}
		out.Rows[i] = dataset.SparseVec{Idx: idx, Val: val}
	}
	return out, nil
}

// FeatureOptions configures variable-feature selection.
type FeatureOptions struct {
	// NFeatures bounds how many genes are retained (rank order).
	NFeatures int
	// NumBins is the number of equal-width mean bins used to standardize
	// dispersion against comparable expression levels.
	NumBins int
	// MinMean/MaxMean bracket acceptable mean normalized expression.
	MinMean float64
	MaxMean float64
	// MinDispersion is the lower cutoff on binned standardized dispersion.
	MinDispersion float64
}

// DefaultFeatureOptions returns the standard selection parameters:
// top 2000 genes over 20 bins with mean in (0.0125, 3) and standardized
// dispersion above 0.5.
func DefaultFeatureOptions() FeatureOptions {
	return FeatureOptions{
		NFeatures:     2000,
		NumBins:       20,
		MinMean:       0.0125,
		MaxMean:       3,
		MinDispersion: 0.5,
	}
}

// geneStats carries the per-gene selection statistics.
type geneStats struct {
	gene  int
	mean  float64
	disp  float64 // raw dispersion: variance / mean
	zDisp float64 // dispersion standardized within its mean bin
}

// FindVariableFeatures ranks genes by binned standardized dispersion and
// returns the retained gene names in rank order (ties by vocabulary index).
// Complexity: O(cells · nnz + genes · bins).
func FindVariableFeatures(n *Normalized, opts FeatureOptions) ([]string, error) {
	if n == nil {
		return nil, ErrNilInput
	}
	def := DefaultFeatureOptions()
	if opts.NFeatures <= 0 {
		opts.NFeatures = def.NFeatures
	}
	if opts.NumBins <= 0 {
		opts.NumBins = def.NumBins
	}
	if opts.MaxMean <= 0 {
		opts.MaxMean = def.MaxMean
	}

	nCells := float64(len(n.Rows))
	if nCells < 2 {
		return nil, fmt.Errorf("%w: need at least 2 cells", ErrNoVariableFeatures)
	}
	sum := make([]float64, len(n.Genes))
	sumsq := make([]float64, len(n.Genes))
	for _, row := range n.Rows {
		for k, gi := range row.Idx {
			v := row.Val[k]
			sum[gi] += v
			sumsq[gi] += v * v
		}
	}

	stats := make([]geneStats, 0, len(n.Genes))
	var maxMean float64
	for gi := range n.Genes {
		mean := sum[gi] / nCells
		if mean == 0 {
			continue
		}
		variance := (sumsq[gi] - sum[gi]*sum[gi]/nCells) / (nCells - 1)
		stats = append(stats, geneStats{gene: gi, mean: mean, disp: variance / mean})
		if mean > maxMean {
			maxMean = mean
		}
	}
	if len(stats) == 0 {
		return nil, ErrNoVariableFeatures
	}

	standardizeByBin(stats, maxMean, opts.NumBins)

	// Apply cutoffs, then rank by standardized dispersion (ties by index).
	qualified := stats[:0]
	for _, s := range stats {
		if s.mean > opts.MinMean && s.mean < opts.MaxMean && s.zDisp > opts.MinDispersion {
			qualified = append(qualified, s)
		}
	}
	if len(qualified) == 0 {
		return nil, ErrNoVariableFeatures
	}
	sortStats(qualified)
	if len(qualified) > opts.NFeatures {
		qualified = qualified[:opts.NFeatures]
	}
	names := make([]string, len(qualified))
	for i, s := range qualified {
		names[i] = n.Genes[s.gene]
	}
	return names, nil
}

// standardizeByBin z-scores dispersion within equal-width mean bins.
// Bins with fewer than two genes, or zero spread, leave zDisp at 0.
func standardizeByBin(stats []geneStats, maxMean float64, numBins int) {
	width := maxMean / float64(numBins)
	if width == 0 {
		return
	}
	binOf := func(mean float64) int {
		b := int(mean / width)
		if b >= numBins {
			b = numBins - 1
		}
		return b
	}
	count := make([]float64, numBins)
	mean := make([]float64, numBins)
	m2 := make([]float64, numBins)
	for _, s := range stats {
		b := binOf(s.mean)
		count[b]++
		delta := s.disp - mean[b]
		mean[b] += delta / count[b]
		m2[b] += delta * (s.disp - mean[b])
	}
	std := make([]float64, numBins)
	for b := range std {
		if count[b] > 1 {
			std[b] = math.Sqrt(m2[b] / (count[b] - 1))
		}
	}
	for i := range stats {
		b := binOf(stats[i].mean)
		if std[b] > 0 {
			stats[i].zDisp = (stats[i].disp - mean[b]) / std[b]
		}
	}
}

// sortStats orders by standardized dispersion descending, gene index ascending.
func sortStats(stats []geneStats) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].zDisp != stats[j].zDisp {
			return stats[i].zDisp > stats[j].zDisp
		}
		return stats[i].gene < stats[j].gene
	})
}
