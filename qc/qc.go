// Package qc computes per-cell quality metrics and filters low-quality cells.
package qc

import (
	"errors"
	"strings"

	"github.com/katalvlaran/scyto/dataset"
)

// ErrNilDataset is returned when a nil dataset pointer is passed.
var ErrNilDataset = errors.New("qc: dataset is nil")

// ErrNoSurvivors is returned when no cell in the whole dataset passes the
// thresholds (a single empty sample is an exclusion, not an error).
var ErrNoSurvivors = errors.New("qc: no cells pass quality thresholds")

// Options holds the filtering thresholds. All comparisons are strict:
// a cell is retained iff
//
//	MinGenes < GenesDetected < MaxGenes
//	MitoPercent < MaxMitoPercent
//	RiboPercent < MaxRiboPercent
type Options struct {
	MinGenes       int
	MaxGenes       int
	MaxMitoPercent float64
	MaxRiboPercent float64

	// MitoPrefixes / RiboPrefixes match gene names by prefix when deriving
	// the percentage metrics.
	MitoPrefixes []string
	RiboPrefixes []string
}

// DefaultOptions returns the standard thresholds: genes detected in
// (400, 7000), mitochondrial and ribosomal fractions under 20%.
func DefaultOptions() Options {
	return Options{
		MinGenes:       400,
		MaxGenes:       7000,
		MaxMitoPercent: 20,
		MaxRiboPercent: 20,
		MitoPrefixes:   []string{"MT-"},
		RiboPrefixes:   []string{"RPS", "RPL"},
	}
}

// Report summarizes one filtering pass.
type Report struct {
	Retained        int
	Removed         int
	ExcludedSamples []string       // samples whose every cell was removed
	RemovedBySample map[string]int // removal counts per sample
}

// Metrics holds the derived per-cell quality metrics.
type Metrics struct {
	CellID        string
	GenesDetected int
	MitoPercent   float64
	RiboPercent   float64
}

// ComputeMetrics derives quality metrics for every cell without filtering.
// Complexity: O(total nonzero counts).
func ComputeMetrics(ds *dataset.Dataset, opts Options) ([]Metrics, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	mito := prefixSet(ds.Genes, opts.MitoPrefixes)
	ribo := prefixSet(ds.Genes, opts.RiboPrefixes)

	out := make([]Metrics, len(ds.Cells))
	for i := range ds.Cells {
		out[i] = metricsFor(&ds.Cells[i], mito, ribo)
	}
	return out, nil
}

// Filter computes metrics and returns a new dataset holding only the cells
// passing the thresholds, together with a Report. The input dataset is not
// mutated; retained cells in the result carry their metrics. Samples left
// with zero survivors are excluded (reported, not fatal); a dataset with
// zero survivors overall returns ErrNoSurvivors.
func Filter(ds *dataset.Dataset, opts Options) (*dataset.Dataset, *Report, error) {
	if ds == nil {
		return nil, nil, ErrNilDataset
	}
	mito := prefixSet(ds.Genes, opts.MitoPrefixes)
	ribo := prefixSet(ds.Genes, opts.RiboPrefixes)

	rep := &Report{RemovedBySample: make(map[string]int)}
	keep := make([]int, 0, len(ds.Cells))
	kept := make(map[string]Metrics, len(ds.Cells))
	for i := range ds.Cells {
		m := metricsFor(&ds.Cells[i], mito, ribo)
		if retain(m, opts) {
			keep = append(keep, i)
			kept[ds.Cells[i].ID] = m
			continue
		}
		rep.Removed++
		rep.RemovedBySample[ds.Cells[i].SampleID]++
	}
	rep.Retained = len(keep)
	if len(keep) == 0 {
		return nil, nil, ErrNoSurvivors
	}

	for _, s := range ds.Samples {
		survived := false
		for _, ci := range s.CellIdx {
			if _, ok := kept[ds.Cells[ci].ID]; ok {
				survived = true
				break
			}
		}
		if !survived {
			rep.ExcludedSamples = append(rep.ExcludedSamples, s.ID)
		}
	}

	out, err := ds.Subset(keep)
	if err != nil {
		return nil, nil, err
	}
	for i := range out.Cells {
		m := kept[out.Cells[i].ID]
		out.Cells[i].GenesDetected = m.GenesDetected
		out.Cells[i].MitoPercent = m.MitoPercent
		out.Cells[i].RiboPercent = m.RiboPercent
	}
	return out, rep, nil
}

// retain applies the strict-inequality threshold rule.
func retain(m Metrics, opts Options) bool {
	return m.GenesDetected > opts.MinGenes &&
		m.GenesDetected < opts.MaxGenes &&
		m.MitoPercent < opts.MaxMitoPercent &&
		m.RiboPercent < opts.MaxRiboPercent
}

// metricsFor derives the three metrics from one cell's sparse counts.
func metricsFor(c *dataset.Cell, mito, ribo map[int]struct{}) Metrics {
	m := Metrics{CellID: c.ID}
	var total, mitoSum, riboSum float64
	for k, gi := range c.Counts.Idx {
		v := c.Counts.Val[k]
		if v == 0 {
			continue
		}
		m.GenesDetected++
		total += v
		if _, ok := mito[gi]; ok {
			mitoSum += v
		}
		if _, ok := ribo[gi]; ok {
			riboSum += v
		}
	}
	if total > 0 {
		m.MitoPercent = mitoSum / total * 100
		m.RiboPercent = riboSum / total * 100
	}
	return m
}

// prefixSet resolves gene-name prefixes into a vocabulary index set.
func prefixSet(genes []string, prefixes []string) map[int]struct{} {
	out := make(map[int]struct{})
	for gi, g := range genes {
		for _, p := range prefixes {
			if strings.HasPrefix(g, p) {
				out[gi] = struct{}{}
				break
			}
		}
	}
	return out
}
