// Package dataset: core types and sentinel errors.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/katalvlaran/scyto/matrix"
)

// Sentinel errors for dataset construction and loading.
var (
	// ErrMalformedCellID is returned when a composite cell identifier cannot
	// be split into patient and barcode parts. Fatal at load time.
	ErrMalformedCellID = errors.New("dataset: malformed composite cell identifier")

	// ErrBadCount indicates a negative or non-numeric count value.
	ErrBadCount = errors.New("dataset: invalid count value")

	// ErrBadRecord indicates a delimited record with the wrong field count.
	ErrBadRecord = errors.New("dataset: malformed record")

	// ErrConflictingLabel indicates two different clinical labels for one sample.
	ErrConflictingLabel = errors.New("dataset: conflicting clinical label")

	// ErrDuplicateCell indicates the same cell identifier appearing with
	// duplicate gene entries that cannot be reconciled.
	ErrDuplicateCell = errors.New("dataset: duplicate cell identifier")

	// ErrEmptyDataset is returned when no cells survive loading or subsetting.
	ErrEmptyDataset = errors.New("dataset: no cells")

	// ErrUnknownGene indicates a gene reference outside the vocabulary.
	ErrUnknownGene = errors.New("dataset: unknown gene")
)

// SparseVec is a sparse vector of non-negative values over the gene
// vocabulary, with Idx sorted ascending and parallel to Val.
type SparseVec struct {
	Idx []int
	Val []float64
}

// NNZ returns the number of stored (nonzero) entries.
func (v SparseVec) NNZ() int { return len(v.Idx) }

// Sum returns the total of all stored values.
func (v SparseVec) Sum() float64 {
	var s float64
	for _, x := range v.Val {
		s += x
	}
	return s
}

// Cell is one observational unit. ID and Counts are immutable once loaded;
// the QC fields are derived and filled by qc.Filter on cell copies.
type Cell struct {
	ID       string
	Barcode  string
	SampleID string
	Counts   SparseVec

	GenesDetected int
	MitoPercent   float64
	RiboPercent   float64
}

// Sample groups the cells of one patient/acquisition batch.
// CellIdx holds indices into Dataset.Cells, ascending.
type Sample struct {
	ID            string
	ClinicalLabel string
	CellIdx       []int
}

// Dataset is the immutable result of loading: a fixed gene vocabulary,
// cells in load order, and per-sample groupings sorted by sample ID.
type Dataset struct {
	Genes       []string
	GeneIndex   map[string]int
	Cells       []Cell
	Samples     []Sample
	SampleIndex map[string]int
}

// FeatureMatrix is a dense cells × genes table derived from counts.
// Row i corresponds to CellIDs[i]; column j to Genes[j].
type FeatureMatrix struct {
	X       *matrix.Dense
	CellIDs []string
	Genes   []string
}

// Embedding is a dense cells × k table produced by a reduction step.
// Row i corresponds to CellIDs[i].
type Embedding struct {
	X       *matrix.Dense
	CellIDs []string
}

// SplitCellID splits a composite PATIENT_BARCODE identifier on the first
// occurrence of sep. Returns ErrMalformedCellID when sep is absent or either
// part is empty.
func SplitCellID(id, sep string) (patient, barcode string, err error) {
	patient, barcode, ok := strings.Cut(id, sep)
	if !ok || patient == "" || barcode == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedCellID, id)
	}
	return patient, barcode, nil
}

// New assembles a Dataset from a gene vocabulary and cells. Sample groupings
// are derived from Cell.SampleID; labels maps sample ID to its clinical
// label (missing entries leave the label empty). Validates that every count
// index is inside the vocabulary and sorted ascending.
func New(genes []string, cells []Cell, labels map[string]string) (*Dataset, error) {
	if len(cells) == 0 {
		return nil, ErrEmptyDataset
	}
	geneIndex := make(map[string]int, len(genes))
	for i, g := range genes {
		geneIndex[g] = i
	}

	bySample := make(map[string][]int)
	for ci, c := range cells {
		prev := -1
		for _, gi := range c.Counts.Idx {
			if gi < 0 || gi >= len(genes) {
				return nil, fmt.Errorf("%w: cell %q index %d", ErrUnknownGene, c.ID, gi)
			}
			if gi <= prev {
				return nil, fmt.Errorf("%w: cell %q has unsorted counts", ErrDuplicateCell, c.ID)
			}
			prev = gi
		}
		bySample[c.SampleID] = append(bySample[c.SampleID], ci)
	}

	sampleIDs := make([]string, 0, len(bySample))
	for id := range bySample {
		sampleIDs = append(sampleIDs, id)
	}
	sort.Strings(sampleIDs)

	ds := &Dataset{
		Genes:       genes,
		GeneIndex:   geneIndex,
		Cells:       cells,
		Samples:     make([]Sample, 0, len(sampleIDs)),
		SampleIndex: make(map[string]int, len(sampleIDs)),
	}
	for _, id := range sampleIDs {
		ds.SampleIndex[id] = len(ds.Samples)
		ds.Samples = append(ds.Samples, Sample{
			ID:            id,
			ClinicalLabel: labels[id],
			CellIdx:       bySample[id],
		})
	}
	return ds, nil
}

// CellIDs returns the identifiers of all cells in dataset order.
func (d *Dataset) CellIDs() []string {
	ids := make([]string, len(d.Cells))
	for i, c := range d.Cells {
		ids[i] = c.ID
	}
	return ids
}

// Subset returns a new Dataset holding only the cells at the given indices
// (ascending, no duplicates). Samples are regrouped; samples left with no
// cells disappear from the result. The receiver is not mutated.
func (d *Dataset) Subset(keep []int) (*Dataset, error) {
	if len(keep) == 0 {
		return nil, ErrEmptyDataset
	}
	labels := make(map[string]string, len(d.Samples))
	for _, s := range d.Samples {
		labels[s.ID] = s.ClinicalLabel
	}
	cells := make([]Cell, 0, len(keep))
	prev := -1
	for _, i := range keep {
		if i <= prev || i >= len(d.Cells) {
			return nil, fmt.Errorf("dataset: Subset index %d: %w", i, ErrBadRecord)
		}
		prev = i
		cells = append(cells, d.Cells[i])
	}
	return New(d.Genes, cells, labels)
}
