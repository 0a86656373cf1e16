package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// LoadOptions configures delimited-text loading.
//
// Fields:
//   - Comma       — field delimiter (default '\t').
//   - IDSeparator — separator inside composite cell identifiers
//     (default "_", splitting PATIENT_BARCODE).
type LoadOptions struct {
	Comma       rune
	IDSeparator string
}

// DefaultLoadOptions returns tab-delimited input with "_" identifier splits.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Comma: '\t', IDSeparator: "_"}
}

// Load reads a triplet counts stream (header row, then `cell gene count`
// records) and an optional per-cell metadata stream (header row, then
// `cell label` records), producing a Dataset.
//
// Behavior:
//   - Gene vocabulary and cell order follow first appearance.
//   - Composite identifiers are split on opts.IDSeparator; failure to split
//     is fatal (ErrMalformedCellID), per the no-null-sample policy.
//   - Counts must parse as non-negative numbers (ErrBadCount otherwise);
//     repeated (cell, gene) entries accumulate.
//   - A metadata label applies to the cell's sample; two records implying
//     different labels for one sample fail with ErrConflictingLabel.
//
// meta may be nil, leaving all clinical labels empty.
func Load(counts io.Reader, meta io.Reader, opts LoadOptions) (*Dataset, error) {
	if opts.Comma == 0 {
		opts.Comma = '\t'
	}
	if opts.IDSeparator == "" {
		opts.IDSeparator = "_"
	}

	r := csv.NewReader(counts)
	r.Comma = opts.Comma
	r.FieldsPerRecord = 3
	r.ReuseRecord = true

	var genes []string
	geneIndex := make(map[string]int)
	var cellIDs []string
	cellIndex := make(map[string]int)
	var accs []*cellAcc

	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: counts: %w", err)
		}
		if header {
			header = false
			continue
		}
		cellID, gene, raw := rec[0], rec[1], rec[2]

		ci, ok := cellIndex[cellID]
		if !ok {
			patient, barcode, errSplit := SplitCellID(cellID, opts.IDSeparator)
			if errSplit != nil {
				return nil, errSplit
			}
			ci = len(cellIDs)
			cellIndex[cellID] = ci
			cellIDs = append(cellIDs, cellID)
			accs = append(accs, &cellAcc{sampleID: patient, barcode: barcode, counts: make(map[int]float64)})
		}
		gi, ok := geneIndex[gene]
		if !ok {
			gi = len(genes)
			geneIndex[gene] = gi
			genes = append(genes, gene)
		}
		v, errParse := strconv.ParseFloat(raw, 64)
		if errParse != nil || v < 0 {
			return nil, fmt.Errorf("%w: %q for cell %q gene %q", ErrBadCount, raw, cellID, gene)
		}
		accs[ci].counts[gi] += v
	}
	if len(cellIDs) == 0 {
		return nil, ErrEmptyDataset
	}

	labels, err := loadLabels(meta, opts, cellIndex, accs)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, len(cellIDs))
	for i, id := range cellIDs {
		acc := accs[i]
		idx := make([]int, 0, len(acc.counts))
		for gi := range acc.counts {
			idx = append(idx, gi)
		}
		sort.Ints(idx)
		val := make([]float64, len(idx))
		for k, gi := range idx {
			val[k] = acc.counts[gi]
		}
		cells[i] = Cell{
			ID:       id,
			Barcode:  acc.barcode,
			SampleID: acc.sampleID,
			Counts:   SparseVec{Idx: idx, Val: val},
		}
	}
	return New(genes, cells, labels)
}

// loadLabels reads the per-cell metadata stream into sample → label,
// verifying label consistency inside each sample.
func loadLabels(meta io.Reader, opts LoadOptions, cellIndex map[string]int, accs []*cellAcc) (map[string]string, error) {
	labels := make(map[string]string)
	if meta == nil {
		return labels, nil
	}
	r := csv.NewReader(meta)
	r.Comma = opts.Comma
	r.FieldsPerRecord = 2
	r.ReuseRecord = true

	header := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: metadata: %w", err)
		}
		if header {
			header = false
			continue
		}
		cellID, label := rec[0], rec[1]
		ci, ok := cellIndex[cellID]
		if !ok {
			// Metadata for unknown cells is ignored; the counts file is the
			// source of truth for cell existence.
			continue
		}
		sampleID := accs[ci].sampleID
		if prev, seen := labels[sampleID]; seen && prev != label {
			return nil, fmt.Errorf("%w: sample %q has %q and %q", ErrConflictingLabel, sampleID, prev, label)
		}
		labels[sampleID] = label
	}
	return labels, nil
}

// cellAcc accumulates one cell's counts during loading.
type cellAcc struct {
	sampleID string
	barcode  string
	counts   map[int]float64
}

// LoadFiles opens and loads counts and (optionally empty) metadata paths.
func LoadFiles(countsPath, metaPath string, opts LoadOptions) (*Dataset, error) {
	cf, err := os.Open(countsPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer cf.Close()

	var meta io.Reader
	if metaPath != "" {
		mf, errOpen := os.Open(metaPath)
		if errOpen != nil {
			return nil, fmt.Errorf("dataset: %w", errOpen)
		}
		defer mf.Close()
		meta = mf
	}
	return Load(cf, meta, opts)
}
