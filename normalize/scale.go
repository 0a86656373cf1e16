package normalize

import (
	"fmt"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/matrix"
)

// ScaleOptions configures per-gene z-score scaling.
type ScaleOptions struct {
	// MaxValue clips scaled values to ±MaxValue, bounding the influence of
	// extreme cells on downstream reduction.
	MaxValue float64
}

// DefaultScaleOptions returns the standard clip value of 10.
func DefaultScaleOptions() ScaleOptions { return ScaleOptions{MaxValue: 10} }

// Scale builds a dense cells × features matrix of z-scored normalized
// expression restricted to the given feature subset. Zero-variance features
// become zero columns (never NaN); values are clipped to ±MaxValue.
// Returns ErrUnknownFeature for genes outside the vocabulary.
// Complexity: O(cells · features).
func Scale(n *Normalized, features []string, opts ScaleOptions) (*dataset.FeatureMatrix, error) {
	if n == nil {
		return nil, ErrNilInput
	}
	if len(features) == 0 {
		return nil, ErrNoVariableFeatures
	}
	if opts.MaxValue <= 0 {
		opts.MaxValue = DefaultScaleOptions().MaxValue
	}

	cols := make([]int, len(features))
	colOf := make(map[int]int, len(features)) // vocabulary index -> output column
	for j, name := range features {
		gi, ok := n.GeneIndex[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		cols[j] = gi
		colOf[gi] = j
	}

	x, err := matrix.NewDense(len(n.Rows), len(features))
	if err != nil {
		return nil, err
	}
	for i, row := range n.Rows {
		for k, gi := range row.Idx {
			if j, ok := colOf[gi]; ok {
				if errSet := x.Set(i, j, row.Val[k]); errSet != nil {
					return nil, errSet
				}
			}
		}
	}

	means, err := matrix.ColumnMeans(x)
	if err != nil {
		return nil, err
	}
	stds, err := matrix.ColumnStds(x)
	if err != nil {
		return nil, err
	}
	for i := 0; i < x.Rows(); i++ {
		row, errRow := x.Row(i)
		if errRow != nil {
			return nil, errRow
		}
		for j := range row {
			if stds[j] == 0 {
				row[j] = 0 // degenerate feature: zero column, not NaN
				continue
			}
			z := (row[j] - means[j]) / stds[j]
			if z > opts.MaxValue {
				z = opts.MaxValue
			} else if z < -opts.MaxValue {
				z = -opts.MaxValue
			}
			row[j] = z
		}
	}

	ids := make([]string, len(n.CellIDs))
	copy(ids, n.CellIDs)
	genes := make([]string, len(features))
	copy(genes, features)
	return &dataset.FeatureMatrix{X: x, CellIDs: ids, Genes: genes}, nil
}
