package annotate

import (
	"context"
	"fmt"
	"sort"

	"github.com/katalvlaran/scyto/matrix"
)

// DefaultMinMargin is the best-vs-runner-up correlation gap below which a
// cell stays unlabeled.
const DefaultMinMargin = 0.05

// Reference holds bulk expression centroids: one profile per label,
// aligned with Genes.
type Reference struct {
	Genes     []string
	Centroids map[string][]float64
}

// RefCor labels each cell by its highest Pearson correlation against the
// reference centroids over the shared vocabulary. Ambiguous cells (margin
// below MinMargin) are left unlabeled.
type RefCor struct {
	Ref       *Reference
	MinMargin float64
}

// NewRefCor builds the strategy with the default ambiguity margin.
func NewRefCor(ref *Reference) *RefCor {
	return &RefCor{Ref: ref, MinMargin: DefaultMinMargin}
}

func (r *RefCor) Name() string { return "refcor" }

// Annotate correlates every embedded cell against each centroid.
func (r *RefCor) Annotate(ctx context.Context, v *View) (*Result, error) {
	if !v.complete() || r.Ref == nil {
		return nil, ErrNilView
	}

	// Shared vocabulary in reference order.
	var refPos, dataPos []int
	for i, g := range r.Ref.Genes {
		if j, ok := v.Norm.GeneIndex[g]; ok {
			refPos = append(refPos, i)
			dataPos = append(dataPos, j)
		}
	}
	if len(refPos) < 2 {
		return nil, ErrNoSharedGenes
	}

	// Restrict centroids once; labels sorted for deterministic ties.
	labels := make([]string, 0, len(r.Ref.Centroids))
	for l := range r.Ref.Centroids {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	centroids := make([][]float64, len(labels))
	for i, l := range labels {
		full := r.Ref.Centroids[l]
		cut := make([]float64, len(refPos))
		for t, p := range refPos {
			cut[t] = full[p]
		}
		centroids[i] = cut
	}

	rowOf := v.rowIndex()
	out := &Result{Method: r.Name(), Labels: make(map[string]Label)}
	cell := make([]float64, len(dataPos))
	dense := make(map[int]float64)

	for ci, id := range v.FM.CellIDs {
		if ci%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, ok := rowOf[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCellMismatch, id)
		}
		sv := v.Norm.Rows[row]
		clear(dense)
		for t, gi := range sv.Idx {
			dense[gi] = sv.Val[t]
		}
		for t, p := range dataPos {
			cell[t] = dense[p]
		}

		best, second := -2.0, -2.0
		bestLabel := ""
		for i, c := range centroids {
			cr, err := matrix.Pearson(cell, c)
			if err != nil {
				return nil, err
			}
			switch {
			case cr > best:
				second, best, bestLabel = best, cr, labels[i]
			case cr > second:
				second = cr
			}
		}
		if best-second < r.MinMargin {
			continue // ambiguous: stays unlabeled
		}
		conf := best
		if conf < 0 {
			conf = 0
		}
		out.Labels[id] = Label{Value: bestLabel, Confidence: conf}
	}
	return out, nil
}
