// Package neighbors provides exact k-nearest-neighbor search over dense
// embeddings, parallel across query rows, plus a neighbor-purity metric.
//
// Search is the single nearest-neighbor capability the rest of the pipeline
// builds on (reduction layouts, clustering graphs, integration anchors),
// keeping those packages decoupled from the search implementation.
//
// Determinism
//
//	Distances tie-break by reference row index, and every query row is
//	computed independently, so results are reproducible regardless of
//	worker count.
package neighbors

import (
	"errors"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/scyto/matrix"
)

// Sentinel errors.
var (
	// ErrNilInput is returned for nil matrices.
	ErrNilInput = errors.New("neighbors: nil input")

	// ErrBadK is returned for a non-positive neighbor count.
	ErrBadK = errors.New("neighbors: k must be positive")

	// ErrDimensionMismatch is returned when query and reference dimensions differ.
	ErrDimensionMismatch = errors.New("neighbors: dimension mismatch")

	// ErrBadLabels is returned when a label slice does not match the embedding.
	ErrBadLabels = errors.New("neighbors: labels do not match embedding rows")
)

// Neighbor is one search hit: a reference row index and its Euclidean distance.
type Neighbor struct {
	Index int
	Dist  float64
}

// Options tunes Search.
type Options struct {
	// Workers bounds the parallel query workers; 0 means runtime.NumCPU().
	Workers int
	// SkipSelf excludes the reference row with the same index as the query
	// row (for searches of an embedding against itself).
	SkipSelf bool
}

// Search finds, for every row of queries, its k nearest rows of refs by
// Euclidean distance. k is clamped to the number of available references;
// ties break by reference index. The two matrices may be the same object
// (set SkipSelf to exclude the trivial self match).
// Complexity: O(q·r·d + q·r·log r), parallel across query rows.
func Search(queries, refs *matrix.Dense, k int, opts Options) ([][]Neighbor, error) {
	if queries == nil || refs == nil {
		return nil, ErrNilInput
	}
	if k <= 0 {
		return nil, ErrBadK
	}
	if queries.Cols() != refs.Cols() {
		return nil, ErrDimensionMismatch
	}

	avail := refs.Rows()
	if opts.SkipSelf {
		avail--
	}
	if avail <= 0 {
		return nil, ErrBadK
	}
	if k > avail {
		k = avail
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([][]Neighbor, queries.Rows())
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < queries.Rows(); i++ {
		i := i
		g.Go(func() error {
			q, err := queries.Row(i)
			if err != nil {
				return err
			}
			out[i] = nearest(q, refs, k, opts.SkipSelf, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// nearest scans all reference rows for one query and keeps the k closest.
func nearest(q []float64, refs *matrix.Dense, k int, skipSelf bool, self int) []Neighbor {
	cand := make([]Neighbor, 0, refs.Rows())
	for j := 0; j < refs.Rows(); j++ {
		if skipSelf && j == self {
			continue
		}
		r, _ := refs.Row(j)
		var d float64
		for t := range q {
			diff := q[t] - r[t]
			d += diff * diff
		}
		cand = append(cand, Neighbor{Index: j, Dist: d})
	}
	sort.Slice(cand, func(a, b int) bool {
		if cand[a].Dist != cand[b].Dist {
			return cand[a].Dist < cand[b].Dist
		}
		return cand[a].Index < cand[b].Index
	})
	cand = cand[:k]
	out := make([]Neighbor, k)
	for i, n := range cand {
		out[i] = Neighbor{Index: n.Index, Dist: math.Sqrt(n.Dist)}
	}
	return out
}

// Purity measures neighborhood label consistency: for each row of emb, the
// fraction of its k nearest neighbors (excluding itself) sharing its label,
// averaged over all rows. Returns a value in [0,1].
func Purity(emb *matrix.Dense, labels []int, k int, opts Options) (float64, error) {
	if emb == nil {
		return 0, ErrNilInput
	}
	if len(labels) != emb.Rows() {
		return 0, ErrBadLabels
	}
	opts.SkipSelf = true
	hits, err := Search(emb, emb, k, opts)
	if err != nil {
		return 0, err
	}
	var total float64
	for i, ns := range hits {
		var same int
		for _, n := range ns {
			if labels[n.Index] == labels[i] {
				same++
			}
		}
		total += float64(same) / float64(len(ns))
	}
	return total / float64(len(hits)), nil
}
