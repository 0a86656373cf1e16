// Package cluster groups cells by seeded label propagation over the
// k-nearest-neighbor graph of an embedding.
//
// What
//
//	Every cell starts in its own cluster; cells then repeatedly adopt the
//	majority label among their graph neighbors, visiting cells in a seeded
//	shuffled order, until an entire pass changes nothing or MaxIter passes
//	elapse. Final labels are renumbered to contiguous ids ordered by first
//	appearance.
//
// Determinism
//
//	The only randomness is the visit order, driven by an explicit seed;
//	majority ties break toward the smallest label id. A fixed seed over a
//	fixed embedding reproduces the assignment exactly.
//
// Complexity
//
//	O(cells · k) per pass after the O(cells² · dims) kNN construction.
package cluster

import (
	"errors"
	"math/rand"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/neighbors"
)

// Sentinel errors.
var (
	// ErrNilInput is returned for a nil embedding.
	ErrNilInput = errors.New("cluster: nil embedding")

	// ErrTooFewCells is returned when fewer than two cells are present.
	ErrTooFewCells = errors.New("cluster: too few cells")
)

// Options configures label propagation.
//
// Fields:
//   - K       — neighbor-graph degree (default 10).
//   - MaxIter — maximum full passes (default 50).
//   - Seed    — PRNG seed for the visit order.
//   - Workers — parallel workers for the kNN search (0 = NumCPU).
type Options struct {
	K       int
	MaxIter int
	Seed    int64
	Workers int
}

// DefaultOptions returns K=10, MaxIter=50.
func DefaultOptions() Options { return Options{K: 10, MaxIter: 50} }

// Assignment maps cells (by embedding row) to contiguous cluster ids.
type Assignment struct {
	Labels      []int
	NumClusters int
	CellIDs     []string
}

// Cells returns the row indices belonging to cluster id, ascending.
func (a *Assignment) Cells(id int) []int {
	var out []int
	for i, l := range a.Labels {
		if l == id {
			out = append(out, i)
		}
	}
	return out
}

// LabelPropagation clusters the embedding. See the package comment for the
// algorithm and its determinism guarantees.
func LabelPropagation(emb *dataset.Embedding, opts Options) (*Assignment, error) {
	if emb == nil || emb.X == nil {
		return nil, ErrNilInput
	}
	n := emb.X.Rows()
	if n < 2 {
		return nil, ErrTooFewCells
	}
	def := DefaultOptions()
	if opts.K <= 0 {
		opts.K = def.K
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = def.MaxIter
	}

	graph, err := neighbors.Search(emb.X, emb.X, opts.K,
		neighbors.Options{SkipSelf: true, Workers: opts.Workers})
	if err != nil {
		return nil, err
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	votes := make(map[int]int, opts.K)
	for iter := 0; iter < opts.MaxIter; iter++ {
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		changed := false
		for _, i := range order {
			clear(votes)
			for _, nb := range graph[i] {
				votes[labels[nb.Index]]++
			}
			best := labels[i]
			bestCount := votes[best] // current label defends its votes
			for l, c := range votes {
				if c > bestCount || (c == bestCount && l < best) {
					best, bestCount = l, c
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Renumber to contiguous ids by first appearance.
	remap := make(map[int]int)
	for i, l := range labels {
		id, ok := remap[l]
		if !ok {
			id = len(remap)
			remap[l] = id
		}
		labels[i] = id
	}

	ids := make([]string, len(emb.CellIDs))
	copy(ids, emb.CellIDs)
	return &Assignment{Labels: labels, NumClusters: len(remap), CellIDs: ids}, nil
}
