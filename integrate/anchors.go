package integrate

import (
	"github.com/katalvlaran/scyto/matrix"
	"github.com/katalvlaran/scyto/neighbors"
)

// FindAnchors detects scored mutual-nearest-neighbor anchors between two
// samples' joint-subspace coordinates (rows = cells). k shrinks to fit the
// smaller side; ErrSampleTooSmall when even k=1 is impossible,
// ErrNoAnchors when nothing passes the score threshold.
//
// Symmetry: FindAnchors(b, a, ...) returns the mirrored pair set with
// identical scores.
func FindAnchors(a, b *matrix.Dense, opts ...Option) (*AnchorSet, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	return findAnchors(a, b, &o)
}

func findAnchors(a, b *matrix.Dense, o *Options) (*AnchorSet, error) {
	if a == nil || b == nil {
		return nil, ErrNilInput
	}
	k := o.K
	if smaller := minInt(a.Rows(), b.Rows()); k >= smaller {
		// Borrow a reduced k for small samples.
		k = smaller - 1
	}
	if k < 1 {
		return nil, ErrSampleTooSmall
	}

	nopts := neighbors.Options{Workers: o.Workers}
	aInB, err := neighbors.Search(a, b, k, nopts)
	if err != nil {
		return nil, err
	}
	bInA, err := neighbors.Search(b, a, k, nopts)
	if err != nil {
		return nil, err
	}
	// Within-side neighborhoods for the overlap score.
	aInA, err := neighbors.Search(a, a, k, neighbors.Options{Workers: o.Workers, SkipSelf: true})
	if err != nil {
		return nil, err
	}
	bInB, err := neighbors.Search(b, b, k, neighbors.Options{Workers: o.Workers, SkipSelf: true})
	if err != nil {
		return nil, err
	}

	bSets := toSets(bInA) // for each b row: its neighbor set in A
	set := &AnchorSet{K: k}
	for ai, hits := range aInB {
		for _, h := range hits {
			if !bSets[h.Index][ai] {
				continue // asymmetric match: discarded
			}
			set.Raw++
			score := anchorScore(ai, h.Index, aInB, bInB, bInA, aInA, k)
			if score >= o.MinScore {
				set.Anchors = append(set.Anchors, Anchor{A: ai, B: h.Index, Score: score})
			}
		}
	}
	if len(set.Anchors) == 0 {
		return nil, ErrNoAnchors
	}
	return set, nil
}

// anchorScore measures neighborhood-overlap consistency for anchor (a, b):
// the fraction of a's cross-neighbors in B that are also b's own neighbors
// in B, averaged with the mirrored fraction on the A side. Symmetric in
// (a, b) by construction.
func anchorScore(a, b int, aInB, bInB, bInA, aInA [][]neighbors.Neighbor, k int) float64 {
	overlapB := overlap(aInB[a], bInB[b])
	overlapA := overlap(bInA[b], aInA[a])
	return (float64(overlapB) + float64(overlapA)) / (2 * float64(k))
}

// overlap counts indices present in both neighbor lists.
func overlap(x, y []neighbors.Neighbor) int {
	seen := make(map[int]bool, len(x))
	for _, n := range x {
		seen[n.Index] = true
	}
	var c int
	for _, n := range y {
		if seen[n.Index] {
			c++
		}
	}
	return c
}

// toSets converts neighbor lists to membership sets.
func toSets(lists [][]neighbors.Neighbor) []map[int]bool {
	out := make([]map[int]bool, len(lists))
	for i, ns := range lists {
		s := make(map[int]bool, len(ns))
		for _, n := range ns {
			s[n.Index] = true
		}
		out[i] = s
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
