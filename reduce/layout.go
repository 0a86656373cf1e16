package reduce

import (
	"math"
	"math/rand"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/matrix"
	"github.com/katalvlaran/scyto/neighbors"
)

// LayoutOptions configures the 2-D neighbor-graph layout.
//
// Fields:
//   - Neighbors   — kNN graph degree (default 15).
//   - Iterations  — refinement passes (default 200).
//   - LearnRate   — initial step size, decayed linearly (default 0.1).
//   - NegSamples  — random repulsion samples per vertex per pass (default 5).
//   - Seed        — PRNG seed driving initialization noise and sampling.
//   - Workers     — parallel workers for the kNN search (0 = NumCPU).
type LayoutOptions struct {
	Neighbors  int
	Iterations int
	LearnRate  float64
	NegSamples int
	Seed       int64
	Workers    int
}

// DefaultLayoutOptions returns the standard layout parameters.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{Neighbors: 15, Iterations: 200, LearnRate: 0.1, NegSamples: 5}
}

// Layout2D produces a 2-D embedding of emb for visualization: the kNN graph
// of emb is laid out with attraction along graph edges and sampled
// repulsion elsewhere, starting from the first two input dimensions plus
// seeded jitter. The refinement loop is serial, so a fixed seed fully
// determines the result. Complexity: O(iterations · cells · (k + samples)).
func Layout2D(emb *dataset.Embedding, opts LayoutOptions) (*dataset.Embedding, error) {
	if emb == nil || emb.X == nil {
		return nil, ErrNilInput
	}
	n := emb.X.Rows()
	if n < 2 {
		return nil, ErrTooFewCells
	}
	def := DefaultLayoutOptions()
	if opts.Neighbors <= 0 {
		opts.Neighbors = def.Neighbors
	}
	if opts.Iterations <= 0 {
		opts.Iterations = def.Iterations
	}
	if opts.LearnRate <= 0 {
		opts.LearnRate = def.LearnRate
	}
	if opts.NegSamples <= 0 {
		opts.NegSamples = def.NegSamples
	}

	graph, err := neighbors.Search(emb.X, emb.X, opts.Neighbors,
		neighbors.Options{SkipSelf: true, Workers: opts.Workers})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	// Initialize from the first two input dimensions (or zeros when the
	// input is 1-D) with a little jitter to break exact overlaps.
	pos := make([][2]float64, n)
	for i := 0; i < n; i++ {
		row, errRow := emb.X.Row(i)
		if errRow != nil {
			return nil, errRow
		}
		pos[i][0] = row[0] + rng.Float64()*1e-4
		if len(row) > 1 {
			pos[i][1] = row[1] + rng.Float64()*1e-4
		} else {
			pos[i][1] = rng.Float64() * 1e-4
		}
	}

	for iter := 0; iter < opts.Iterations; iter++ {
		lr := opts.LearnRate * (1 - float64(iter)/float64(opts.Iterations))
		for i := 0; i < n; i++ {
			// Attraction along kNN edges.
			for _, nb := range graph[i] {
				dx := pos[nb.Index][0] - pos[i][0]
				dy := pos[nb.Index][1] - pos[i][1]
				pos[i][0] += lr * dx * 0.5
				pos[i][1] += lr * dy * 0.5
			}
			// Sampled repulsion from random non-neighbors.
			for s := 0; s < opts.NegSamples; s++ {
				j := rng.Intn(n)
				if j == i {
					continue
				}
				dx := pos[i][0] - pos[j][0]
				dy := pos[i][1] - pos[j][1]
				d2 := dx*dx + dy*dy
				if d2 == 0 {
					continue
				}
				f := lr / (1 + d2)
				norm := math.Sqrt(d2)
				pos[i][0] += f * dx / norm
				pos[i][1] += f * dy / norm
			}
		}
	}

	out, err := matrix.NewDense(n, 2)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if errSet := out.SetRow(i, []float64{pos[i][0], pos[i][1]}); errSet != nil {
			return nil, errSet
		}
	}
	ids := make([]string, len(emb.CellIDs))
	copy(ids, emb.CellIDs)
	return &dataset.Embedding{X: out, CellIDs: ids}, nil
}
