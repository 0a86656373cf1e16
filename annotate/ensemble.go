package annotate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Failure records one strategy that could not produce labels.
type Failure struct {
	Method string
	Err    error
}

// Outcome is the ensemble output: one Result per succeeding strategy, in
// strategy order, plus the failures. Strategies disagree freely; no
// consensus label is derived.
type Outcome struct {
	Results  []*Result
	Failures []Failure
}

// Ensemble runs a set of annotation strategies against one view.
type Ensemble struct {
	Strategies []Annotator
}

// NewEnsemble builds an ensemble over the given strategies.
func NewEnsemble(strategies ...Annotator) *Ensemble {
	return &Ensemble{Strategies: strategies}
}

// Run executes every strategy concurrently. A strategy error becomes a
// Failure, not a Run error; Run itself fails only when no strategies are
// configured, the view is incomplete, the context dies, or a strategy
// labels a cell the embedding does not contain.
func (e *Ensemble) Run(ctx context.Context, v *View) (*Outcome, error) {
	if len(e.Strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if !v.complete() {
		return nil, ErrNilView
	}

	slots := make([]*Result, len(e.Strategies))
	var (
		mu       sync.Mutex
		failures []Failure
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range e.Strategies {
		i, s := i, s
		g.Go(func() error {
			res, err := s.Annotate(gctx, v)
			if err != nil {
				mu.Lock()
				failures = append(failures, Failure{Method: s.Name(), Err: err})
				mu.Unlock()
				return nil
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(v.FM.CellIDs))
	for _, id := range v.FM.CellIDs {
		known[id] = true
	}
	out := &Outcome{Failures: failures}
	for _, res := range slots {
		if res == nil {
			continue
		}
		for id := range res.Labels {
			if !known[id] {
				return nil, fmt.Errorf("%w: %s labeled by %s", ErrCellMismatch, id, res.Method)
			}
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}
