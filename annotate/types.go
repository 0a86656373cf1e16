package annotate

import (
	"context"
	"errors"

	"github.com/katalvlaran/scyto/cluster"
	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/diffexp"
	"github.com/katalvlaran/scyto/normalize"
)

var (
	// ErrNilView is returned when a strategy receives a nil or incomplete view.
	ErrNilView = errors.New("annotate: nil or incomplete view")
	// ErrNoSharedGenes is returned when reference and data vocabularies do not overlap.
	ErrNoSharedGenes = errors.New("annotate: no shared genes with reference")
	// ErrNoMarkers is returned when MarkerScore runs without differential markers.
	ErrNoMarkers = errors.New("annotate: no differential markers in view")
	// ErrCellMismatch is returned when an embedding cell has no expression row.
	ErrCellMismatch = errors.New("annotate: cell missing from expression")
	// ErrNoStrategies is returned by an Ensemble with nothing to run.
	ErrNoStrategies = errors.New("annotate: no strategies configured")
)

// View is the read-only bundle every strategy annotates from. FM,
// Clusters and Norm are required; Markers is optional and only consumed
// by MarkerScore.
type View struct {
	FM        *dataset.FeatureMatrix
	Embedding *dataset.Embedding
	Clusters  *cluster.Assignment
	Norm      *normalize.Normalized
	Markers   *diffexp.Result
}

func (v *View) complete() bool {
	return v != nil && v.FM != nil && v.Clusters != nil && v.Norm != nil
}

// rowIndex maps cell IDs to normalized-expression rows.
func (v *View) rowIndex() map[string]int {
	idx := make(map[string]int, len(v.Norm.CellIDs))
	for i, id := range v.Norm.CellIDs {
		idx[id] = i
	}
	return idx
}

// Label is one assigned cell type with the strategy's confidence in [0,1].
type Label struct {
	Value      string
	Confidence float64
}

// Result holds one strategy's labels keyed by cell ID. Cells the strategy
// could not call are absent, never guessed.
type Result struct {
	Method string
	Labels map[string]Label
}

// Annotator is a labeling strategy.
type Annotator interface {
	Name() string
	Annotate(ctx context.Context, v *View) (*Result, error)
}
