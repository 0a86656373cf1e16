// Package annotate assigns cell-type labels to integrated cells.
//
// What: an Annotator turns a read-only View (integrated features,
// embedding, clusters, normalized expression, optional markers) into
// per-cell labels with confidences. Three strategies ship with the
// package:
//
//   - RefCor — correlates each cell against bulk reference centroids and
//     keeps the best label when it clearly beats the runner-up.
//   - MarkerTree — walks a hierarchical marker database per cluster,
//     descending from coarse to fine types while marker evidence holds.
//   - MarkerScore — scores each cluster's differential genes against a
//     weighted marker knowledge base.
//
// Ensemble runs any set of strategies concurrently; a failing strategy is
// reported and dropped while the others' labels survive. No consensus
// label is computed: disagreement between strategies is signal for the
// analyst, not noise to vote away.
//
// Determinism: all strategies are pure given their inputs; ties resolve
// by lexicographic label order.
//
// Errors: each strategy returns its own sentinel (ErrNoSharedGenes,
// ErrNoMarkers, ErrNilView); Ensemble.Run fails only on invariant
// violations, never on a single strategy's error.
package annotate
