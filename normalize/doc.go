// Package normalize turns raw sparse counts into comparable expression
// values and selects the informative gene subset used by reduction and
// integration.
//
// What
//
//   - LogNormalize: norm[i,j] = log1p(count[i,j] / total[i] * ScaleFactor)
//     with a fixed target library size (default 10000). Because
//     log1p(0) == 0, normalization preserves sparsity; a cell with zero
//     total counts maps to an all-zero row — never NaN or Inf — and
//     re-applying normalization to such a row is a no-op.
//   - FindVariableFeatures: per-gene mean and dispersion (variance/mean)
//     of normalized values, dispersion standardized within equal-width
//     mean bins, genes ranked by standardized dispersion under
//     configurable mean/dispersion cutoffs.
//   - Scale: per-gene z-score across cells over a chosen feature subset,
//     clipped to ±MaxValue; zero-variance genes become zero columns.
//
// Determinism
//
//	Fixed traversal order everywhere; ranking ties break by gene
//	vocabulary index. No randomness.
package normalize
