// Package integrate aligns per-sample expression matrices into one shared
// batch-corrected space using mutual-nearest-neighbor anchors.
//
// What
//
//	Given per-sample normalized expression and per-sample variable
//	features, Integrate:
//	  1. fixes a shared feature vocabulary (the intersection of the
//	     samples' variable features, in the first sample's rank order);
//	  2. z-scores each sample independently over that vocabulary;
//	  3. orders samples by descending cell count and folds each sample
//	     into a running reference, largest first;
//	  4. per pair, projects reference and query into a joint reduced
//	     subspace (joint principal components, rows L2-normalized),
//	     finds k mutual nearest neighbors across the pair — the anchors —
//	     and scores each anchor by shared-neighbor overlap on both sides;
//	  5. corrects every query cell by a Gaussian-distance-weighted average
//	     of its anchors' feature-space deltas, then appends the corrected
//	     cells to the reference.
//
// Anchor rule
//
//	A pair (a ∈ A, b ∈ B) is an anchor iff b is among a's k nearest
//	neighbors in B and a is among b's k nearest in A. Asymmetric matches
//	are discarded. The anchor score is the mean of the two directional
//	shared-neighbor overlaps, so FindAnchors(B, A) yields the mirrored
//	pairs with identical scores.
//
// Failure semantics
//
//	A sample too small to integrate is excluded with a warning; a pair
//	with no anchors above the score threshold is excluded and reported —
//	its cells are left out of the merged result. Neither aborts the run;
//	only invalid input does.
//
// Determinism
//
//	Neighbor searches tie-break by row index and the joint reduction
//	inherits the matrix package's eigenvector sign convention, so the
//	whole integration is reproducible without any seed.
//
// Complexity
//
//	Per pair: O((nA+nB)·g²+g³) for the joint reduction (g shared
//	features) plus O(nA·nB·dims) for the neighbor searches and
//	O(nB·anchors·g) for correction.
package integrate
