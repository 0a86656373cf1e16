// Package scyto is an in-memory toolkit for single-cell expression
// analysis — from raw sparse counts to integrated, annotated embeddings.
//
// 🚀 What is scyto?
//
//	A modular pipeline library that brings together:
//		• Dataset model: immutable cells, sparse counts, per-sample metadata
//		• QC filtering: genes-detected, mitochondrial and ribosomal fractions
//		• Normalization: log library-size scaling, variable-feature selection
//		• Reduction: PCA with an explained-variance elbow, seeded 2-D layout
//		• Integration: mutual-nearest-neighbor anchors with scored,
//		  distance-weighted batch correction across samples
//		• Clustering: seeded label propagation over the neighbor graph
//		• Annotation: an ensemble of independent labeling strategies
//		  (reference correlation, marker trees, weighted marker scoring)
//
// ✨ Why choose scyto?
//
//   - Deterministic – every stochastic step takes an explicit seed
//   - Explicit data flow – each stage returns a new result, no hidden state
//   - Honest failures – sentinel errors, per-sample exclusion reports
//   - Extensible – plug your own Annotator into the ensemble
//
// Everything is organized under small per-concern packages:
//
//	matrix/     — dense row-major core: kernels, statistics, Jacobi eigen
//	dataset/    — cells, samples, sparse counts, delimited loading
//	qc/         — quality metrics and threshold filtering
//	normalize/  — log-normalization, variable features, z-score scaling
//	reduce/     — PCA, elbow selection, neighbor-graph 2-D layout
//	neighbors/  — exact parallel k-nearest-neighbor search
//	cluster/    — label propagation over the kNN graph
//	integrate/  — anchor-based batch correction across samples
//	annotate/   — pluggable annotation strategies and the ensemble
//	diffexp/    — per-cluster marker gene detection
//	export/     — tab-delimited label and marker tables
//	pipeline/   — end-to-end orchestration, config, structured logging
//
//	go get github.com/katalvlaran/scyto
package scyto
