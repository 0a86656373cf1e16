// Package dataset defines the observational data model of the pipeline —
// cells, samples and sparse gene counts — plus a delimited-text loader.
//
// What
//
//   - Cell: one observational unit with an immutable identifier and an
//     immutable sparse count vector. QC metrics are derived fields filled
//     by the qc package on copies, never in place.
//   - Sample: all cells sharing one patient/acquisition batch, carrying a
//     clinical label.
//   - Dataset: fixed gene vocabulary shared across all samples + cells +
//     per-sample groupings. Cells are created at load time and only ever
//     removed (Subset), never added.
//   - FeatureMatrix / Embedding: dense derived tables whose row order
//     matches cell identity.
//
// Identifier policy
//
//	Cell identifiers embed the sample of origin as PATIENT_BARCODE.
//	Loading fails fast with ErrMalformedCellID when the composite cannot
//	be split — a silent null sample assignment would corrupt every
//	downstream per-sample statistic.
//
// Determinism
//
//	Gene vocabulary and cell order follow first appearance in the input;
//	sample order is lexicographic by sample ID. Identical inputs always
//	produce identical datasets.
package dataset
