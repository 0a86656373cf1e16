// Package integrate: options, result types and error definitions.
package integrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/normalize"
)

// Sentinel errors for integration.
var (
	// ErrNeedTwoSamples is returned when fewer than two usable samples remain.
	ErrNeedTwoSamples = errors.New("integrate: need at least two samples")

	// ErrNilInput is returned for nil normalized inputs.
	ErrNilInput = errors.New("integrate: nil input")

	// ErrVocabularyTooSmall is returned when the shared variable-feature
	// intersection is below the configured minimum.
	ErrVocabularyTooSmall = errors.New("integrate: shared feature vocabulary too small")

	// ErrNoAnchors is returned when no anchor passes the score threshold
	// for a sample pair.
	ErrNoAnchors = errors.New("integrate: no anchors above score threshold")

	// ErrSampleTooSmall is returned when a sample cannot supply even a
	// reduced neighbor count.
	ErrSampleTooSmall = errors.New("integrate: sample too small")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("integrate: invalid option supplied")
)

// Input is one sample's contribution: its normalized expression and its
// ranked variable features.
type Input struct {
	SampleID string
	Norm     *normalize.Normalized
	Features []string
}

// Anchor is a mutual-nearest-neighbor pair: row A in the reference side,
// row B in the query side, with its neighborhood-overlap score in [0,1].
type Anchor struct {
	A, B  int
	Score float64
}

// AnchorSet holds the surviving anchors of one pair plus the effective
// neighbor count used (k may shrink for small samples).
type AnchorSet struct {
	Anchors []Anchor
	K       int
	// Raw counts mutual pairs before score filtering.
	Raw int
}

// PairReport describes one fold-in step.
type PairReport struct {
	Reference string
	Query     string
	RawAnchors int
	Anchors    int
	Excluded   bool
	Reason     string
}

// Report aggregates everything a caller needs to audit an integration run.
type Report struct {
	SharedFeatures  int
	Pairs           []PairReport
	ExcludedSamples []string
	Warnings        []string
}

// Result is the merged corrected matrix over the shared vocabulary plus
// the run report. Row order: reference sample first, then each folded
// sample in integration order.
type Result struct {
	FM     *dataset.FeatureMatrix
	Report Report
}

// Option configures integration via functional arguments. An invalid
// Option is recorded internally and surfaced as ErrOptionViolation when
// Integrate (or FindAnchors) is invoked.
type Option func(*Options)

// Options holds the integration parameters.
type Options struct {
	// Ctx allows cancellation between fold-in steps.
	Ctx context.Context
	// K is the neighbor count for anchor search (default 5).
	K int
	// Dims is the joint reduced subspace dimensionality (default 20).
	Dims int
	// MinScore drops anchors scoring below it (default 0.1).
	MinScore float64
	// MinSharedFeatures bounds the shared vocabulary (default 30).
	MinSharedFeatures int
	// MinCells excludes samples smaller than this (default 3).
	MinCells int
	// KernelWidth is the Gaussian sigma for correction weights (default 1).
	KernelWidth float64
	// Workers bounds parallel neighbor search and correction (0 = NumCPU).
	Workers int

	// internal error recorded during option parsing
	err error
}

// DefaultOptions returns the standard integration parameters.
func DefaultOptions() Options {
	return Options{
		Ctx:               context.Background(),
		K:                 5,
		Dims:              20,
		MinScore:          0.1,
		MinSharedFeatures: 30,
		MinCells:          3,
		KernelWidth:       1,
	}
}

// WithContext sets a custom context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithK sets the anchor neighbor count (k >= 1).
func WithK(k int) Option {
	return func(o *Options) {
		if k < 1 {
			o.err = fmt.Errorf("%w: K must be >= 1 (%d)", ErrOptionViolation, k)
			return
		}
		o.K = k
	}
}

// WithDims sets the joint subspace dimensionality (d >= 2).
func WithDims(d int) Option {
	return func(o *Options) {
		if d < 2 {
			o.err = fmt.Errorf("%w: Dims must be >= 2 (%d)", ErrOptionViolation, d)
			return
		}
		o.Dims = d
	}
}

// WithMinScore sets the anchor score threshold in [0,1].
func WithMinScore(s float64) Option {
	return func(o *Options) {
		if s < 0 || s > 1 {
			o.err = fmt.Errorf("%w: MinScore must be in [0,1] (%v)", ErrOptionViolation, s)
			return
		}
		o.MinScore = s
	}
}

// WithMinSharedFeatures sets the minimum shared vocabulary size.
func WithMinSharedFeatures(n int) Option {
	return func(o *Options) {
		if n < 1 {
			o.err = fmt.Errorf("%w: MinSharedFeatures must be >= 1 (%d)", ErrOptionViolation, n)
			return
		}
		o.MinSharedFeatures = n
	}
}

// WithMinCells sets the minimum usable sample size.
func WithMinCells(n int) Option {
	return func(o *Options) {
		if n < 2 {
			o.err = fmt.Errorf("%w: MinCells must be >= 2 (%d)", ErrOptionViolation, n)
			return
		}
		o.MinCells = n
	}
}

// WithKernelWidth sets the Gaussian correction kernel sigma (> 0).
func WithKernelWidth(sigma float64) Option {
	return func(o *Options) {
		if sigma <= 0 {
			o.err = fmt.Errorf("%w: KernelWidth must be > 0 (%v)", ErrOptionViolation, sigma)
			return
		}
		o.KernelWidth = sigma
	}
}

// WithWorkers bounds worker parallelism (0 means NumCPU).
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: Workers cannot be negative (%d)", ErrOptionViolation, n)
			return
		}
		o.Workers = n
	}
}
