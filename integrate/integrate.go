package integrate

import (
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/matrix"
	"github.com/katalvlaran/scyto/normalize"
)

// SharedFeatures computes the shared vocabulary: the intersection of every
// input's variable features, ordered by the first input's ranking.
// Returns ErrVocabularyTooSmall below min.
func SharedFeatures(inputs []Input, min int) ([]string, error) {
	if len(inputs) == 0 {
		return nil, ErrNeedTwoSamples
	}
	counts := make(map[string]int)
	for _, in := range inputs[1:] {
		seen := make(map[string]bool, len(in.Features))
		for _, f := range in.Features {
			if !seen[f] {
				seen[f] = true
				counts[f]++
			}
		}
	}
	var shared []string
	need := len(inputs) - 1
	for _, f := range inputs[0].Features {
		if counts[f] == need {
			shared = append(shared, f)
		}
	}
	if len(shared) < min {
		return nil, fmt.Errorf("%w: %d < %d", ErrVocabularyTooSmall, len(shared), min)
	}
	return shared, nil
}

// Integrate folds every sample into a shared batch-corrected feature
// matrix. See the package comment for the algorithm; see Report for the
// audit trail of exclusions and warnings.
func Integrate(inputs []Input, opts ...Option) (*Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	rep := Report{}

	// Drop unusable samples up front.
	usable := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if in.Norm == nil {
			return nil, ErrNilInput
		}
		if len(in.Norm.Rows) < o.MinCells {
			rep.ExcludedSamples = append(rep.ExcludedSamples, in.SampleID)
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("sample %s: %d cells < MinCells %d, excluded", in.SampleID, len(in.Norm.Rows), o.MinCells))
			continue
		}
		usable = append(usable, in)
	}
	if len(usable) < 2 {
		return nil, ErrNeedTwoSamples
	}

	shared, err := SharedFeatures(usable, o.MinSharedFeatures)
	if err != nil {
		return nil, err
	}
	rep.SharedFeatures = len(shared)

	// Per-sample z-scored matrices over the shared vocabulary.
	scaled := make([]*dataset.FeatureMatrix, len(usable))
	for i, in := range usable {
		fm, errScale := normalize.Scale(in.Norm, shared, normalize.DefaultScaleOptions())
		if errScale != nil {
			return nil, fmt.Errorf("integrate: sample %s: %w", in.SampleID, errScale)
		}
		scaled[i] = fm
	}

	// Largest sample first; stable tie-break by sample ID.
	order := make([]int, len(usable))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		na, nb := scaled[order[a]].X.Rows(), scaled[order[b]].X.Rows()
		if na != nb {
			return na > nb
		}
		return usable[order[a]].SampleID < usable[order[b]].SampleID
	})

	refName := usable[order[0]].SampleID
	refX := scaled[order[0]].X.Clone()
	refIDs := append([]string(nil), scaled[order[0]].CellIDs...)

	for _, qi := range order[1:] {
		if err = o.Ctx.Err(); err != nil {
			return nil, err
		}
		query := usable[qi]
		pr := PairReport{Reference: refName, Query: query.SampleID}

		corrected, set, errPair := correctPair(refX, scaled[qi].X, &o)
		if errPair != nil {
			pr.Excluded = true
			pr.Reason = errPair.Error()
			rep.Pairs = append(rep.Pairs, pr)
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("pair (%s, %s): %v — cells excluded", refName, query.SampleID, errPair))
			continue
		}
		pr.RawAnchors = set.Raw
		pr.Anchors = len(set.Anchors)
		rep.Pairs = append(rep.Pairs, pr)

		refX, err = matrix.VStack(refX, corrected)
		if err != nil {
			return nil, err
		}
		refIDs = append(refIDs, scaled[qi].CellIDs...)
	}

	genes := append([]string(nil), shared...)
	return &Result{
		FM:     &dataset.FeatureMatrix{X: refX, CellIDs: refIDs, Genes: genes},
		Report: rep,
	}, nil
}

// correctPair projects the pair into the joint subspace, finds anchors and
// returns the corrected query matrix in the shared feature space.
func correctPair(refX, qX *matrix.Dense, o *Options) (*matrix.Dense, *AnchorSet, error) {
	refC, qC, err := jointReduce(refX, qX, o.Dims)
	if err != nil {
		return nil, nil, err
	}
	set, err := findAnchors(refC, qC, o)
	if err != nil {
		return nil, nil, err
	}

	corrected, err := applyCorrection(refX, qX, qC, set, o)
	if err != nil {
		return nil, nil, err
	}
	return corrected, set, nil
}

// jointReduce computes joint principal components of the stacked pair and
// returns the L2-normalized subspace coordinates split back per side.
func jointReduce(refX, qX *matrix.Dense, dims int) (*matrix.Dense, *matrix.Dense, error) {
	stacked, err := matrix.VStack(refX, qX)
	if err != nil {
		return nil, nil, err
	}
	if dims > stacked.Cols() {
		dims = stacked.Cols()
	}

	cov, _, err := matrix.Covariance(stacked)
	if err != nil {
		return nil, nil, err
	}
	_, vectors, err := matrix.Eigen(cov, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	loadings, err := matrix.NewDense(stacked.Cols(), dims)
	if err != nil {
		return nil, nil, err
	}
	for j := 0; j < stacked.Cols(); j++ {
		for c := 0; c < dims; c++ {
			v, errAt := vectors.At(j, c)
			if errAt != nil {
				return nil, nil, errAt
			}
			if errSet := loadings.Set(j, c, v); errSet != nil {
				return nil, nil, errSet
			}
		}
	}
	centered, _, err := matrix.CenterColumns(stacked)
	if err != nil {
		return nil, nil, err
	}
	scores, err := matrix.Mul(centered, loadings)
	if err != nil {
		return nil, nil, err
	}
	unit, _, err := matrix.NormalizeRowsL2(scores)
	if err != nil {
		return nil, nil, err
	}

	refC, err := sliceRows(unit, 0, refX.Rows())
	if err != nil {
		return nil, nil, err
	}
	qC, err := sliceRows(unit, refX.Rows(), unit.Rows())
	if err != nil {
		return nil, nil, err
	}
	return refC, qC, nil
}

// applyCorrection shifts every query cell by the weighted mean of anchor
// deltas (reference features minus query features), with Gaussian weights
// on joint-subspace distance to each anchor's query-side cell, scaled by
// anchor score. Parallel across query cells.
func applyCorrection(refX, qX, qC *matrix.Dense, set *AnchorSet, o *Options) (*matrix.Dense, error) {
	g := qX.Cols()

	// Precompute anchor deltas once: deltas[i] = refX[a_i] − qX[b_i].
	deltas := make([][]float64, len(set.Anchors))
	for i, an := range set.Anchors {
		ra, err := refX.Row(an.A)
		if err != nil {
			return nil, err
		}
		rb, err := qX.Row(an.B)
		if err != nil {
			return nil, err
		}
		d := make([]float64, g)
		for j := range d {
			d[j] = ra[j] - rb[j]
		}
		deltas[i] = d
	}

	out := qX.Clone()
	inv2s2 := 1 / (2 * o.KernelWidth * o.KernelWidth)

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for x := 0; x < qX.Rows(); x++ {
		x := x
		eg.Go(func() error {
			xc, err := qC.Row(x)
			if err != nil {
				return err
			}
			weights := make([]float64, len(set.Anchors))
			var wsum float64
			for i, an := range set.Anchors {
				bc, errRow := qC.Row(an.B)
				if errRow != nil {
					return errRow
				}
				var d2 float64
				for t := range xc {
					diff := xc[t] - bc[t]
					d2 += diff * diff
				}
				w := an.Score * math.Exp(-d2*inv2s2)
				weights[i] = w
				wsum += w
			}
			if wsum == 0 {
				return nil // no usable anchors nearby: leave the cell as-is
			}
			row, err := out.Row(x)
			if err != nil {
				return err
			}
			for i, w := range weights {
				if w == 0 {
					continue
				}
				f := w / wsum
				for j := 0; j < g; j++ {
					row[j] += f * deltas[i][j]
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sliceRows copies rows [from, to) into a fresh Dense.
func sliceRows(m *matrix.Dense, from, to int) (*matrix.Dense, error) {
	out, err := matrix.NewDense(to-from, m.Cols())
	if err != nil {
		return nil, err
	}
	for i := from; i < to; i++ {
		row, errRow := m.Row(i)
		if errRow != nil {
			return nil, errRow
		}
		if errSet := out.SetRow(i-from, row); errSet != nil {
			return nil, errSet
		}
	}
	return out, nil
}
