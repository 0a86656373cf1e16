// Package diffexp detects per-cluster marker genes by a one-vs-rest
// comparison of normalized expression.
//
// What: for every cluster, each gene gets a log fold change (difference of
// mean log-normalized expression in vs out of the cluster), a Welch t
// statistic and detection fractions; genes passing the fold-change and
// detection floors are ranked by t and truncated to TopN.
//
// Determinism: pure arithmetic over fixed inputs; gene index breaks ranking
// ties.
//
// Complexity: O(nnz + clusters·genes) time, O(clusters·genes) memory.
//
// Errors: ErrNilInput, ErrCellMismatch, ErrNoClusters (see Markers).
package diffexp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/scyto/cluster"
	"github.com/katalvlaran/scyto/normalize"
)

var (
	// ErrNilInput is returned when expression or assignment is nil.
	ErrNilInput = errors.New("diffexp: nil input")
	// ErrCellMismatch is returned when a clustered cell has no expression row.
	ErrCellMismatch = errors.New("diffexp: cell missing from expression")
	// ErrNoClusters is returned for an assignment without clusters.
	ErrNoClusters = errors.New("diffexp: no clusters")
)

// Options controls marker detection.
type Options struct {
	// MinLogFC keeps genes whose in-vs-out mean difference is at least this.
	MinLogFC float64
	// MinPct keeps genes detected in at least this fraction of cluster cells.
	MinPct float64
	// TopN truncates each cluster's ranked marker list.
	TopN int
	// MinCells skips clusters smaller than this (reported as a warning).
	MinCells int
}

// DefaultOptions returns the standard marker-detection thresholds.
func DefaultOptions() Options {
	return Options{MinLogFC: 0.25, MinPct: 0.1, TopN: 50, MinCells: 3}
}

// Marker is one gene's statistics for a cluster-vs-rest comparison.
type Marker struct {
	Gene   string
	LogFC  float64 // mean in-cluster minus mean out-of-cluster (log space)
	T      float64 // Welch t statistic
	PctIn  float64 // detection fraction inside the cluster
	PctOut float64 // detection fraction outside
}

// ClusterMarkers is the ranked marker list of one cluster.
type ClusterMarkers struct {
	Cluster int
	Markers []Marker
}

// Result bundles all clusters' markers plus non-fatal warnings.
type Result struct {
	Clusters []ClusterMarkers
	Warnings []string
}

// accum is a running sum / sum-of-squares / detection count per gene.
type accum struct {
	sum, sq []float64
	det     []int
	n       int
}

func newAccum(genes int) *accum {
	return &accum{sum: make([]float64, genes), sq: make([]float64, genes), det: make([]int, genes)}
}

// Markers runs the one-vs-rest comparison for every cluster in asg.
// Cluster membership is matched to expression rows by cell ID; a clustered
// cell absent from norm is ErrCellMismatch. Clusters below MinCells are
// skipped with a warning.
func Markers(norm *normalize.Normalized, asg *cluster.Assignment, opts Options) (*Result, error) {
	if norm == nil || asg == nil {
		return nil, ErrNilInput
	}
	if asg.NumClusters == 0 {
		return nil, ErrNoClusters
	}
	g := len(norm.Genes)

	rowOf := make(map[string]int, len(norm.CellIDs))
	for i, id := range norm.CellIDs {
		rowOf[id] = i
	}

	// One pass over the sparse rows fills per-cluster and global sums.
	global := newAccum(g)
	perCluster := make([]*accum, asg.NumClusters)
	for c := range perCluster {
		perCluster[c] = newAccum(g)
	}
	for i, id := range asg.CellIDs {
		row, ok := rowOf[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCellMismatch, id)
		}
		acc := perCluster[asg.Labels[i]]
		acc.n++
		global.n++
		sv := norm.Rows[row]
		for t, gi := range sv.Idx {
			v := sv.Val[t]
			acc.sum[gi] += v
			acc.sq[gi] += v * v
			acc.det[gi]++
			global.sum[gi] += v
			global.sq[gi] += v * v
			global.det[gi]++
		}
	}

	res := &Result{}
	for c := 0; c < asg.NumClusters; c++ {
		in := perCluster[c]
		if in.n < opts.MinCells {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("cluster %d: %d cells < %d, markers skipped", c, in.n, opts.MinCells))
			continue
		}
		nOut := global.n - in.n
		if nOut < 2 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("cluster %d: only %d cells outside, markers skipped", c, nOut))
			continue
		}

		var markers []Marker
		for gi := 0; gi < g; gi++ {
			m := geneStats(in, global, gi, nOut, norm.Genes[gi])
			if m.LogFC >= opts.MinLogFC && m.PctIn >= opts.MinPct {
				markers = append(markers, m)
			}
		}
		sort.Slice(markers, func(a, b int) bool {
			if markers[a].T != markers[b].T {
				return markers[a].T > markers[b].T
			}
			return markers[a].Gene < markers[b].Gene
		})
		if opts.TopN > 0 && len(markers) > opts.TopN {
			markers = markers[:opts.TopN]
		}
		res.Clusters = append(res.Clusters, ClusterMarkers{Cluster: c, Markers: markers})
	}
	return res, nil
}

// geneStats derives one gene's marker statistics from the in-cluster and
// global accumulators. The out-of-cluster side is global minus in.
func geneStats(in, global *accum, gi, nOut int, gene string) Marker {
	nIn := in.n
	sumOut := global.sum[gi] - in.sum[gi]
	sqOut := global.sq[gi] - in.sq[gi]

	meanIn := in.sum[gi] / float64(nIn)
	meanOut := sumOut / float64(nOut)
	varIn := sampleVar(in.sq[gi], in.sum[gi], nIn)
	varOut := sampleVar(sqOut, sumOut, nOut)

	se := math.Sqrt(varIn/float64(nIn) + varOut/float64(nOut))
	var t float64
	if se > 0 {
		t = (meanIn - meanOut) / se
	}
	return Marker{
		Gene:   gene,
		LogFC:  meanIn - meanOut,
		T:      t,
		PctIn:  float64(in.det[gi]) / float64(nIn),
		PctOut: float64(global.det[gi]-in.det[gi]) / float64(nOut),
	}
}

// sampleVar is the unbiased variance from a sum and sum of squares,
// clamped at zero against rounding.
func sampleVar(sq, sum float64, n int) float64 {
	if n < 2 {
		return 0
	}
	v := (sq - sum*sum/float64(n)) / float64(n-1)
	if v < 0 {
		return 0
	}
	return v
}
