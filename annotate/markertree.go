package annotate

import (
	"context"
	"fmt"
	"sort"
)

// MarkerTree defaults.
const (
	DefaultMinEvidence   = 0.5
	DefaultExprThreshold = 0.25
)

// MarkerNode is one cell-type hypothesis in a hierarchical marker
// database: a label, its marker genes and finer subtypes.
type MarkerNode struct {
	Label    string        `yaml:"label"`
	Genes    []string      `yaml:"genes"`
	Children []*MarkerNode `yaml:"children,omitempty"`
}

// MarkerTree labels whole clusters by descending a marker hierarchy:
// starting from the root's children, a cluster adopts the best-supported
// node whose marker evidence clears MinEvidence, then tries that node's
// children, stopping at the deepest supported label.
type MarkerTree struct {
	Root *MarkerNode
	// MinEvidence is the marker-detection fraction a node must reach.
	MinEvidence float64
	// ExprThreshold is the mean expression above which a marker counts
	// as detected in a cluster.
	ExprThreshold float64
}

// NewMarkerTree builds the strategy with default thresholds.
func NewMarkerTree(root *MarkerNode) *MarkerTree {
	return &MarkerTree{Root: root, MinEvidence: DefaultMinEvidence, ExprThreshold: DefaultExprThreshold}
}

func (m *MarkerTree) Name() string { return "markertree" }

// Annotate walks the hierarchy once per cluster and stamps the reached
// label on every cell of the cluster. Clusters where no top-level node is
// supported stay unlabeled.
func (m *MarkerTree) Annotate(ctx context.Context, v *View) (*Result, error) {
	if !v.complete() || m.Root == nil {
		return nil, ErrNilView
	}

	profiles, members, err := clusterProfiles(v)
	if err != nil {
		return nil, err
	}

	out := &Result{Method: m.Name(), Labels: make(map[string]Label)}
	for c, profile := range profiles {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if profile == nil {
			continue // empty cluster
		}
		label, conf := m.descend(m.Root.Children, profile, v)
		if label == "" {
			continue
		}
		for _, id := range members[c] {
			out.Labels[id] = Label{Value: label, Confidence: conf}
		}
	}
	return out, nil
}

// descend picks the best-supported node at each level and recurses into
// its children, returning the deepest supported label.
func (m *MarkerTree) descend(nodes []*MarkerNode, profile []float64, v *View) (string, float64) {
	var (
		best     *MarkerNode
		bestEv   float64
		bestName string
	)
	// Sorted copy keeps tie-breaking stable regardless of input order.
	sorted := append([]*MarkerNode(nil), nodes...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Label < sorted[b].Label })
	for _, n := range sorted {
		ev := m.evidence(n, profile, v)
		if ev >= m.MinEvidence && ev > bestEv {
			best, bestEv, bestName = n, ev, n.Label
		}
	}
	if best == nil {
		return "", 0
	}
	if child, ev := m.descend(best.Children, profile, v); child != "" {
		return child, ev
	}
	return bestName, bestEv
}

// evidence is the fraction of a node's markers whose cluster-mean
// expression clears ExprThreshold. Markers absent from the vocabulary
// count against the node.
func (m *MarkerTree) evidence(n *MarkerNode, profile []float64, v *View) float64 {
	if len(n.Genes) == 0 {
		return 0
	}
	hits := 0
	for _, g := range n.Genes {
		if gi, ok := v.Norm.GeneIndex[g]; ok && profile[gi] > m.ExprThreshold {
			hits++
		}
	}
	return float64(hits) / float64(len(n.Genes))
}

// clusterProfiles computes mean normalized expression per cluster and the
// member cell IDs, indexed by cluster id.
func clusterProfiles(v *View) ([][]float64, [][]string, error) {
	rowOf := v.rowIndex()
	g := len(v.Norm.Genes)
	profiles := make([][]float64, v.Clusters.NumClusters)
	members := make([][]string, v.Clusters.NumClusters)
	counts := make([]int, v.Clusters.NumClusters)

	for i, id := range v.Clusters.CellIDs {
		row, ok := rowOf[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrCellMismatch, id)
		}
		c := v.Clusters.Labels[i]
		if profiles[c] == nil {
			profiles[c] = make([]float64, g)
		}
		sv := v.Norm.Rows[row]
		for t, gi := range sv.Idx {
			profiles[c][gi] += sv.Val[t]
		}
		members[c] = append(members[c], id)
		counts[c]++
	}
	for c, p := range profiles {
		if p == nil {
			continue
		}
		inv := 1 / float64(counts[c])
		for gi := range p {
			p[gi] *= inv
		}
	}
	return profiles, members, nil
}
