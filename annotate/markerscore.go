package annotate

import (
	"context"
	"sort"
)

// KnowledgeBase maps label → marker gene → weight. Unlisted genes carry
// zero weight.
type KnowledgeBase map[string]map[string]float64

// MarkerScore labels whole clusters by scoring their differential genes
// against a weighted marker knowledge base: score(cluster, label) is the
// summed weight of the cluster's markers under that label, the best label
// wins and confidence is its share of the total score mass.
type MarkerScore struct {
	KB KnowledgeBase
}

// NewMarkerScore builds the strategy.
func NewMarkerScore(kb KnowledgeBase) *MarkerScore {
	return &MarkerScore{KB: kb}
}

func (m *MarkerScore) Name() string { return "markerscore" }

// Annotate requires View.Markers (diffexp output). Clusters whose markers
// hit no knowledge-base entry stay unlabeled.
func (m *MarkerScore) Annotate(ctx context.Context, v *View) (*Result, error) {
	if !v.complete() || m.KB == nil {
		return nil, ErrNilView
	}
	if v.Markers == nil {
		return nil, ErrNoMarkers
	}

	// Cluster id → member cell IDs.
	members := make(map[int][]string)
	for i, id := range v.Clusters.CellIDs {
		members[v.Clusters.Labels[i]] = append(members[v.Clusters.Labels[i]], id)
	}

	labels := make([]string, 0, len(m.KB))
	for l := range m.KB {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	out := &Result{Method: m.Name(), Labels: make(map[string]Label)}
	for _, cm := range v.Markers.Clusters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var total, best float64
		bestLabel := ""
		for _, l := range labels {
			weights := m.KB[l]
			var score float64
			for _, mk := range cm.Markers {
				score += weights[mk.Gene]
			}
			total += score
			if score > best {
				best, bestLabel = score, l
			}
		}
		if best == 0 {
			continue
		}
		conf := best / total
		for _, id := range members[cm.Cluster] {
			out.Labels[id] = Label{Value: bestLabel, Confidence: conf}
		}
	}
	return out, nil
}
