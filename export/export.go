// Package export writes pipeline results as tab-separated tables.
//
// Two writers cover the tabular surface: Labels emits one row per cell
// with its sample, cluster and every annotation strategy's call;
// MarkerTable emits one row per (cluster, gene) with the differential
// statistics. Both write a header row first and use encoding/csv with a
// tab delimiter, so the output round-trips through standard TSV tooling.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/katalvlaran/scyto/annotate"
	"github.com/katalvlaran/scyto/cluster"
	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/diffexp"
)

var (
	// ErrNilInput is returned when a writer receives nil data.
	ErrNilInput = errors.New("export: nil input")
)

// Labels writes the per-cell annotation table: cell id, sample, cluster,
// then a label and confidence column pair per strategy in results order.
// Cells a strategy did not call get empty fields. Row order follows the
// view's cell order.
func Labels(w io.Writer, v *annotate.View, results []*annotate.Result) error {
	if v == nil || v.FM == nil || v.Clusters == nil {
		return ErrNilInput
	}

	clusterOf := make(map[string]int, len(v.Clusters.CellIDs))
	for i, id := range v.Clusters.CellIDs {
		clusterOf[id] = v.Clusters.Labels[i]
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{"cell_id", "sample", "cluster"}
	for _, r := range results {
		header = append(header, r.Method+"_label", r.Method+"_confidence")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for _, id := range v.FM.CellIDs {
		sample, _, err := dataset.SplitCellID(id, "_")
		if err != nil {
			return err
		}
		row = row[:0]
		row = append(row, id, sample)
		if c, ok := clusterOf[id]; ok {
			row = append(row, strconv.Itoa(c))
		} else {
			row = append(row, "")
		}
		for _, r := range results {
			if l, ok := r.Labels[id]; ok {
				row = append(row, l.Value, formatFloat(l.Confidence))
			} else {
				row = append(row, "", "")
			}
		}
		if err = cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarkerTable writes the differential-expression table: one row per
// (cluster, gene) in ranking order.
func MarkerTable(w io.Writer, markers *diffexp.Result) error {
	if markers == nil {
		return ErrNilInput
	}
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write([]string{"cluster", "gene", "log_fc", "t_stat", "pct_in", "pct_out"}); err != nil {
		return err
	}
	for _, cm := range markers.Clusters {
		for _, m := range cm.Markers {
			rec := []string{
				strconv.Itoa(cm.Cluster),
				m.Gene,
				formatFloat(m.LogFC),
				formatFloat(m.T),
				formatFloat(m.PctIn),
				formatFloat(m.PctOut),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("export: cluster %d gene %s: %w", cm.Cluster, m.Gene, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// EmbeddingTable writes 2-D layout coordinates with cluster ids: one row
// per cell (cell_id, x, y, cluster). Extra embedding dimensions beyond the
// first two are ignored.
func EmbeddingTable(w io.Writer, emb *dataset.Embedding, asg *cluster.Assignment) error {
	if emb == nil || emb.X == nil {
		return ErrNilInput
	}
	if emb.X.Cols() < 2 {
		return fmt.Errorf("export: embedding needs 2 columns, got %d", emb.X.Cols())
	}
	clusterOf := map[string]int{}
	if asg != nil {
		for i, id := range asg.CellIDs {
			clusterOf[id] = asg.Labels[i]
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"cell_id", "x", "y", "cluster"}); err != nil {
		return err
	}
	for i, id := range emb.CellIDs {
		row, err := emb.X.Row(i)
		if err != nil {
			return err
		}
		c := ""
		if cl, ok := clusterOf[id]; ok {
			c = strconv.Itoa(cl)
		}
		if err = cw.Write([]string{id, formatFloat(row[0]), formatFloat(row[1]), c}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}
