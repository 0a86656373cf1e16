package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/scyto/annotate"
)

// ErrBadReference is returned for malformed reference data files.
var ErrBadReference = errors.New("pipeline: bad reference data")

// LoadReference reads bulk centroids from a TSV file: a header row with
// "gene" followed by one column per label, then one row per gene with its
// expression under each label.
func LoadReference(path string) (*annotate.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need a gene column plus at least one label", ErrBadReference)
	}
	labels := header[1:]

	ref := &annotate.Reference{Centroids: make(map[string][]float64, len(labels))}
	for {
		rec, errRead := r.Read()
		if errRead != nil {
			break
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: row %q has %d fields, want %d", ErrBadReference, rec[0], len(rec), len(header))
		}
		ref.Genes = append(ref.Genes, rec[0])
		for i, l := range labels {
			v, errParse := strconv.ParseFloat(rec[i+1], 64)
			if errParse != nil {
				return nil, fmt.Errorf("%w: gene %s label %s: %v", ErrBadReference, rec[0], l, errParse)
			}
			ref.Centroids[l] = append(ref.Centroids[l], v)
		}
	}
	if len(ref.Genes) == 0 {
		return nil, fmt.Errorf("%w: no genes in %s", ErrBadReference, path)
	}
	return ref, nil
}

// LoadMarkerTree reads a hierarchical marker database from YAML: a single
// root node whose children are the coarse cell types.
func LoadMarkerTree(path string) (*annotate.MarkerNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	var root annotate.MarkerNode
	if err = yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	if len(root.Children) == 0 {
		return nil, fmt.Errorf("%w: marker tree %s has no children", ErrBadReference, path)
	}
	return &root, nil
}

// LoadKnowledgeBase reads a weighted marker knowledge base from YAML:
// label → gene → weight.
func LoadKnowledgeBase(path string) (annotate.KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	var kb annotate.KnowledgeBase
	if err = yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReference, err)
	}
	if len(kb) == 0 {
		return nil, fmt.Errorf("%w: knowledge base %s is empty", ErrBadReference, path)
	}
	return kb, nil
}
