// Package pipeline orchestrates the full analysis: load → QC →
// normalization → per-sample feature selection → integration → reduction
// → clustering → annotation → marker detection → tabular export.
//
// Every stage logs its outcome through zap and contributes to the
// RunReport. Failure semantics: malformed inputs abort the run; a sample
// or strategy that cannot participate is excluded with a recorded warning
// and the run continues.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/katalvlaran/scyto/annotate"
	"github.com/katalvlaran/scyto/cluster"
	"github.com/katalvlaran/scyto/dataset"
	"github.com/katalvlaran/scyto/diffexp"
	"github.com/katalvlaran/scyto/export"
	"github.com/katalvlaran/scyto/integrate"
	"github.com/katalvlaran/scyto/normalize"
	"github.com/katalvlaran/scyto/qc"
	"github.com/katalvlaran/scyto/reduce"
)

// RunReport aggregates per-stage outcomes of one pipeline run.
type RunReport struct {
	CellsLoaded   int
	CellsRetained int
	QC            *qc.Report
	Integration   *integrate.Report
	Clusters      int
	// StrategyFailures names annotation strategies that errored (they are
	// dropped, not fatal).
	StrategyFailures []annotate.Failure
	Warnings         []string
	// Outputs lists every file written.
	Outputs []string
}

// Run executes the configured pipeline. The returned report is non-nil on
// success; any error aborts the run.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*RunReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rep := &RunReport{}

	ds, err := dataset.LoadFiles(cfg.Input.Counts, cfg.Input.Meta, dataset.DefaultLoadOptions())
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	rep.CellsLoaded = len(ds.Cells)
	logger.Info("dataset loaded",
		zap.Int("cells", len(ds.Cells)),
		zap.Int("genes", len(ds.Genes)),
		zap.Int("samples", len(ds.Samples)))

	qcOpts := qc.DefaultOptions()
	qcOpts.MinGenes = cfg.QC.MinGenes
	qcOpts.MaxGenes = cfg.QC.MaxGenes
	qcOpts.MaxMitoPercent = cfg.QC.MaxMitoPercent
	qcOpts.MaxRiboPercent = cfg.QC.MaxRiboPercent
	filtered, qcRep, err := qc.Filter(ds, qcOpts)
	if err != nil {
		return nil, fmt.Errorf("qc: %w", err)
	}
	rep.QC = qcRep
	rep.CellsRetained = qcRep.Retained
	logger.Info("qc complete",
		zap.Int("retained", qcRep.Retained),
		zap.Int("removed", qcRep.Removed),
		zap.Strings("excluded_samples", qcRep.ExcludedSamples))

	norm, err := normalize.LogNormalize(filtered, normalize.Options{ScaleFactor: cfg.Normalize.ScaleFactor})
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	featOpts := normalize.DefaultFeatureOptions()
	featOpts.NFeatures = cfg.Normalize.NFeatures

	fm, intRep, err := integrateSamples(ctx, cfg, filtered, norm, featOpts, logger, rep)
	if err != nil {
		return nil, err
	}
	rep.Integration = intRep

	pca, err := reduce.PCA(fm, reduce.PCAOptions{Components: cfg.Reduce.Components})
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	layout, err := reduce.Layout2D(pca.Embedding, reduce.LayoutOptions{
		Neighbors:  cfg.Reduce.LayoutNeighbors,
		Iterations: cfg.Reduce.LayoutIterations,
		Seed:       cfg.Seed,
		Workers:    cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	logger.Info("reduction complete", zap.Int("components", pca.Embedding.X.Cols()))

	asg, err := cluster.LabelPropagation(pca.Embedding, cluster.Options{
		K:       cfg.Cluster.K,
		MaxIter: cfg.Cluster.MaxIter,
		Seed:    cfg.Seed,
		Workers: cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	rep.Clusters = asg.NumClusters
	logger.Info("clustering complete", zap.Int("clusters", asg.NumClusters))

	deOpts := diffexp.DefaultOptions()
	deOpts.MinLogFC = cfg.DiffExp.MinLogFC
	deOpts.MinPct = cfg.DiffExp.MinPct
	deOpts.TopN = cfg.DiffExp.TopN
	markers, err := diffexp.Markers(norm, asg, deOpts)
	if err != nil {
		return nil, fmt.Errorf("diffexp: %w", err)
	}
	rep.Warnings = append(rep.Warnings, markers.Warnings...)

	view := &annotate.View{FM: fm, Embedding: layout, Clusters: asg, Norm: norm, Markers: markers}
	results, err := runAnnotation(ctx, cfg, view, logger, rep)
	if err != nil {
		return nil, err
	}

	if err = writeOutputs(cfg, view, layout, asg, markers, results, rep); err != nil {
		return nil, err
	}
	logger.Info("run complete",
		zap.Int("cells", len(fm.CellIDs)),
		zap.Strings("outputs", rep.Outputs))
	return rep, nil
}

// integrateSamples splits the normalized expression per sample, selects
// variable features per sample and runs anchor integration. With fewer
// than two usable samples the batch step is skipped and the whole dataset
// is scaled over its global variable features.
func integrateSamples(ctx context.Context, cfg Config, ds *dataset.Dataset, norm *normalize.Normalized,
	featOpts normalize.FeatureOptions, logger *zap.Logger, rep *RunReport) (*dataset.FeatureMatrix, *integrate.Report, error) {

	var inputs []integrate.Input
	for i := range ds.Samples {
		s := &ds.Samples[i]
		sub := subsetNorm(norm, s.CellIdx)
		features, err := normalize.FindVariableFeatures(sub, featOpts)
		if err != nil {
			if errors.Is(err, normalize.ErrNoVariableFeatures) {
				rep.Warnings = append(rep.Warnings,
					fmt.Sprintf("sample %s: no variable features, excluded from integration", s.ID))
				continue
			}
			return nil, nil, fmt.Errorf("features: sample %s: %w", s.ID, err)
		}
		inputs = append(inputs, integrate.Input{SampleID: s.ID, Norm: sub, Features: features})
	}

	if len(inputs) < 2 {
		rep.Warnings = append(rep.Warnings, "fewer than two usable samples: integration skipped")
		logger.Warn("integration skipped", zap.Int("usable_samples", len(inputs)))
		features, err := normalize.FindVariableFeatures(norm, featOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("features: %w", err)
		}
		fm, err := normalize.Scale(norm, features, normalize.DefaultScaleOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("scale: %w", err)
		}
		return fm, &integrate.Report{}, nil
	}

	res, err := integrate.Integrate(inputs,
		integrate.WithContext(ctx),
		integrate.WithK(cfg.Integrate.K),
		integrate.WithDims(cfg.Integrate.Dims),
		integrate.WithMinScore(cfg.Integrate.MinScore),
		integrate.WithMinSharedFeatures(cfg.Integrate.MinSharedFeatures),
		integrate.WithMinCells(cfg.Integrate.MinCells),
		integrate.WithKernelWidth(cfg.Integrate.KernelWidth),
		integrate.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("integrate: %w", err)
	}
	rep.Warnings = append(rep.Warnings, res.Report.Warnings...)
	logger.Info("integration complete",
		zap.Int("cells", len(res.FM.CellIDs)),
		zap.Int("shared_features", res.Report.SharedFeatures),
		zap.Int("pairs", len(res.Report.Pairs)),
		zap.Strings("excluded_samples", res.Report.ExcludedSamples))
	return res.FM, &res.Report, nil
}

// runAnnotation assembles the configured strategies and runs the ensemble.
// No configured strategy is not an error; the labels table is then skipped.
func runAnnotation(ctx context.Context, cfg Config, view *annotate.View,
	logger *zap.Logger, rep *RunReport) ([]*annotate.Result, error) {

	var strategies []annotate.Annotator
	if cfg.Annotate.Reference != "" {
		ref, err := LoadReference(cfg.Annotate.Reference)
		if err != nil {
			return nil, err
		}
		rc := annotate.NewRefCor(ref)
		if cfg.Annotate.MinMargin > 0 {
			rc.MinMargin = cfg.Annotate.MinMargin
		}
		strategies = append(strategies, rc)
	}
	if cfg.Annotate.MarkerTree != "" {
		tree, err := LoadMarkerTree(cfg.Annotate.MarkerTree)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, annotate.NewMarkerTree(tree))
	}
	if cfg.Annotate.KnowledgeBase != "" {
		kb, err := LoadKnowledgeBase(cfg.Annotate.KnowledgeBase)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, annotate.NewMarkerScore(kb))
	}
	if len(strategies) == 0 {
		logger.Info("annotation skipped: no reference data configured")
		return nil, nil
	}

	outcome, err := annotate.NewEnsemble(strategies...).Run(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	rep.StrategyFailures = outcome.Failures
	for _, f := range outcome.Failures {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("annotation strategy %s failed: %v", f.Method, f.Err))
		logger.Warn("annotation strategy failed", zap.String("method", f.Method), zap.Error(f.Err))
	}
	logger.Info("annotation complete", zap.Int("strategies", len(outcome.Results)))
	return outcome.Results, nil
}

// writeOutputs emits the tabular results into the output directory.
func writeOutputs(cfg Config, view *annotate.View, layout *dataset.Embedding,
	asg *cluster.Assignment, markers *diffexp.Result, results []*annotate.Result, rep *RunReport) error {

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	write := func(name string, fn func(f *os.File) error) error {
		path := filepath.Join(cfg.Output.Dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}
		defer f.Close()
		if err = fn(f); err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}
		rep.Outputs = append(rep.Outputs, path)
		return nil
	}

	if len(results) > 0 {
		if err := write("labels.tsv", func(f *os.File) error {
			return export.Labels(f, view, results)
		}); err != nil {
			return err
		}
	}
	if err := write("markers.tsv", func(f *os.File) error {
		return export.MarkerTable(f, markers)
	}); err != nil {
		return err
	}
	return write("embedding.tsv", func(f *os.File) error {
		return export.EmbeddingTable(f, layout, asg)
	})
}

// subsetNorm carves out the rows of one sample; genes are shared with the
// parent.
func subsetNorm(n *normalize.Normalized, rows []int) *normalize.Normalized {
	sub := &normalize.Normalized{Genes: n.Genes, GeneIndex: n.GeneIndex}
	for _, r := range rows {
		sub.Rows = append(sub.Rows, n.Rows[r])
		sub.CellIDs = append(sub.CellIDs, n.CellIDs[r])
	}
	return sub
}
