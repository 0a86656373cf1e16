package pipeline

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrBadConfig is returned when a configuration file is unreadable,
// unparsable or missing required paths.
var ErrBadConfig = errors.New("pipeline: bad config")

// InputConfig names the raw data files.
type InputConfig struct {
	Counts string `yaml:"counts"`
	Meta   string `yaml:"meta"`
}

// QCConfig carries the cell-filtering thresholds.
type QCConfig struct {
	MinGenes       int     `yaml:"min_genes"`
	MaxGenes       int     `yaml:"max_genes"`
	MaxMitoPercent float64 `yaml:"max_mito_percent"`
	MaxRiboPercent float64 `yaml:"max_ribo_percent"`
}

// NormalizeConfig carries normalization and feature-selection parameters.
type NormalizeConfig struct {
	ScaleFactor float64 `yaml:"scale_factor"`
	NFeatures   int     `yaml:"n_features"`
}

// IntegrateConfig carries the batch-integration parameters.
type IntegrateConfig struct {
	K                 int     `yaml:"k"`
	Dims              int     `yaml:"dims"`
	MinScore          float64 `yaml:"min_score"`
	MinSharedFeatures int     `yaml:"min_shared_features"`
	MinCells          int     `yaml:"min_cells"`
	KernelWidth       float64 `yaml:"kernel_width"`
}

// ReduceConfig carries dimensionality-reduction parameters.
type ReduceConfig struct {
	Components       int `yaml:"components"`
	LayoutNeighbors  int `yaml:"layout_neighbors"`
	LayoutIterations int `yaml:"layout_iterations"`
}

// ClusterConfig carries the label-propagation parameters.
type ClusterConfig struct {
	K       int `yaml:"k"`
	MaxIter int `yaml:"max_iter"`
}

// AnnotateConfig points at reference data; empty paths disable the
// corresponding strategy.
type AnnotateConfig struct {
	Reference     string  `yaml:"reference"`
	MarkerTree    string  `yaml:"marker_tree"`
	KnowledgeBase string  `yaml:"knowledge_base"`
	MinMargin     float64 `yaml:"min_margin"`
}

// DiffExpConfig carries marker-detection thresholds.
type DiffExpConfig struct {
	MinLogFC float64 `yaml:"min_log_fc"`
	MinPct   float64 `yaml:"min_pct"`
	TopN     int     `yaml:"top_n"`
}

// OutputConfig names the result directory.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Config is the full pipeline configuration.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	QC        QCConfig        `yaml:"qc"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Integrate IntegrateConfig `yaml:"integrate"`
	Reduce    ReduceConfig    `yaml:"reduce"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Annotate  AnnotateConfig  `yaml:"annotate"`
	DiffExp   DiffExpConfig   `yaml:"diffexp"`
	Output    OutputConfig    `yaml:"output"`
	Seed      int64           `yaml:"seed"`
	Workers   int             `yaml:"workers"`
}

// DefaultConfig mirrors every stage's package defaults.
func DefaultConfig() Config {
	return Config{
		QC:        QCConfig{MinGenes: 400, MaxGenes: 7000, MaxMitoPercent: 20, MaxRiboPercent: 20},
		Normalize: NormalizeConfig{ScaleFactor: 10000, NFeatures: 2000},
		Integrate: IntegrateConfig{K: 5, Dims: 20, MinScore: 0.1, MinSharedFeatures: 30, MinCells: 3, KernelWidth: 1},
		Reduce:    ReduceConfig{Components: 20, LayoutNeighbors: 15, LayoutIterations: 200},
		Cluster:   ClusterConfig{K: 10, MaxIter: 50},
		Annotate:  AnnotateConfig{MinMargin: 0.05},
		DiffExp:   DiffExpConfig{MinLogFC: 0.25, MinPct: 0.1, TopN: 50},
		Output:    OutputConfig{Dir: "results"},
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required paths and basic parameter sanity.
func (c *Config) Validate() error {
	if c.Input.Counts == "" {
		return fmt.Errorf("%w: input.counts is required", ErrBadConfig)
	}
	if c.Input.Meta == "" {
		return fmt.Errorf("%w: input.meta is required", ErrBadConfig)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir is required", ErrBadConfig)
	}
	if c.QC.MinGenes >= c.QC.MaxGenes {
		return fmt.Errorf("%w: qc.min_genes must be below qc.max_genes", ErrBadConfig)
	}
	return nil
}
