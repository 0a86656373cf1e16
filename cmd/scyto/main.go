// Command scyto runs the single-cell analysis pipeline from a YAML
// configuration: loading, QC, normalization, integration, reduction,
// clustering, annotation and tabular export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/scyto/pipeline"
)

var (
	configPath string
	outDir     string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scyto",
	Short: "scyto - exploratory single-cell RNA-seq pipeline",
	Long: `scyto analyzes single-cell RNA-seq count data end to end:
quality filtering, normalization, anchor-based batch integration,
dimensionality reduction, clustering, ensemble cell-type annotation
and marker detection, exported as tab-separated tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline described by --config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipeline.Load(configPath)
		if err != nil {
			return err
		}
		if outDir != "" {
			cfg.Output.Dir = outDir
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := pipeline.Run(ctx, cfg, logger)
		if err != nil {
			return err
		}
		for _, w := range rep.Warnings {
			logger.Warn(w)
		}
		fmt.Printf("cells: %d loaded, %d retained, %d clusters\n",
			rep.CellsLoaded, rep.CellsRetained, rep.Clusters)
		for _, out := range rep.Outputs {
			fmt.Println(out)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	runCmd.Flags().StringVarP(&configPath, "config", "c", "scyto.yaml", "pipeline configuration file")
	runCmd.Flags().StringVarP(&outDir, "out", "o", "", "override the output directory")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
