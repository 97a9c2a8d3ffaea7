// Package commands implements the quarry CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarryhq/quarry/pkg/config"
	"github.com/quarryhq/quarry/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - declarative infrastructure reconciliation",
		Long: `Quarry reconciles declared infrastructure blueprints against the persisted
record of what was last applied. A blueprint names resources, their attribute
values, and their dependencies; quarry computes the difference and applies it
in dependency-ordered phases.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newGraphCommand())
	rootCmd.AddCommand(newMetadataCommand())

	return rootCmd
}

// loadEnvironment builds the config, logger, and metrics shared by every
// command.
func loadEnvironment() (*config.Config, *telemetry.Logger, *telemetry.Metrics, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	metrics, err := telemetry.NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := metrics.StartMetricsServer(); err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, metrics, nil
}
