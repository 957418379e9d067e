// Package cli provides the eyelet command-line boundary. Commands consume
// the core read/write contracts only: append on the write side, metrics and
// search on the read side. The terminal and web dashboards live elsewhere
// and use the same contracts.
package cli

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/eyelet/eyelet/internal/config"
	"github.com/eyelet/eyelet/internal/discovery"
	"github.com/eyelet/eyelet/internal/metrics"
	"github.com/eyelet/eyelet/internal/paths"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // explicit database path override
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eyelet CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eyelet",
		Short: "Durable hook log store and metrics for tool-invocation pipelines",
		Long: "Eyelet collects execution records emitted by an instrumented " +
			"tool-invocation pipeline, persists them to per-project SQLite logs, " +
			"and aggregates them for search and dashboards.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database path (overrides config and discovery)")

	// Add subcommands
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewDiscoverCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger returns the diagnostic logger for a command. Diagnostics go to
// stderr so JSON on stdout stays parseable.
func newLogger(cmd *cobra.Command, opts *RootOptions) *pterm.Logger {
	level := pterm.LogLevelWarn
	if opts.Verbose {
		level = pterm.LogLevelDebug
	}
	return pterm.DefaultLogger.WithLevel(level).WithWriter(cmd.ErrOrStderr())
}

// resolveDatabase returns the database path for single-store commands:
// explicit flag, then configured pin, then the canonical resolved location.
func resolveDatabase(opts *RootOptions, cfg config.Config) (string, error) {
	if opts.Database != "" {
		return paths.DatabasePath(opts.Database), nil
	}
	if cfg.DatabasePath != "" {
		return paths.DatabasePath(cfg.DatabasePath), nil
	}
	return paths.ResolveDatabase("")
}

// buildReadStack wires config, discovery, and metrics for the read-side
// commands.
func buildReadStack(opts *RootOptions) (config.Config, *discovery.Service, *metrics.Service, error) {
	cfg, err := config.Load(paths.ConfigDir(""))
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	var discOpts []discovery.Option
	if len(cfg.SearchPaths) > 0 {
		discOpts = append(discOpts, discovery.WithExtraSeeds(cfg.SearchPaths))
	}
	disc := discovery.NewService(discOpts...)

	metricOpts := []metrics.Option{metrics.WithCacheTTL(time.Duration(cfg.CacheTTL))}
	if opts.Database != "" {
		metricOpts = append(metricOpts, metrics.WithCustomDatabase(paths.DatabasePath(opts.Database)))
	} else if cfg.DatabasePath != "" {
		metricOpts = append(metricOpts, metrics.WithCustomDatabase(paths.DatabasePath(cfg.DatabasePath)))
	}

	return cfg, disc, metrics.NewService(disc, metricOpts...), nil
}
