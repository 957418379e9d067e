package cli

import (
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/eyelet/eyelet/internal/hook"
)

// DiscoverOptions holds flags for the discover command.
type DiscoverOptions struct {
	*RootOptions
	NoCache bool
}

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscoverOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List hook databases found on this machine",
		Long: `Scan the filesystem for hook databases using the platform index when
available and a bounded directory walk otherwise, then report each database's
schema, size, and activity.

Examples:
  eyelet discover
  eyelet discover --no-cache --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "ignore previously known locations")

	return cmd
}

func runDiscover(cmd *cobra.Command, opts *DiscoverOptions) error {
	logger := newLogger(cmd, opts.RootOptions)

	_, disc, svc, err := buildReadStack(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	paths := disc.Find(!opts.NoCache)
	logger.Debug("discovery finished", logger.Args("found", len(paths)))

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		dbs := make([]hook.DatabaseMetrics, 0, len(paths))
		for _, p := range paths {
			dbs = append(dbs, svc.DatabaseMetrics(p))
		}
		return formatter.JSON(dbs)
	}

	if len(paths) == 0 {
		formatter.Textf("no hook databases found\n")
		return nil
	}

	data := pterm.TableData{{"Database", "Schema", "Records", "Activity", "Size"}}
	for _, p := range paths {
		db := svc.DatabaseMetrics(p)
		data = append(data, []string{
			db.Path,
			string(db.SchemaVersion),
			humanize.Comma(db.RecordCount),
			string(db.ActivityLevel),
			humanize.Bytes(uint64(db.SizeBytes)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
}
