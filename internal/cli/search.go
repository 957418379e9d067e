package cli

import (
	"github.com/spf13/cobra"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Limit int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search hook payloads across all discovered databases",
		Long: `Case-insensitively search raw hook payloads across every discovered
database, newest matches first. Databases that cannot be read are skipped.

Examples:
  eyelet search "rm -rf"
  eyelet search timeout --limit 50 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum matches to return")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions, query string) error {
	logger := newLogger(cmd, opts.RootOptions)

	_, _, svc, err := buildReadStack(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	results := svc.Search(query, opts.Limit)
	logger.Debug("search finished", logger.Args("matches", len(results)))

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(results)
	}
	if len(results) == 0 {
		formatter.Textf("no matches for %q\n", query)
		return nil
	}
	for _, rec := range results {
		formatter.Textf("%s  %-14s %-12s %s\n",
			rec.Time().Local().Format("2006-01-02 15:04:05"),
			rec.HookType, orDash(rec.ToolName), rec.DatabasePath)
	}
	formatter.Textf("\n%d match(es)\n", len(results))
	return nil
}
