package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/eyelet/eyelet/internal/hook"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	NoCache bool
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate metrics across all discovered databases",
		Long: `Discover every hook database on this machine and show an aggregate
snapshot: totals, active databases, unique sessions, and per-database detail.

Results are cached for a short window; use --no-cache to force a re-scan.

Examples:
  eyelet stats
  eyelet stats --no-cache --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "bypass the metrics cache")

	return cmd
}

func runStats(cmd *cobra.Command, opts *StatsOptions) error {
	logger := newLogger(cmd, opts.RootOptions)

	_, _, svc, err := buildReadStack(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	sys := svc.SystemMetrics(!opts.NoCache)
	logger.Debug("collected system metrics", logger.Args(
		"databases", sys.TotalDatabases, "records", sys.TotalRecords))

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(sys)
	}
	renderSystemMetrics(cmd, sys)
	return nil
}

func renderSystemMetrics(cmd *cobra.Command, sys hook.SystemMetrics) {
	out := cmd.OutOrStdout()

	summary := pterm.TableData{
		{"Databases", fmt.Sprintf("%d", sys.TotalDatabases)},
		{"Active", fmt.Sprintf("%d", sys.ActiveDatabases)},
		{"Records", humanize.Comma(sys.TotalRecords)},
		{"Errors (24h)", humanize.Comma(sys.TotalErrors)},
		{"Sessions", fmt.Sprintf("%d", sys.UniqueSessions)},
		{"Updated", sys.LastUpdated.Local().Format("2006-01-02 15:04:05")},
	}
	_ = pterm.DefaultTable.WithData(summary).WithWriter(out).Render()

	if len(sys.Databases) == 0 {
		fmt.Fprintln(out, "\nno hook databases found")
		return
	}

	detail := pterm.TableData{{"Database", "Schema", "Records", "Activity", "Last seen", "Size"}}
	for _, db := range sys.Databases {
		detail = append(detail, []string{
			db.Path,
			string(db.SchemaVersion),
			humanize.Comma(db.RecordCount),
			string(db.ActivityLevel),
			lastSeen(db.LastActivity),
			humanize.Bytes(uint64(db.SizeBytes)),
		})
	}
	fmt.Fprintln(out)
	_ = pterm.DefaultTable.WithHasHeader().WithData(detail).WithWriter(out).Render()

	renderTopCounts(out, "Hook types", mergeCounts(sys.Databases, func(db hook.DatabaseMetrics) map[string]int64 { return db.HookTypes }))
	renderTopCounts(out, "Tools", mergeCounts(sys.Databases, func(db hook.DatabaseMetrics) map[string]int64 { return db.Tools }))
}

func lastSeen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

// mergeCounts sums a per-database frequency table across all databases.
func mergeCounts(dbs []hook.DatabaseMetrics, pick func(hook.DatabaseMetrics) map[string]int64) map[string]int64 {
	merged := make(map[string]int64)
	for _, db := range dbs {
		for name, n := range pick(db) {
			merged[name] += n
		}
	}
	return merged
}

func renderTopCounts(out io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}

	type entry struct {
		name string
		n    int64
	}
	entries := make([]entry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, entry{name, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}

	data := pterm.TableData{{title, "Count"}}
	for _, e := range entries {
		data = append(data, []string{e.name, humanize.Comma(e.n)})
	}
	fmt.Fprintln(out)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out).Render()
}
