package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eyelet/eyelet/internal/config"
	"github.com/eyelet/eyelet/internal/hook"
	"github.com/eyelet/eyelet/internal/paths"
	"github.com/eyelet/eyelet/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	HookType string
	ToolName string
	Session  string
	Since    string
	Limit    int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query hook records from the local database",
		Long: `Query hook records from the resolved database, newest first.

--since accepts either an RFC 3339 timestamp or a relative duration such as
"30m" or "24h".

Examples:
  eyelet query --limit 20
  eyelet query --hook-type PreToolUse --tool Bash
  eyelet query --since 1h --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.HookType, "hook-type", "", "filter by hook type")
	cmd.Flags().StringVar(&opts.ToolName, "tool", "", "filter by tool name")
	cmd.Flags().StringVar(&opts.Session, "session", "", "filter by session id")
	cmd.Flags().StringVar(&opts.Since, "since", "", "only records after this time (RFC 3339 or duration)")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultQueryLimit, "maximum records to return")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions) error {
	cfg, err := config.Load(paths.ConfigDir(""))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	dbPath, err := resolveDatabase(opts.RootOptions, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve database", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}

	filter := store.QueryFilter{
		HookType:  opts.HookType,
		ToolName:  opts.ToolName,
		SessionID: opts.Session,
		Limit:     opts.Limit,
	}
	if opts.Since != "" {
		since, err := parseSince(opts.Since, time.Now())
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid flag", err)
		}
		filter.Since = &since
	}

	records, err := st.Query(cmd.Context(), filter)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to query hooks", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.IsJSON() {
		return formatter.JSON(records)
	}
	renderRecords(formatter, records)
	return nil
}

// parseSince interprets value as an RFC 3339 timestamp, or falling back to a
// duration subtracted from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want RFC 3339 time or duration", value)
	}
	return now.Add(-d), nil
}

func renderRecords(f *OutputFormatter, records []hook.Record) {
	if len(records) == 0 {
		f.Textf("no matching records\n")
		return
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-14s %-12s session=%s",
			rec.Time().Local().Format("2006-01-02 15:04:05"),
			rec.HookType, orDash(rec.ToolName), shortSession(rec.SessionID))
		if rec.Status != "" {
			line += "  status=" + rec.Status
		}
		if rec.ErrorCode != "" {
			line += "  error=" + rec.ErrorCode
		}
		f.Textf("%s\n", line)
	}
	f.Textf("\n%d record(s)\n", len(records))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortSession(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	if id == "" {
		return "-"
	}
	return id
}
