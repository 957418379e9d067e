package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eyelet/eyelet/internal/config"
	"github.com/eyelet/eyelet/internal/hook"
	"github.com/eyelet/eyelet/internal/paths"
	"github.com/eyelet/eyelet/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	HookType string
	ToolName string
	Session  string
	Status   string
}

// hookInput is the loose JSON shape the instrumentation pipeline pipes in.
// Everything it sends is preserved verbatim as the record payload; the named
// fields are lifted out for indexing.
type hookInput struct {
	SessionID  string `json:"session_id"`
	HookType   string `json:"hook_event_name"`
	ToolName   string `json:"tool_name"`
	Status     string `json:"status"`
	DurationMS *int64 `json:"duration_ms"`
	ErrorCode  string `json:"error_code"`
	Cwd        string `json:"cwd"`
}

// NewLogCommand creates the log command, the pipeline's only write entry
// point.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append one hook record from stdin",
		Long: `Read a single JSON hook payload on stdin and append it to the log.

This command is designed to be called by hook configuration, once per
observed tool-invocation event. It never fails the calling pipeline: on any
logging error it prints a diagnostic and still exits 0.

Examples:
  echo '{"session_id":"abc","hook_event_name":"PreToolUse","tool_name":"Bash"}' | eyelet log
  eyelet log --hook-type PostToolUse --tool Bash < payload.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.HookType, "hook-type", "", "hook type (overrides payload field)")
	cmd.Flags().StringVar(&opts.ToolName, "tool", "", "tool name (overrides payload field)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (overrides payload field)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (overrides payload field)")

	return cmd
}

func runLog(opts *LogOptions, stdin io.Reader, stderr io.Writer) error {
	// Observability must not perturb the observed pipeline: every failure
	// path below reports and returns nil.
	rec, ok := buildRecord(opts, stdin, stderr)
	if !ok {
		return nil
	}

	cfg, err := config.Load(paths.ConfigDir(""))
	if err != nil {
		fmt.Fprintf(stderr, "eyelet: %v\n", err)
		cfg = config.Config{}
	}

	dbPath, err := resolveDatabase(opts.RootOptions, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "eyelet: %v\n", err)
		return nil
	}

	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "eyelet: %v\n", err)
		return nil
	}
	st.SetDiagnostics(stderr)
	st.Append(rec)
	return nil
}

// buildRecord assembles a Record from the stdin payload and flag overrides.
func buildRecord(opts *LogOptions, stdin io.Reader, stderr io.Writer) (hook.Record, bool) {
	raw, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "eyelet: read stdin: %v\n", err)
		return hook.Record{}, false
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var input hookInput
	if err := json.Unmarshal(raw, &input); err != nil {
		fmt.Fprintf(stderr, "eyelet: invalid hook payload: %v\n", err)
		return hook.Record{}, false
	}

	now := time.Now()
	rec := hook.Record{
		Timestamp:    float64(now.UnixNano()) / 1e9,
		TimestampISO: now.Format(time.RFC3339Nano),
		SessionID:    firstNonEmpty(opts.Session, input.SessionID, uuid.NewString()),
		HookType:     firstNonEmpty(opts.HookType, input.HookType, "Unknown"),
		ToolName:     firstNonEmpty(opts.ToolName, input.ToolName),
		Status:       firstNonEmpty(opts.Status, input.Status),
		DurationMS:   input.DurationMS,
		ErrorCode:    input.ErrorCode,
		ProjectDir:   firstNonEmpty(input.Cwd, workingDir()),
		Data:         string(raw),
	}
	return rec, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}
