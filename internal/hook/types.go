package hook

import "time"

// Record represents one logged tool-invocation event.
//
// Timestamp and SessionID are always present. Timestamp is unix seconds with
// a fractional part; TimestampISO is the same instant rendered as RFC 3339.
// Data holds the full structured payload serialized as JSON and is never
// empty (an empty payload is stored as "{}").
type Record struct {
	ID           int64   `json:"id"`
	Timestamp    float64 `json:"timestamp"`
	TimestampISO string  `json:"timestamp_iso"`
	SessionID    string  `json:"session_id"`
	HookType     string  `json:"hook_type"`
	ToolName     string  `json:"tool_name,omitempty"`
	Status       string  `json:"status,omitempty"`
	DurationMS   *int64  `json:"duration_ms,omitempty"`
	ErrorCode    string  `json:"error_code,omitempty"`
	Hostname     string  `json:"hostname,omitempty"`
	IPAddress    string  `json:"ip_address,omitempty"`
	ProjectDir   string  `json:"project_dir,omitempty"`
	Data         string  `json:"data"`

	// DatabasePath identifies the file a record was read from. Set on the
	// read path only; the write path ignores it.
	DatabasePath string `json:"database_path,omitempty"`
}

// Time returns the record's numeric timestamp as a time.Time.
func (r Record) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Schema identifies a recognized on-disk table layout generation.
type Schema string

const (
	// SchemaModern is the current layout: a "hooks" table with paired
	// numeric/ISO timestamps and a unified JSON payload column.
	SchemaModern Schema = "modern"

	// SchemaLegacy is the older layout: an "executions" table with a
	// free-text timestamp, split input/output payload columns, and no
	// session column (the per-record hook_id stands in for a session).
	SchemaLegacy Schema = "legacy"

	// SchemaUnknown marks files with no recognized table. All reads on an
	// unknown-schema file yield empty results, never errors.
	SchemaUnknown Schema = "unknown"
)

// ActivityLevel classifies how recently a database was written.
type ActivityLevel string

const (
	ActivityActive ActivityLevel = "active" // last write < 5 minutes ago
	ActivityRecent ActivityLevel = "recent" // last write 5-60 minutes ago
	ActivityStale  ActivityLevel = "stale"  // older than an hour, or never
)

// Activity thresholds.
const (
	ActiveWithin = 5 * time.Minute
	RecentWithin = time.Hour
)

// ClassifyActivity maps a last-activity time to an activity level.
// A nil last-activity (never written) is stale.
func ClassifyActivity(last *time.Time, now time.Time) ActivityLevel {
	if last == nil {
		return ActivityStale
	}
	age := now.Sub(*last)
	switch {
	case age < ActiveWithin:
		return ActivityActive
	case age < RecentWithin:
		return ActivityRecent
	default:
		return ActivityStale
	}
}

// DatabaseMetrics is a point-in-time view of one database file.
type DatabaseMetrics struct {
	Path          string           `json:"path"`
	Exists        bool             `json:"exists"`
	RecordCount   int64            `json:"record_count"`
	LastActivity  *time.Time       `json:"last_activity,omitempty"`
	ActivityLevel ActivityLevel    `json:"activity_level"`
	SchemaVersion Schema           `json:"schema_version"`
	RecentErrors  int64            `json:"recent_errors"`
	SizeBytes     int64            `json:"size_bytes"`
	Sessions      []string         `json:"sessions"`
	HookTypes     map[string]int64 `json:"hook_types"`
	Tools         map[string]int64 `json:"tools"`
	ErrorRate     float64          `json:"error_rate"`
}

// EmptyDatabaseMetrics returns the well-defined degraded metrics value for a
// path: zero counts, stale, empty (non-nil) collections.
func EmptyDatabaseMetrics(path string, exists bool, sizeBytes int64, schema Schema) DatabaseMetrics {
	return DatabaseMetrics{
		Path:          path,
		Exists:        exists,
		RecordCount:   0,
		LastActivity:  nil,
		ActivityLevel: ActivityStale,
		SchemaVersion: schema,
		RecentErrors:  0,
		SizeBytes:     sizeBytes,
		Sessions:      []string{},
		HookTypes:     map[string]int64{},
		Tools:         map[string]int64{},
		ErrorRate:     0,
	}
}

// SystemMetrics aggregates DatabaseMetrics across all discovered databases.
type SystemMetrics struct {
	TotalDatabases  int               `json:"total_databases"`
	TotalRecords    int64             `json:"total_records"`
	ActiveDatabases int               `json:"active_databases"`
	TotalErrors     int64             `json:"total_errors"`
	UniqueSessions  int               `json:"unique_sessions"`
	Databases       []DatabaseMetrics `json:"databases"`
	LastUpdated     time.Time         `json:"last_updated"`
}
