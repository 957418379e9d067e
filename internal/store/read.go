package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eyelet/eyelet/internal/hook"
)

// DefaultQueryLimit caps result sets when the caller does not set one.
const DefaultQueryLimit = 100

// QueryFilter selects hook rows. Zero-valued fields are not applied.
type QueryFilter struct {
	HookType  string
	ToolName  string
	SessionID string
	Since     *time.Time
	Limit     int
}

// Query returns hooks matching the filter, most recent first.
// A zero or negative limit defaults to 100 rows.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]hook.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var conds []string
	var args []any
	if filter.HookType != "" {
		conds = append(conds, "hook_type = ?")
		args = append(args, filter.HookType)
	}
	if filter.ToolName != "" {
		conds = append(conds, "tool_name = ?")
		args = append(args, filter.ToolName)
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		conds = append(conds, "timestamp > ?")
		args = append(args, float64(filter.Since.UnixNano())/1e9)
	}

	where := "1=1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	db, err := openConn(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT id, timestamp, timestamp_iso, session_id, hook_type, tool_name,
		       status, duration_ms, error_code, hostname, ip_address, project_dir, data
		FROM hooks
		WHERE `+where+`
		ORDER BY timestamp DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query hooks: %w", err)
	}
	defer rows.Close()

	var records []hook.Record
	for rows.Next() {
		rec, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		rec.DatabasePath = s.path
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hooks: %w", err)
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []hook.Record{}
	}

	return records, nil
}

// scanHook scans a row into a Record, folding NULL columns to zero values.
func scanHook(rows *sql.Rows) (hook.Record, error) {
	var rec hook.Record
	var toolName, status, errorCode, hostname, ipAddress, projectDir sql.NullString
	var durationMS sql.NullInt64

	if err := rows.Scan(
		&rec.ID, &rec.Timestamp, &rec.TimestampISO, &rec.SessionID, &rec.HookType,
		&toolName, &status, &durationMS, &errorCode,
		&hostname, &ipAddress, &projectDir, &rec.Data,
	); err != nil {
		return hook.Record{}, fmt.Errorf("scan hook: %w", err)
	}

	rec.ToolName = toolName.String
	rec.Status = status.String
	rec.ErrorCode = errorCode.String
	rec.Hostname = hostname.String
	rec.IPAddress = ipAddress.String
	rec.ProjectDir = projectDir.String
	if durationMS.Valid {
		d := durationMS.Int64
		rec.DurationMS = &d
	}

	return rec, nil
}
