package metrics

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/eyelet/eyelet/internal/hook"
)

// collectModern gathers metrics from a modern "hooks" table.
func collectModern(db *sql.DB, path string, sizeBytes int64, now time.Time) (hook.DatabaseMetrics, error) {
	var count int64
	if err := db.QueryRow("SELECT COUNT(*) FROM hooks").Scan(&count); err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("count hooks: %w", err)
	}
	if count == 0 {
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaModern), nil
	}

	var lastTS sql.NullFloat64
	if err := db.QueryRow("SELECT MAX(timestamp) FROM hooks").Scan(&lastTS); err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("last activity: %w", err)
	}
	var lastActivity *time.Time
	if lastTS.Valid {
		t := unixToTime(lastTS.Float64)
		lastActivity = &t
	}

	cutoff := float64(now.Add(-recentErrorWindow).UnixNano()) / 1e9
	var recentErrors int64
	err := db.QueryRow(
		"SELECT COUNT(*) FROM hooks WHERE error_code IS NOT NULL AND timestamp >= ?",
		cutoff,
	).Scan(&recentErrors)
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("recent errors: %w", err)
	}

	sessions, err := recentSessions(db)
	if err != nil {
		return hook.DatabaseMetrics{}, err
	}

	hookTypes, err := frequencyTable(db, "SELECT hook_type, COUNT(*) FROM hooks GROUP BY hook_type")
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("hook types: %w", err)
	}
	tools, err := frequencyTable(db, "SELECT tool_name, COUNT(*) FROM hooks WHERE tool_name IS NOT NULL GROUP BY tool_name")
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("tools: %w", err)
	}

	return hook.DatabaseMetrics{
		Path:          path,
		Exists:        true,
		RecordCount:   count,
		LastActivity:  lastActivity,
		ActivityLevel: hook.ClassifyActivity(lastActivity, now),
		SchemaVersion: hook.SchemaModern,
		RecentErrors:  recentErrors,
		SizeBytes:     sizeBytes,
		Sessions:      sessions,
		HookTypes:     hookTypes,
		Tools:         tools,
		ErrorRate:     float64(recentErrors) / float64(count) * 100,
	}, nil
}

// readModernHooks returns the most recent rows from a modern table.
func readModernHooks(db *sql.DB, path string, limit int) ([]hook.Record, error) {
	rows, err := db.Query(`
		SELECT id, timestamp, timestamp_iso, session_id, hook_type, tool_name,
		       status, duration_ms, error_code, data
		FROM hooks
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query hooks: %w", err)
	}
	defer rows.Close()

	records := []hook.Record{}
	for rows.Next() {
		var rec hook.Record
		var toolName, status, errorCode sql.NullString
		var durationMS sql.NullInt64
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.TimestampISO, &rec.SessionID, &rec.HookType,
			&toolName, &status, &durationMS, &errorCode, &rec.Data,
		); err != nil {
			return nil, fmt.Errorf("scan hook: %w", err)
		}
		rec.ToolName = toolName.String
		rec.Status = status.String
		rec.ErrorCode = errorCode.String
		if durationMS.Valid {
			d := durationMS.Int64
			rec.DurationMS = &d
		}
		rec.DatabasePath = path
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hooks: %w", err)
	}
	return records, nil
}

// recentSessions returns up to sessionSample distinct session ids, most
// recently active first.
func recentSessions(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT session_id FROM hooks
		GROUP BY session_id
		ORDER BY MAX(timestamp) DESC
		LIMIT ?
	`, sessionSample)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// frequencyTable runs a two-column (name, count) aggregate query into a map.
func frequencyTable(db *sql.DB, query string) (map[string]int64, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := map[string]int64{}
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		table[name] = count
	}
	return table, rows.Err()
}

func unixToTime(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
