package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eyelet/eyelet/internal/hook"
)

// Legacy "executions" layout: free-text timestamp, split input/output payload
// columns, no session column. The per-record hook_id stands in for a session
// id. That is a compatibility quirk, not true session grouping, so the
// per-database session sample stays empty for legacy files.

// legacyTimeLayouts covers the timestamp texts the old writer produced.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// collectLegacy gathers metrics from a legacy "executions" table.
func collectLegacy(db *sql.DB, path string, sizeBytes int64, now time.Time) (hook.DatabaseMetrics, error) {
	var count int64
	if err := db.QueryRow("SELECT COUNT(*) FROM executions").Scan(&count); err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("count executions: %w", err)
	}
	if count == 0 {
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaLegacy), nil
	}

	// ISO-8601 text sorts chronologically, so MAX works on the raw column.
	var lastText sql.NullString
	if err := db.QueryRow("SELECT MAX(timestamp) FROM executions").Scan(&lastText); err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("last activity: %w", err)
	}
	var lastActivity *time.Time
	if lastText.Valid {
		if t, ok := parseLegacyTime(lastText.String); ok {
			lastActivity = &t
		}
	}

	cutoff := now.Add(-recentErrorWindow).Format("2006-01-02 15:04:05")
	var recentErrors int64
	err := db.QueryRow(
		"SELECT COUNT(*) FROM executions WHERE error_message IS NOT NULL AND timestamp >= ?",
		cutoff,
	).Scan(&recentErrors)
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("recent errors: %w", err)
	}

	hookTypes, err := frequencyTable(db, "SELECT hook_type, COUNT(*) FROM executions GROUP BY hook_type")
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("hook types: %w", err)
	}
	tools, err := frequencyTable(db, "SELECT tool_name, COUNT(*) FROM executions WHERE tool_name IS NOT NULL GROUP BY tool_name")
	if err != nil {
		return hook.DatabaseMetrics{}, fmt.Errorf("tools: %w", err)
	}

	return hook.DatabaseMetrics{
		Path:          path,
		Exists:        true,
		RecordCount:   count,
		LastActivity:  lastActivity,
		ActivityLevel: hook.ClassifyActivity(lastActivity, now),
		SchemaVersion: hook.SchemaLegacy,
		RecentErrors:  recentErrors,
		SizeBytes:     sizeBytes,
		Sessions:      []string{},
		HookTypes:     hookTypes,
		Tools:         tools,
		ErrorRate:     float64(recentErrors) / float64(count) * 100,
	}, nil
}

// readLegacyHooks maps legacy rows onto the modern record shape.
func readLegacyHooks(db *sql.DB, path string, limit int) ([]hook.Record, error) {
	rows, err := db.Query(`
		SELECT id, hook_id, hook_type, tool_name, timestamp,
		       input_data, output_data, duration_ms, status, error_message
		FROM executions
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	records := []hook.Record{}
	for rows.Next() {
		var id int64
		var hookID, hookType string
		var toolName, tsText, inputData, outputData, status, errorMessage sql.NullString
		var durationMS sql.NullInt64
		if err := rows.Scan(
			&id, &hookID, &hookType, &toolName, &tsText,
			&inputData, &outputData, &durationMS, &status, &errorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}

		ts := time.Now()
		if tsText.Valid {
			if t, ok := parseLegacyTime(tsText.String); ok {
				ts = t
			}
		}

		rec := hook.Record{
			ID:           id,
			Timestamp:    float64(ts.UnixNano()) / 1e9,
			TimestampISO: ts.Format(time.RFC3339Nano),
			SessionID:    hookID,
			HookType:     hookType,
			ToolName:     toolName.String,
			Status:       status.String,
			ErrorCode:    errorMessage.String,
			Data:         mergeLegacyData(inputData.String, outputData.String),
			DatabasePath: path,
		}
		if durationMS.Valid {
			d := durationMS.Int64
			rec.DurationMS = &d
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return records, nil
}

// mergeLegacyData folds the split input/output columns into the unified
// payload shape: the input object with the output nested under "output".
// Unparseable columns degrade to an empty object rather than failing the row.
func mergeLegacyData(inputData, outputData string) string {
	merged := map[string]any{}
	if inputData != "" {
		if err := json.Unmarshal([]byte(inputData), &merged); err != nil {
			merged = map[string]any{}
		}
	}
	if outputData != "" {
		var output any
		if err := json.Unmarshal([]byte(outputData), &output); err == nil {
			merged["output"] = output
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func parseLegacyTime(text string) (time.Time, bool) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
