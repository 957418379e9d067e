package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/eyelet/eyelet/internal/hook"
)

// Retry policy for write contention. Backoff doubles each attempt:
// 100/200/400/800/1600ms, then the append is reported as a soft failure.
const (
	maxAppendAttempts = 5
	backoffBase       = 100 * time.Millisecond
)

// Append writes one hook record to the database.
//
// Append never returns an error: the instrumented pipeline must not be
// perturbed by its own telemetry. Lock contention is retried with exponential
// backoff; any other failure is reported once on the diagnostics writer.
// Reports whether the record was durably written.
func (s *Store) Append(rec hook.Record) bool {
	if rec.Data == "" {
		rec.Data = "{}"
	}
	if rec.Hostname == "" || rec.IPAddress == "" {
		hostname, ip := hostIdentity()
		if rec.Hostname == "" {
			rec.Hostname = hostname
		}
		if rec.IPAddress == "" {
			rec.IPAddress = ip
		}
	}

	err := s.withRetry(func() error {
		return s.insert(rec)
	})
	if err != nil {
		fmt.Fprintf(s.diag, "eyelet: append failed: %v\n", err)
		return false
	}
	return true
}

// insert opens a fresh connection, writes the row, and closes. One row per
// connection keeps crashed writers from holding locks across invocations.
func (s *Store) insert(rec hook.Record) error {
	db, err := openConn(s.path)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO hooks
		(timestamp, timestamp_iso, session_id, hook_type, tool_name,
		 status, duration_ms, error_code, hostname, ip_address, project_dir, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Timestamp,
		rec.TimestampISO,
		rec.SessionID,
		rec.HookType,
		nullable(rec.ToolName),
		nullable(rec.Status),
		rec.DurationMS,
		nullable(rec.ErrorCode),
		rec.Hostname,
		rec.IPAddress,
		rec.ProjectDir,
		rec.Data,
	)
	if err != nil {
		return fmt.Errorf("insert hook: %w", err)
	}
	return nil
}

// withRetry runs fn, retrying lock-contention failures up to
// maxAppendAttempts with doubling backoff. Non-contention errors fail
// immediately - they will not resolve by waiting.
func (s *Store) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isLocked(err) {
			return err
		}
		if attempt < maxAppendAttempts-1 {
			s.sleep(backoffBase << attempt)
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAppendAttempts, err)
}

// isLocked reports whether an error is SQLite lock contention
// (SQLITE_BUSY or SQLITE_LOCKED).
func isLocked(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
