// Package store provides the SQLite-backed append-only hook log.
//
// The store owns the modern "hooks" table layout:
//   - hooks: one row per observed tool-invocation event
//   - secondary indexes on timestamp, session_id, hook_type, tool_name,
//     and project_dir; every read path filters on one of these
//
// # Write Discipline
//
// Any writer may append; no writer updates or deletes. Appends typically come
// from many short-lived processes sharing one file, so each Append opens its
// own connection, applies pragmas, writes, and closes. No connection is held
// across calls and a crashed process leaves no stale lock behind.
//
// Lock contention is absorbed by a busy-timeout pragma plus an application
// retry loop: up to 5 attempts with backoff doubling from 100ms. Any error
// that is not lock contention fails immediately; waiting will not fix a full
// disk.
//
// Append never returns an error to the instrumented pipeline. A logging
// failure is reported once as a diagnostic and surfaces as a false return.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes, crash-safe journal
//   - synchronous=NORMAL: the last few milliseconds of telemetry are
//     expendable, corruption is not
//   - cache_size=-64000 (64MB), temp_store=MEMORY, mmap_size=256MB
//   - busy_timeout=10000: wait for locks up to 10 seconds before retrying
package store
