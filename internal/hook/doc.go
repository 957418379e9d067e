// Package hook provides the domain types for the eyelet hook log.
//
// This package contains type definitions only. All other internal packages
// import hook; hook imports nothing internal. This keeps the record and
// metrics shapes as the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Record.Timestamp (unix seconds) and Record.TimestampISO always refer
//     to the same instant
//   - Record.Data is always valid JSON, "{}" at minimum
//   - Metrics values are snapshots: immutable once returned, never patched
//   - All JSON tags use snake_case
package hook
