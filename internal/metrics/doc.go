// Package metrics reads hook databases and aggregates them into per-database
// and system-wide health views.
//
// The read path must keep working across a heterogeneous fleet of database
// files: two schema generations, half-written files, foreign SQLite files,
// and paths that no longer exist. Every operation therefore degrades to a
// well-defined empty value instead of returning an error to dashboard or
// search callers.
//
// Schema dispatch is detect-then-branch, never guess: the set of table names
// classifies a file as modern ("hooks"), legacy ("executions"), or unknown,
// and each generation has its own column mapping. Unknown files read as
// empty.
//
// System metrics are cached for 30 seconds behind an injectable clock; the
// cache is invalidated by expiry or an explicit Clear, never by write
// activity. Staleness inside the window is an accepted trade.
package metrics
