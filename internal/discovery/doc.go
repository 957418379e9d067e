// Package discovery locates eyelet database files across the filesystem.
//
// Discovery is best-effort search, not a registry. Each platform gets a fast
// path (Spotlight's mdfind on macOS, fd or find on Linux, PowerShell
// enumeration on Windows) invoked with a strict timeout; any failure falls
// through silently to a portable bounded recursive walk. Results from both
// passes are merged with a session-local cache of known locations, filtered
// to files that still exist, and ordered most-recently-modified first.
//
// Nothing here raises: a missing tool, a timed-out subprocess, or an
// unreadable directory degrades to "no results from that pass".
package discovery
