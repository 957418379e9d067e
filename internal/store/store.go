package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store appends hook records to a single database file.
//
// A Store holds a path, not a connection: every operation opens its own
// short-lived connection so that concurrent short-lived writer processes
// never share or leak locks. Open initializes the schema once; after that
// the file is the only shared state.
type Store struct {
	path string

	// diag receives one-line soft-failure reports from Append.
	// Defaults to stderr.
	diag io.Writer

	// sleep is replaceable in tests to observe backoff delays.
	sleep func(time.Duration)
}

// Open creates or opens the hook database at the given path.
// Parent directories are created if missing, and the table and indexes are
// created if absent. This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := openConn(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{path: path, diag: os.Stderr, sleep: time.Sleep}, nil
}

// Path returns the database file path this store writes to.
func (s *Store) Path() string {
	return s.path
}

// SetDiagnostics redirects soft-failure reports, primarily for tests.
func (s *Store) SetDiagnostics(w io.Writer) {
	s.diag = w
}

// openConn opens a single-connection handle with the performance pragmas
// applied. Callers own the returned handle and must close it.
func openConn(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite permits one writer; a second pooled connection only manufactures
	// SQLITE_BUSY against ourselves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas sets the availability/durability trade described in the
// package comment.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456",
		"PRAGMA busy_timeout = 10000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

var (
	hostOnce sync.Once
	hostName string
	hostIP   string
)

// hostIdentity returns the hostname and first non-loopback IP, best effort.
// Failures yield "unknown"; identity capture must never fail an append.
func hostIdentity() (hostname, ip string) {
	hostOnce.Do(func() {
		hostName = "unknown"
		hostIP = "unknown"

		name, err := os.Hostname()
		if err != nil {
			return
		}
		hostName = name

		addrs, err := net.LookupHost(name)
		if err != nil || len(addrs) == 0 {
			return
		}
		hostIP = addrs[0]
	})
	return hostName, hostIP
}
