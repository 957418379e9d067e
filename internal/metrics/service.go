package metrics

import (
	"database/sql"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eyelet/eyelet/internal/hook"
)

// CacheTTL bounds how stale a cached system-metrics snapshot may be.
const CacheTTL = 30 * time.Second

// DefaultHookLimit caps results when a caller passes no limit.
const DefaultHookLimit = 100

// sessionSample bounds the distinct-session list carried per database.
const sessionSample = 100

// recentErrorWindow is the sliding window for the recent-error count.
const recentErrorWindow = 24 * time.Hour

// Discoverer resolves the candidate database set. Satisfied by
// discovery.Service.
type Discoverer interface {
	Find(useCache bool) []string
}

// Service aggregates metrics across discovered hook databases.
//
// All methods are read-only and safe to call from a request-handling or
// UI-refresh loop: failures degrade to empty values, never propagate.
type Service struct {
	// customDBPath pins aggregation to a single database instead of the
	// discovery result. Empty means discover.
	customDBPath string

	discovery Discoverer
	now       func() time.Time
	ttl       time.Duration

	mu          sync.Mutex
	cache       *hook.SystemMetrics
	cacheExpiry time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCustomDatabase pins the service to one database path.
func WithCustomDatabase(path string) Option {
	return func(s *Service) { s.customDBPath = path }
}

// WithClock replaces the wall clock, enabling deterministic cache-expiry
// tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCacheTTL overrides the system-metrics cache window. Zero or negative
// keeps the default.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a metrics service over the given discovery source.
func NewService(discovery Discoverer, opts ...Option) *Service {
	s := &Service{
		discovery: discovery,
		now:       time.Now,
		ttl:       CacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SystemMetrics returns the system-wide snapshot across all candidate
// databases. Results are cached for CacheTTL; useCache=false forces a
// re-scan (and refreshes the cache).
func (s *Service) SystemMetrics(useCache bool) hook.SystemMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if useCache && s.cache != nil && now.Before(s.cacheExpiry) {
		return *s.cache
	}

	var paths []string
	if s.customDBPath != "" {
		paths = []string{s.customDBPath}
	} else {
		paths = s.discovery.Find(true)
	}

	var (
		databases    []hook.DatabaseMetrics
		totalRecords int64
		totalErrors  int64
		activeCount  int
		allSessions  = map[string]struct{}{}
	)
	for _, path := range paths {
		dm := s.collect(path)
		databases = append(databases, dm)

		if !dm.Exists {
			continue
		}
		totalRecords += dm.RecordCount
		totalErrors += dm.RecentErrors
		for _, session := range dm.Sessions {
			allSessions[session] = struct{}{}
		}
		if dm.ActivityLevel == hook.ActivityActive {
			activeCount++
		}
	}
	if databases == nil {
		databases = []hook.DatabaseMetrics{}
	}

	sm := hook.SystemMetrics{
		TotalDatabases:  len(databases),
		TotalRecords:    totalRecords,
		ActiveDatabases: activeCount,
		TotalErrors:     totalErrors,
		UniqueSessions:  len(allSessions),
		Databases:       databases,
		LastUpdated:     now,
	}

	s.cache = &sm
	s.cacheExpiry = now.Add(s.ttl)
	return sm
}

// DatabaseMetrics returns the snapshot for one database file. A missing file
// yields exists=false with zero counts; a corrupt or foreign file yields
// empty metrics tagged schema "unknown". Never errors.
func (s *Service) DatabaseMetrics(path string) hook.DatabaseMetrics {
	return s.collect(path)
}

// RecentHooks returns up to limit most-recent records from one database,
// newest first. Missing, corrupt, or unknown-schema files read as empty.
func (s *Service) RecentHooks(path string, limit int) []hook.Record {
	if limit <= 0 {
		limit = DefaultHookLimit
	}
	if _, err := os.Stat(path); err != nil {
		return []hook.Record{}
	}

	db, err := openRead(path)
	if err != nil {
		return []hook.Record{}
	}
	defer db.Close()

	schema, err := DetectSchema(db)
	if err != nil {
		return []hook.Record{}
	}

	var records []hook.Record
	switch schema {
	case hook.SchemaModern:
		records, err = readModernHooks(db, path, limit)
	case hook.SchemaLegacy:
		records, err = readLegacyHooks(db, path, limit)
	default:
		return []hook.Record{}
	}
	if err != nil {
		return []hook.Record{}
	}
	return records
}

// Search scans recent records across all discovered databases for a
// case-insensitive substring of the serialized payload. Best-effort linear
// scan, not an index: data volumes are per-user local logs. Results are
// merged, re-sorted newest first, and truncated to limit.
func (s *Service) Search(query string, limit int) []hook.Record {
	if limit <= 0 {
		limit = DefaultHookLimit
	}
	needle := strings.ToLower(query)

	var paths []string
	if s.customDBPath != "" {
		paths = []string{s.customDBPath}
	} else {
		paths = s.discovery.Find(true)
	}

	results := []hook.Record{}
	for _, path := range paths {
		if len(results) >= limit {
			break
		}
		for _, rec := range s.RecentHooks(path, limit-len(results)) {
			if strings.Contains(strings.ToLower(rec.Data), needle) {
				results = append(results, rec)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ClearCache drops the cached system snapshot, forcing the next
// SystemMetrics call to re-scan.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheExpiry = time.Time{}
}

// collect gathers metrics for one path, degrading on every failure mode.
func (s *Service) collect(path string) hook.DatabaseMetrics {
	info, err := os.Stat(path)
	if err != nil {
		return hook.EmptyDatabaseMetrics(path, false, 0, hook.SchemaUnknown)
	}
	sizeBytes := info.Size()

	db, err := openRead(path)
	if err != nil {
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaUnknown)
	}
	defer db.Close()

	schema, err := DetectSchema(db)
	if err != nil {
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaUnknown)
	}

	var dm hook.DatabaseMetrics
	switch schema {
	case hook.SchemaModern:
		dm, err = collectModern(db, path, sizeBytes, s.now())
	case hook.SchemaLegacy:
		dm, err = collectLegacy(db, path, sizeBytes, s.now())
	default:
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaUnknown)
	}
	if err != nil {
		// Mid-write or corrupt file: same degraded shape as a foreign file.
		return hook.EmptyDatabaseMetrics(path, true, sizeBytes, hook.SchemaUnknown)
	}
	return dm
}

// openRead opens a read-side connection. Readers share the writers'
// busy-timeout so a WAL checkpoint never turns into a spurious failure.
func openRead(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
