package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyelet/eyelet/internal/hook"
	"github.com/eyelet/eyelet/internal/testutil"
)

// stubDiscovery returns a fixed path set.
type stubDiscovery struct {
	paths []string
	calls int
}

func (d *stubDiscovery) Find(useCache bool) []string {
	d.calls++
	return d.paths
}

const modernDDL = `
CREATE TABLE hooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp REAL NOT NULL,
	timestamp_iso TEXT NOT NULL,
	session_id TEXT NOT NULL,
	hook_type TEXT NOT NULL,
	tool_name TEXT,
	status TEXT,
	duration_ms INTEGER,
	error_code TEXT,
	hostname TEXT,
	ip_address TEXT,
	project_dir TEXT,
	data JSON NOT NULL
);`

const legacyDDL = `
CREATE TABLE executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hook_id TEXT NOT NULL,
	hook_type TEXT NOT NULL,
	tool_name TEXT,
	timestamp TEXT,
	input_data TEXT,
	output_data TEXT,
	duration_ms INTEGER,
	status TEXT,
	error_message TEXT
);`

func createDB(t *testing.T, ddl string) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eyelet.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path, db
}

type modernRow struct {
	at        time.Time
	session   string
	hookType  string
	toolName  string
	errorCode string
	data      string
}

func insertModern(t *testing.T, db *sql.DB, rows ...modernRow) {
	t.Helper()
	for _, r := range rows {
		data := r.data
		if data == "" {
			data = "{}"
		}
		_, err := db.Exec(`
			INSERT INTO hooks (timestamp, timestamp_iso, session_id, hook_type, tool_name, error_code, data)
			VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`,
			float64(r.at.UnixNano())/1e9, r.at.Format(time.RFC3339Nano),
			r.session, r.hookType, r.toolName, r.errorCode, data,
		)
		require.NoError(t, err)
	}
}

func newTestService(d Discoverer, now time.Time) (*Service, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(now)
	return NewService(d, WithClock(clock.Now)), clock
}

func TestDetectSchema(t *testing.T) {
	tests := []struct {
		name string
		ddl  string
		want hook.Schema
	}{
		{"hooks table is modern", modernDDL, hook.SchemaModern},
		{"executions table is legacy", legacyDDL, hook.SchemaLegacy},
		{"unrecognized table is unknown", "CREATE TABLE notes (id INTEGER);", hook.SchemaUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, db := createDB(t, tt.ddl)
			schema, err := DetectSchema(db)
			require.NoError(t, err)
			assert.Equal(t, tt.want, schema)
		})
	}
}

func TestDatabaseMetrics_MissingFile(t *testing.T) {
	svc, _ := newTestService(&stubDiscovery{}, time.Now())

	dm := svc.DatabaseMetrics(filepath.Join(t.TempDir(), "missing.db"))

	assert.False(t, dm.Exists)
	assert.Zero(t, dm.RecordCount)
	assert.Equal(t, hook.ActivityStale, dm.ActivityLevel)
	assert.Equal(t, hook.SchemaUnknown, dm.SchemaVersion)
	assert.NotNil(t, dm.Sessions)
	assert.NotNil(t, dm.HookTypes)
}

func TestDatabaseMetrics_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eyelet.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database"), 0o644))

	svc, _ := newTestService(&stubDiscovery{}, time.Now())
	dm := svc.DatabaseMetrics(path)

	assert.True(t, dm.Exists)
	assert.Equal(t, hook.SchemaUnknown, dm.SchemaVersion)
	assert.Zero(t, dm.RecordCount)
}

func TestDatabaseMetrics_UnknownSchemaReadsEmpty(t *testing.T) {
	path, _ := createDB(t, "CREATE TABLE notes (id INTEGER);")
	svc, _ := newTestService(&stubDiscovery{}, time.Now())

	dm := svc.DatabaseMetrics(path)
	assert.True(t, dm.Exists)
	assert.Equal(t, hook.SchemaUnknown, dm.SchemaVersion)
	assert.Zero(t, dm.RecordCount)
	assert.Empty(t, svc.RecentHooks(path, 10))
}

func TestDatabaseMetrics_Modern(t *testing.T) {
	now := time.Now()
	path, db := createDB(t, modernDDL)
	insertModern(t, db,
		modernRow{at: now.Add(-2 * time.Minute), session: "s1", hookType: "PreToolUse", toolName: "Bash"},
		modernRow{at: now.Add(-10 * time.Minute), session: "s1", hookType: "PostToolUse", toolName: "Bash", errorCode: "E1"},
		modernRow{at: now.Add(-20 * time.Minute), session: "s2", hookType: "PreToolUse", toolName: "Edit"},
		modernRow{at: now.Add(-48 * time.Hour), session: "s3", hookType: "Stop", errorCode: "E2"},
	)

	svc, _ := newTestService(&stubDiscovery{}, now)
	dm := svc.DatabaseMetrics(path)

	assert.True(t, dm.Exists)
	assert.Equal(t, hook.SchemaModern, dm.SchemaVersion)
	assert.EqualValues(t, 4, dm.RecordCount)
	assert.Equal(t, hook.ActivityActive, dm.ActivityLevel)
	// Only the error inside the trailing 24h counts.
	assert.EqualValues(t, 1, dm.RecentErrors)
	assert.InDelta(t, 25.0, dm.ErrorRate, 0.001)
	assert.Equal(t, []string{"s1", "s2", "s3"}, dm.Sessions)
	assert.Equal(t, map[string]int64{"PreToolUse": 2, "PostToolUse": 1, "Stop": 1}, dm.HookTypes)
	assert.Equal(t, map[string]int64{"Bash": 2, "Edit": 1}, dm.Tools)
	assert.Positive(t, dm.SizeBytes)
}

func TestDatabaseMetrics_ActivityThresholds(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		age  time.Duration
		want hook.ActivityLevel
	}{
		{"2 minutes ago is active", 2 * time.Minute, hook.ActivityActive},
		{"30 minutes ago is recent", 30 * time.Minute, hook.ActivityRecent},
		{"3 hours ago is stale", 3 * time.Hour, hook.ActivityStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, db := createDB(t, modernDDL)
			insertModern(t, db, modernRow{at: now.Add(-tt.age), session: "s1", hookType: "PreToolUse"})

			svc, _ := newTestService(&stubDiscovery{}, now)
			assert.Equal(t, tt.want, svc.DatabaseMetrics(path).ActivityLevel)
		})
	}
}

func TestDatabaseMetrics_EmptyModernTable(t *testing.T) {
	path, _ := createDB(t, modernDDL)
	svc, _ := newTestService(&stubDiscovery{}, time.Now())

	dm := svc.DatabaseMetrics(path)
	assert.True(t, dm.Exists)
	assert.Equal(t, hook.SchemaModern, dm.SchemaVersion)
	assert.Zero(t, dm.RecordCount)
	assert.Equal(t, hook.ActivityStale, dm.ActivityLevel)
}

func TestDatabaseMetrics_Legacy(t *testing.T) {
	now := time.Now().UTC()
	path, db := createDB(t, legacyDDL)
	_, err := db.Exec(`
		INSERT INTO executions (hook_id, hook_type, tool_name, timestamp, input_data, output_data, status, error_message)
		VALUES
		('hook-1', 'PreToolUse', 'Bash', ?, '{"command":"ls"}', '{"ok":true}', 'success', NULL),
		('hook-2', 'PostToolUse', 'Bash', ?, '{}', NULL, 'error', 'boom')`,
		now.Add(-10*time.Minute).Format("2006-01-02 15:04:05"),
		now.Add(-5*time.Minute).Format("2006-01-02 15:04:05"),
	)
	require.NoError(t, err)

	svc, _ := newTestService(&stubDiscovery{}, now)
	dm := svc.DatabaseMetrics(path)

	assert.True(t, dm.Exists)
	assert.Equal(t, hook.SchemaLegacy, dm.SchemaVersion)
	assert.EqualValues(t, 2, dm.RecordCount)
	assert.EqualValues(t, 1, dm.RecentErrors)
	// Legacy layout has no session column; the sample stays empty.
	assert.Empty(t, dm.Sessions)
	assert.Equal(t, map[string]int64{"PreToolUse": 1, "PostToolUse": 1}, dm.HookTypes)
}

func TestRecentHooks_LegacyMapping(t *testing.T) {
	now := time.Now().UTC()
	path, db := createDB(t, legacyDDL)
	_, err := db.Exec(`
		INSERT INTO executions (hook_id, hook_type, tool_name, timestamp, input_data, output_data, duration_ms, status, error_message)
		VALUES ('hook-9', 'PreToolUse', 'Bash', ?, '{"command":"make"}', '{"exit":0}', 42, 'success', NULL)`,
		now.Format("2006-01-02 15:04:05"),
	)
	require.NoError(t, err)

	svc, _ := newTestService(&stubDiscovery{}, now)
	records := svc.RecentHooks(path, 10)

	require.Len(t, records, 1)
	rec := records[0]
	// The per-record hook id stands in for the missing session column.
	assert.Equal(t, "hook-9", rec.SessionID)
	assert.JSONEq(t, `{"command":"make","output":{"exit":0}}`, rec.Data)
	require.NotNil(t, rec.DurationMS)
	assert.EqualValues(t, 42, *rec.DurationMS)
	assert.Equal(t, path, rec.DatabasePath)
}

func TestRecentHooks_ModernOrderAndLimit(t *testing.T) {
	now := time.Now()
	path, db := createDB(t, modernDDL)
	for i := 0; i < 5; i++ {
		insertModern(t, db, modernRow{
			at: now.Add(-time.Duration(i) * time.Minute), session: "s1",
			hookType: fmt.Sprintf("type-%d", i),
		})
	}

	svc, _ := newTestService(&stubDiscovery{}, now)
	records := svc.RecentHooks(path, 3)

	require.Len(t, records, 3)
	assert.Equal(t, "type-0", records[0].HookType)
	assert.Equal(t, "type-2", records[2].HookType)
}

func TestRecentHooks_MissingFile(t *testing.T) {
	svc, _ := newTestService(&stubDiscovery{}, time.Now())
	records := svc.RecentHooks(filepath.Join(t.TempDir(), "missing.db"), 10)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSystemMetrics_AggregatesAcrossDatabases(t *testing.T) {
	now := time.Now()

	pathA, dbA := createDB(t, modernDDL)
	insertModern(t, dbA,
		modernRow{at: now.Add(-time.Minute), session: "s1", hookType: "PreToolUse"},
		modernRow{at: now.Add(-2 * time.Minute), session: "s2", hookType: "PostToolUse", errorCode: "E1"},
	)
	pathB, dbB := createDB(t, modernDDL)
	insertModern(t, dbB,
		modernRow{at: now.Add(-2 * time.Hour), session: "s2", hookType: "Stop"},
	)
	missing := filepath.Join(t.TempDir(), "missing.db")

	svc, _ := newTestService(&stubDiscovery{paths: []string{pathA, pathB, missing}}, now)
	sm := svc.SystemMetrics(false)

	assert.Equal(t, 3, sm.TotalDatabases)
	assert.EqualValues(t, 3, sm.TotalRecords)
	assert.EqualValues(t, 1, sm.TotalErrors)
	assert.Equal(t, 1, sm.ActiveDatabases)
	// s2 appears in both databases but counts once.
	assert.Equal(t, 2, sm.UniqueSessions)
	require.Len(t, sm.Databases, 3)
}

func TestSystemMetrics_CustomPathSkipsDiscovery(t *testing.T) {
	now := time.Now()
	path, db := createDB(t, modernDDL)
	insertModern(t, db, modernRow{at: now, session: "s1", hookType: "PreToolUse"})

	disc := &stubDiscovery{paths: []string{"/should/not/be/used.db"}}
	clock := testutil.NewFakeClock(now)
	svc := NewService(disc, WithClock(clock.Now), WithCustomDatabase(path))

	sm := svc.SystemMetrics(false)
	assert.Equal(t, 1, sm.TotalDatabases)
	assert.Zero(t, disc.calls)
}

func TestSystemMetrics_CacheExpiry(t *testing.T) {
	now := time.Now()
	path, db := createDB(t, modernDDL)
	insertModern(t, db, modernRow{at: now, session: "s1", hookType: "PreToolUse"})

	disc := &stubDiscovery{paths: []string{path}}
	svc, clock := newTestService(disc, now)

	first := svc.SystemMetrics(true)
	require.Equal(t, 1, disc.calls)

	// Within the TTL the snapshot is served from cache, bit-identical.
	clock.Advance(29 * time.Second)
	second := svc.SystemMetrics(true)
	assert.Equal(t, 1, disc.calls)
	assert.Equal(t, first, second)

	// Past the TTL the next call re-scans.
	clock.Advance(2 * time.Second)
	third := svc.SystemMetrics(true)
	assert.Equal(t, 2, disc.calls)
	assert.True(t, third.LastUpdated.After(first.LastUpdated))
}

func TestSystemMetrics_BypassAndClear(t *testing.T) {
	path, db := createDB(t, modernDDL)
	insertModern(t, db, modernRow{at: time.Now(), session: "s1", hookType: "PreToolUse"})

	disc := &stubDiscovery{paths: []string{path}}
	svc, _ := newTestService(disc, time.Now())

	svc.SystemMetrics(true)
	svc.SystemMetrics(false) // forced bypass re-scans
	assert.Equal(t, 2, disc.calls)

	svc.SystemMetrics(true) // cache refreshed by the bypass
	assert.Equal(t, 2, disc.calls)

	svc.ClearCache()
	svc.SystemMetrics(true)
	assert.Equal(t, 3, disc.calls)
}

func TestSearch_FindsTokenAcrossDatabases(t *testing.T) {
	now := time.Now()

	var paths []string
	for i := 0; i < 3; i++ {
		path, db := createDB(t, modernDDL)
		data := `{"tool_input":{"command":"ls"}}`
		if i == 1 {
			data = `{"tool_input":{"command":"grep NEEDLE-7 ."}}`
		}
		insertModern(t, db, modernRow{at: now, session: fmt.Sprintf("s%d", i), hookType: "PreToolUse", data: data})
		paths = append(paths, path)
	}

	svc, _ := newTestService(&stubDiscovery{paths: paths}, now)

	results := svc.Search("needle-7", 50)
	require.Len(t, results, 1)
	assert.Equal(t, "s1", results[0].SessionID)
}

func TestSearch_SortsMergedResultsByTimestamp(t *testing.T) {
	now := time.Now()

	pathA, dbA := createDB(t, modernDDL)
	insertModern(t, dbA, modernRow{at: now.Add(-2 * time.Minute), session: "older", hookType: "PreToolUse", data: `{"tag":"match"}`})
	pathB, dbB := createDB(t, modernDDL)
	insertModern(t, dbB, modernRow{at: now.Add(-1 * time.Minute), session: "newer", hookType: "PreToolUse", data: `{"tag":"match"}`})

	svc, _ := newTestService(&stubDiscovery{paths: []string{pathA, pathB}}, now)

	results := svc.Search("match", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].SessionID)
	assert.Equal(t, "older", results[1].SessionID)
}
