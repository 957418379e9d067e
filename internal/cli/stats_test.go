package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyelet/eyelet/internal/hook"
)

func TestSystemMetricsJSONRendering(t *testing.T) {
	lastActivity := time.Date(2026, 3, 1, 11, 58, 0, 0, time.UTC)
	sys := hook.SystemMetrics{
		TotalDatabases:  2,
		TotalRecords:    42,
		ActiveDatabases: 1,
		TotalErrors:     3,
		UniqueSessions:  5,
		Databases: []hook.DatabaseMetrics{
			{
				Path:          "/home/dev/.eyelet/eyelet.db",
				Exists:        true,
				RecordCount:   40,
				LastActivity:  &lastActivity,
				ActivityLevel: hook.ActivityActive,
				SchemaVersion: hook.SchemaModern,
				RecentErrors:  3,
				SizeBytes:     32768,
				Sessions:      []string{"s-1", "s-2"},
				HookTypes:     map[string]int64{"PreToolUse": 22, "PostToolUse": 18},
				Tools:         map[string]int64{"Bash": 25, "Edit": 15},
				ErrorRate:     7.5,
			},
			hook.EmptyDatabaseMetrics("/home/dev/projects/app/.claude/eyelet.db", true, 8192, hook.SchemaLegacy),
		},
		LastUpdated: time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC),
	}
	sys.Databases[1].RecordCount = 2

	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}
	require.NoError(t, f.JSON(sys))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "system_metrics", buf.Bytes())
}

func TestMergeCounts(t *testing.T) {
	dbs := []hook.DatabaseMetrics{
		{Tools: map[string]int64{"Bash": 3, "Edit": 1}},
		{Tools: map[string]int64{"Bash": 2, "Read": 4}},
	}

	merged := mergeCounts(dbs, func(db hook.DatabaseMetrics) map[string]int64 { return db.Tools })
	assert.Equal(t, map[string]int64{"Bash": 5, "Edit": 1, "Read": 4}, merged)
}

func TestLastSeen(t *testing.T) {
	assert.Equal(t, "never", lastSeen(nil))

	recent := time.Now().Add(-2 * time.Minute)
	assert.Contains(t, lastSeen(&recent), "minutes ago")
}
