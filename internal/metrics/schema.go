package metrics

import (
	"database/sql"
	"fmt"

	"github.com/eyelet/eyelet/internal/hook"
)

// DetectSchema classifies an open database by its table names.
// A "hooks" table marks the modern generation; failing that, an "executions"
// table marks the legacy generation; anything else is unknown.
func DetectSchema(db *sql.DB) (hook.Schema, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return hook.SchemaUnknown, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return hook.SchemaUnknown, fmt.Errorf("scan table name: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return hook.SchemaUnknown, fmt.Errorf("iterate tables: %w", err)
	}

	switch {
	case tables["hooks"]:
		return hook.SchemaModern, nil
	case tables["executions"]:
		return hook.SchemaLegacy, nil
	default:
		return hook.SchemaUnknown, nil
	}
}
