// Package migrations lists memctl's schema migrations in order.
// Migrations are additive-only: new columns get nullable or
// defaulted definitions, new tables are created, nothing is ever dropped
// or altered destructively. Each migration is a single file, named and
// numbered by version.
package migrations

import "database/sql"

// Migration is one schema step, applied inside the store's single
// migration transaction.
type Migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// All returns every migration in ascending version order. New migrations
// are appended here; existing entries are never edited once released.
func All() []Migration {
	return []Migration{
		{Version: 1, Name: "initial_schema", Apply: applyInitialSchema},
		{Version: 2, Name: "fts5_index", Apply: applyFTS5Index},
	}
}
