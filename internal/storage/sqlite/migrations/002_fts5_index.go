package migrations

import (
	"database/sql"
	"fmt"
)

// TokenizerSQL maps a tokenizer preset name to its FTS5 `tokenize=` clause
// (fr default, en, raw). "raw" only disables diacritic folding
// (remove_diacritics 0); unicode61 still case-folds for matching
// purposes, so it is "unaccented" rather than byte-for-byte raw.
var TokenizerSQL = map[string]string{
	"fr":  "unicode61 remove_diacritics 2",
	"en":  "porter unicode61 remove_diacritics 2",
	"raw": "unicode61 remove_diacritics 0",
}

// applyFTS5Index creates the FTS5 virtual table mirroring searchable item
// text, bound to the 'fr' tokenizer by default. rebuild_fts
// drops and recreates this table with a different tokenizer at runtime;
// this migration only guarantees it exists on a fresh database.
func applyFTS5Index(tx *sql.Tx) error {
	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_items_fts USING fts5(
			item_id UNINDEXED,
			title,
			content,
			tokenize = '%s'
		)`,
		TokenizerSQL["fr"],
	)
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("fts5_index: %w", err)
	}
	return nil
}
