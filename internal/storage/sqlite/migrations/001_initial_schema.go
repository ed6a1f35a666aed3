package migrations

import (
	"database/sql"
	"fmt"
)

// applyInitialSchema creates the base tables: memory_items,
// memory_revisions, memory_events, memory_links, corpus_hashes,
// memory_mounts, and schema_meta.
func applyInitialSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			tokenizer TEXT NOT NULL DEFAULT 'fr',
			last_reindex TEXT,
			reindex_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS memory_items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			tier TEXT NOT NULL,
			type TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			scope TEXT NOT NULL DEFAULT '',
			injectable INTEGER NOT NULL DEFAULT 1,
			archived INTEGER NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			prov_source_kind TEXT NOT NULL DEFAULT '',
			prov_source_id TEXT NOT NULL DEFAULT '',
			prov_justification TEXT NOT NULL DEFAULT '',
			prov_session_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_scope_hash ON memory_items(scope, content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_tier ON memory_items(tier)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_archived ON memory_items(archived)`,

		`CREATE TABLE IF NOT EXISTS memory_revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL REFERENCES memory_items(id),
			reason TEXT NOT NULL DEFAULT '',
			policy_kind TEXT NOT NULL,
			policy_rule_id TEXT NOT NULL DEFAULT '',
			snapshot_title TEXT NOT NULL,
			snapshot_content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_revisions_item ON memory_revisions(item_id)`,

		`CREATE TABLE IF NOT EXISTS memory_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			item_id TEXT,
			timestamp TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_events_item ON memory_events(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_events_timestamp ON memory_events(timestamp)`,

		`CREATE TABLE IF NOT EXISTS memory_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_links_from ON memory_links(from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_links_to ON memory_links(to_id)`,

		`CREATE TABLE IF NOT EXISTS memory_mounts (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			ignore_patterns TEXT NOT NULL DEFAULT '[]',
			lang_hint TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS corpus_hashes (
			hash TEXT PRIMARY KEY,
			mount_id TEXT,
			rel_path TEXT NOT NULL,
			ext TEXT NOT NULL DEFAULT '',
			size_bytes INTEGER NOT NULL,
			mtime_epoch INTEGER NOT NULL,
			lang_hint TEXT NOT NULL DEFAULT '',
			item_ids TEXT NOT NULL DEFAULT '[]',
			archived INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_corpus_hashes_mount ON corpus_hashes(mount_id)`,
		`CREATE INDEX IF NOT EXISTS idx_corpus_hashes_rel_path ON corpus_hashes(rel_path)`,
	}

	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("initial_schema: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO schema_meta (id, version, tokenizer, reindex_count) VALUES (1, 1, 'fr', 0)`,
	); err != nil {
		return fmt.Errorf("initial_schema: seed schema_meta: %w", err)
	}

	return nil
}
