package sqlite

import (
	"context"
	"fmt"
)

// ResetAllData permanently deletes every row from every content table
// (items, revisions, events, links, mounts, corpus hashes, FTS index) but
// leaves the schema and schema_meta row in place. It is not reachable
// from any normal CLI path without the caller explicitly passing confirm
// equal to the literal string "erase-everything", mirroring the
// confirmation discipline other irreversible operations use.
func (s *Store) ResetAllData(ctx context.Context, confirm string) error {
	if confirm != "erase-everything" {
		return fmt.Errorf("admin_reset: refused: confirmation phrase did not match")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("admin_reset: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tables := []string{
		"memory_items_fts",
		"memory_revisions",
		"memory_events",
		"memory_links",
		"corpus_hashes",
		"memory_mounts",
		"memory_items",
	}
	for _, table := range tables {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			err = fmt.Errorf("admin_reset: delete %s: %w", table, err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("admin_reset: commit: %w", err)
	}
	return nil
}
