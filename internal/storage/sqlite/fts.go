package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/steveyegge/memctl/internal/storage/sqlite/migrations"
	"github.com/steveyegge/memctl/internal/types"
)

// upsertFTSRow rebuilds item's FTS row inside the caller's transaction
// (FTS rows are updated atomically with their backing item row).
func upsertFTSRow(ctx context.Context, tx *sql.Tx, itemID, title, content string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_items_fts WHERE item_id = ?`, itemID); err != nil {
		return wrapDBError("fts delete", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO memory_items_fts (item_id, title, content) VALUES (?, ?, ?)`, itemID, title, content); err != nil {
		return wrapDBError("fts insert", err)
	}
	return nil
}

// RebuildFTS drops and repopulates the FTS table with tokenizer,
// updating tokenizer metadata.
func (s *Store) RebuildFTS(ctx context.Context, tokenizer string) (itemsIndexed int, duration time.Duration, err error) {
	tokenizeClause, ok := migrations.TokenizerSQL[tokenizer]
	if !ok {
		return 0, 0, fmt.Errorf("rebuild_fts: unknown tokenizer %q", tokenizer)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("rebuild_fts: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS memory_items_fts`); err != nil {
		err = fmt.Errorf("rebuild_fts: drop: %w", err)
		return 0, 0, err
	}
	createSQL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE memory_items_fts USING fts5(item_id UNINDEXED, title, content, tokenize = '%s')`,
		tokenizeClause,
	)
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		err = fmt.Errorf("rebuild_fts: create: %w", err)
		return 0, 0, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, title, content FROM memory_items WHERE archived = 0`)
	if err != nil {
		err = fmt.Errorf("rebuild_fts: select: %w", err)
		return 0, 0, err
	}

	stmt, prepErr := tx.PrepareContext(ctx, `INSERT INTO memory_items_fts (item_id, title, content) VALUES (?, ?, ?)`)
	if prepErr != nil {
		rows.Close()
		err = fmt.Errorf("rebuild_fts: prepare: %w", prepErr)
		return 0, 0, err
	}

	count := 0
	for rows.Next() {
		var id, title, content string
		if scanErr := rows.Scan(&id, &title, &content); scanErr != nil {
			rows.Close()
			stmt.Close()
			err = fmt.Errorf("rebuild_fts: scan: %w", scanErr)
			return 0, 0, err
		}
		if _, execErr := stmt.ExecContext(ctx, id, title, content); execErr != nil {
			rows.Close()
			stmt.Close()
			err = fmt.Errorf("rebuild_fts: insert: %w", execErr)
			return 0, 0, err
		}
		count++
	}
	rows.Close()
	stmt.Close()
	if err = rows.Err(); err != nil {
		return 0, 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE schema_meta SET tokenizer = ?, last_reindex = ?, reindex_count = reindex_count + 1 WHERE id = 1
	`, tokenizer, nowUTC()); err != nil {
		err = fmt.Errorf("rebuild_fts: update metadata: %w", err)
		return 0, 0, err
	}

	if err = insertEvent(ctx, tx, types.EventReindex, nil, fmt.Sprintf("tokenizer=%s items=%d", tokenizer, count)); err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("rebuild_fts: commit: %w", err)
	}

	return count, time.Since(start), nil
}

// TokenizerStems reports whether the currently bound tokenizer performs
// stemming (PREFIX_AND is skipped when true).
func (s *Store) TokenizerStems(ctx context.Context) (bool, error) {
	tok, err := s.currentTokenizer(ctx)
	if err != nil {
		return false, err
	}
	return tok == "en", nil
}
