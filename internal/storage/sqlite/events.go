package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/steveyegge/memctl/internal/types"
)

// insertEvent appends an immutable audit record (events are
// append-only, never mutated).
func insertEvent(ctx context.Context, tx *sql.Tx, action types.EventAction, itemID *string, detail string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO memory_events (action, item_id, timestamp, detail)
		VALUES (?, ?, ?, ?)
	`, string(action), itemID, nowUTC(), detail)
	if err != nil {
		return wrapDBError("insert event", err)
	}
	return nil
}

// EmitEvent records a standalone event not tied to a single write_item
// call (e.g. search, loop_iter, reindex, sync).
func (s *Store) EmitEvent(ctx context.Context, action types.EventAction, itemID *string, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("emit_event: begin: %w", err)
	}
	if err := insertEvent(ctx, tx, action, itemID, detail); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListEvents returns events in emission order, optionally filtered to a
// single item id.
func (s *Store) ListEvents(ctx context.Context, itemID string, limit int) ([]types.MemoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if itemID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, action, item_id, timestamp, detail FROM memory_events ORDER BY id ASC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id, action, item_id, timestamp, detail FROM memory_events WHERE item_id = ? ORDER BY id ASC LIMIT ?`, itemID, limit)
	}
	if err != nil {
		return nil, wrapDBError("list_events", err)
	}
	defer rows.Close()

	var out []types.MemoryEvent
	for rows.Next() {
		var e types.MemoryEvent
		var action string
		var nullItemID sql.NullString
		if err := rows.Scan(&e.ID, &action, &nullItemID, &e.Timestamp, &e.Detail); err != nil {
			return nil, fmt.Errorf("list_events: scan: %w", err)
		}
		e.Action = types.EventAction(action)
		if nullItemID.Valid {
			v := nullItemID.String
			e.ItemID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
