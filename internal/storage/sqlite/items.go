package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/types"
)

// WriteItem inserts or updates item, appends a revision, rebuilds its FTS
// row, and emits a write event — all inside one transaction, including
// the FTS row, which is updated atomically with its backing item row.
// verdict must have already been produced by the policy engine; WriteItem
// never evaluates policy itself — policy is never bypassed, and running
// it is always the caller's responsibility.
func (s *Store) WriteItem(ctx context.Context, item *types.MemoryItem, verdict types.PolicyVerdict, reason string) (revisionID int64, err error) {
	if verdict.Kind == types.VerdictReject {
		return 0, fmt.Errorf("write_item: %w: rejected item must not be written (rule %s)", ErrConflict, verdict.RuleID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("write_item: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkContentHashInvariant(ctx, tx, item); err != nil {
		return 0, err
	}

	if verdict.Kind == types.VerdictQuarantine {
		item.Injectable = false
	}

	tagsJSON, mErr := json.Marshal(item.Tags)
	if mErr != nil {
		err = fmt.Errorf("write_item: marshal tags: %w", mErr)
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memory_items (
			id, title, content, content_hash, tier, type, tags, scope,
			injectable, archived, usage_count, created_at, updated_at,
			prov_source_kind, prov_source_id, prov_justification, prov_session_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			tier = excluded.tier,
			type = excluded.type,
			tags = excluded.tags,
			scope = excluded.scope,
			injectable = excluded.injectable,
			archived = excluded.archived,
			usage_count = excluded.usage_count,
			updated_at = excluded.updated_at
	`,
		item.ID, item.Title, item.Content, item.ContentHash, string(item.Tier), item.Type,
		string(tagsJSON), item.Scope, boolToInt(item.Injectable), boolToInt(item.Archived),
		item.UsageCount, item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
		item.Provenance.SourceKind, item.Provenance.SourceID, item.Provenance.Justification, item.Provenance.SessionID,
	)
	if err != nil {
		err = wrapDBError("write_item: upsert", err)
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memory_revisions (item_id, reason, policy_kind, policy_rule_id, snapshot_title, snapshot_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, reason, string(verdict.Kind), verdict.RuleID, item.Title, item.Content, nowUTC())
	if err != nil {
		err = wrapDBError("write_item: insert revision", err)
		return 0, err
	}
	revisionID, err = res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("write_item: revision id: %w", err)
		return 0, err
	}

	if err = upsertFTSRow(ctx, tx, item.ID, item.Title, item.Content); err != nil {
		return 0, err
	}

	eventAction := types.EventWrite
	if verdict.Kind == types.VerdictQuarantine {
		eventAction = types.EventPolicyQuarantine
	}
	if err = insertEvent(ctx, tx, eventAction, &item.ID, verdict.RuleID); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("write_item: commit: %w", err)
	}
	return revisionID, nil
}

// checkContentHashInvariant enforces that items with identical
// content_hash within the same scope must not both exist as non-archived.
func (s *Store) checkContentHashInvariant(ctx context.Context, tx *sql.Tx, item *types.MemoryItem) error {
	var existingID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM memory_items
		WHERE content_hash = ? AND scope = ? AND archived = 0 AND id != ?
		LIMIT 1
	`, item.ContentHash, item.Scope, item.ID).Scan(&existingID)
	if err == nil {
		return fmt.Errorf("write_item: %w: content hash %s already present in scope %q as item %s", ErrConflict, item.ContentHash, item.Scope, existingID)
	}
	if err != sql.ErrNoRows {
		return wrapDBError("write_item: hash invariant check", err)
	}
	return nil
}

// ReadItem looks up a single item by id. If incrementUsage is true the
// usage_count column is bumped; callers opt in, off by default.
func (s *Store) ReadItem(ctx context.Context, id string, incrementUsage bool) (*types.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := scanItemByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	if incrementUsage {
		tx, txErr := s.beginTx(ctx)
		if txErr != nil {
			return nil, fmt.Errorf("read_item: begin: %w", txErr)
		}
		if _, execErr := tx.ExecContext(ctx, `UPDATE memory_items SET usage_count = usage_count + 1 WHERE id = ?`, id); execErr != nil {
			_ = tx.Rollback()
			return nil, wrapDBError("read_item: bump usage", execErr)
		}
		if insErr := insertEvent(ctx, tx, types.EventRead, &id, ""); insErr != nil {
			_ = tx.Rollback()
			return nil, insErr
		}
		if cErr := tx.Commit(); cErr != nil {
			return nil, fmt.Errorf("read_item: commit: %w", cErr)
		}
		item.UsageCount++
	}

	return item, nil
}

// ArchiveItem marks an item archived and emits an archive event. Archived
// items are excluded from recall and from the content-hash uniqueness
// check, but are never deleted.
func (s *Store) ArchiveItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("archive_item: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE memory_items SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		err = wrapDBError("archive_item", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive_item: rows affected: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("archive_item: %w: %s", ErrNotFound, id)
		return err
	}
	if err = insertEvent(ctx, tx, types.EventArchive, &id, ""); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("archive_item: commit: %w", err)
	}
	return nil
}

// ItemFilter narrows ListItems. Zero-value fields are wildcards except
// IncludeArchived, which defaults to excluding archived items.
type ItemFilter struct {
	Tier            types.Tier
	Type            string
	Scope           string
	IncludeArchived bool
}

// ListItems returns items matching filter, ordered by id for determinism.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]types.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, title, content, content_hash, tier, type, tags, scope,
			injectable, archived, usage_count, created_at, updated_at,
			prov_source_kind, prov_source_id, prov_justification, prov_session_id
		FROM memory_items WHERE 1=1
	`
	var args []any
	if !filter.IncludeArchived {
		query += ` AND archived = 0`
	}
	if filter.Tier != "" {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Scope != "" {
		query += ` AND scope = ?`
		args = append(args, filter.Scope)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list_items", err)
	}
	defer rows.Close()

	var out []types.MemoryItem
	for rows.Next() {
		item, err := scanItemFromRowsValue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanItemFromRowsValue(rows *sql.Rows) (*types.MemoryItem, error) {
	var item types.MemoryItem
	var tier, tagsJSON string
	var injectable, archived int
	err := rows.Scan(
		&item.ID, &item.Title, &item.Content, &item.ContentHash, &tier, &item.Type, &tagsJSON, &item.Scope,
		&injectable, &archived, &item.UsageCount, &item.CreatedAt, &item.UpdatedAt,
		&item.Provenance.SourceKind, &item.Provenance.SourceID, &item.Provenance.Justification, &item.Provenance.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list_items: scan: %w", err)
	}
	item.Tier = types.Tier(tier)
	item.Injectable = injectable != 0
	item.Archived = archived != 0
	if err := unmarshalTags(tagsJSON, &item.Tags); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItemByID(ctx context.Context, q queryer, id string) (*types.MemoryItem, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, content, content_hash, tier, type, tags, scope,
			injectable, archived, usage_count, created_at, updated_at,
			prov_source_kind, prov_source_id, prov_justification, prov_session_id
		FROM memory_items WHERE id = ?
	`, id)
	return scanItemRow(row)
}

// queryer is the common subset of *sql.DB and *sql.Tx used by read paths.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanItemRow(row *sql.Row) (*types.MemoryItem, error) {
	var item types.MemoryItem
	var tier, tagsJSON string
	var injectable, archived int
	err := row.Scan(
		&item.ID, &item.Title, &item.Content, &item.ContentHash, &tier, &item.Type, &tagsJSON, &item.Scope,
		&injectable, &archived, &item.UsageCount, &item.CreatedAt, &item.UpdatedAt,
		&item.Provenance.SourceKind, &item.Provenance.SourceID, &item.Provenance.Justification, &item.Provenance.SessionID,
	)
	if err != nil {
		return nil, wrapDBError("read_item", err)
	}
	item.Tier = types.Tier(tier)
	item.Injectable = injectable != 0
	item.Archived = archived != 0
	if err := unmarshalTags(tagsJSON, &item.Tags); err != nil {
		return nil, err
	}
	return &item, nil
}

func unmarshalTags(tagsJSON string, tags *[]string) error {
	if err := json.Unmarshal([]byte(tagsJSON), tags); err != nil {
		return fmt.Errorf("unmarshal tags: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EvaluateAndWrite runs ev against item, writes it if not rejected, and
// returns the verdict either way. No write path may bypass policy.
func EvaluateAndWrite(ctx context.Context, s *Store, ev *policy.Evaluator, item *types.MemoryItem, reason string) (types.PolicyVerdict, error) {
	verdict := ev.EvaluateItem(item)
	if verdict.Kind == types.VerdictReject {
		if err := s.emitRejectEvent(ctx, verdict); err != nil {
			return verdict, err
		}
		return verdict, nil
	}
	if _, err := s.WriteItem(ctx, item, verdict, reason); err != nil {
		return verdict, err
	}
	return verdict, nil
}

func (s *Store) emitRejectEvent(ctx context.Context, verdict types.PolicyVerdict) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("policy_reject event: begin: %w", err)
	}
	if err := insertEvent(ctx, tx, types.EventPolicyReject, nil, verdict.RuleID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
