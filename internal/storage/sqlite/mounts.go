package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/memctl/internal/types"
)

// UpsertMount registers or updates a mount by id.
func (s *Store) UpsertMount(ctx context.Context, m types.Mount) error {
	ignoreJSON, err := json.Marshal(m.IgnorePatterns)
	if err != nil {
		return fmt.Errorf("upsert_mount: marshal ignore_patterns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_mounts (id, path, display_name, ignore_patterns, lang_hint)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			display_name = excluded.display_name,
			ignore_patterns = excluded.ignore_patterns,
			lang_hint = excluded.lang_hint
	`, m.ID, m.Path, m.DisplayName, string(ignoreJSON), m.LangHint)
	if err != nil {
		return wrapDBError("upsert_mount", err)
	}
	return nil
}

// GetMount looks up a mount by id.
func (s *Store) GetMount(ctx context.Context, id string) (*types.Mount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanMount(s.db.QueryRowContext(ctx, `
		SELECT id, path, display_name, ignore_patterns, lang_hint FROM memory_mounts WHERE id = ?
	`, id))
}

// ListMounts returns every registered mount.
func (s *Store) ListMounts(ctx context.Context) ([]types.Mount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, path, display_name, ignore_patterns, lang_hint FROM memory_mounts ORDER BY id`)
	if err != nil {
		return nil, wrapDBError("list_mounts", err)
	}
	defer rows.Close()

	var out []types.Mount
	for rows.Next() {
		var m types.Mount
		var ignoreJSON string
		if err := rows.Scan(&m.ID, &m.Path, &m.DisplayName, &ignoreJSON, &m.LangHint); err != nil {
			return nil, fmt.Errorf("list_mounts: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(ignoreJSON), &m.IgnorePatterns); err != nil {
			return nil, fmt.Errorf("list_mounts: unmarshal ignore_patterns: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMount removes a mount registration. Corpus hash rows referencing
// it are left in place with their mount_id dangling; a subsequent sync
// of a re-added mount at the same id will pick them back up.
func (s *Store) DeleteMount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_mounts WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete_mount", err)
	}
	return nil
}

func scanMount(row *sql.Row) (*types.Mount, error) {
	var m types.Mount
	var ignoreJSON string
	if err := row.Scan(&m.ID, &m.Path, &m.DisplayName, &ignoreJSON, &m.LangHint); err != nil {
		return nil, wrapDBError("get_mount", err)
	}
	if err := json.Unmarshal([]byte(ignoreJSON), &m.IgnorePatterns); err != nil {
		return nil, fmt.Errorf("get_mount: unmarshal ignore_patterns: %w", err)
	}
	return &m, nil
}

// ItemIDsForMount implements recall.MountFilter: it resolves a mount to
// the set of live item ids reachable through its corpus hash rows.
func (s *Store) ItemIDsForMount(ctx context.Context, mountID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_ids FROM corpus_hashes WHERE mount_id = ? AND archived = 0
	`, mountID)
	if err != nil {
		return nil, wrapDBError("item_ids_for_mount", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var idsJSON string
		if err := rows.Scan(&idsJSON); err != nil {
			return nil, fmt.Errorf("item_ids_for_mount: scan: %w", err)
		}
		var ids []string
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			return nil, fmt.Errorf("item_ids_for_mount: unmarshal item_ids: %w", err)
		}
		for _, id := range ids {
			out[id] = true
		}
	}
	return out, rows.Err()
}
