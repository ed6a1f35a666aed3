package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/memctl/internal/types"
)

// GetCorpusHash looks up a dedup row by content hash. Returns ErrNotFound
// if the hash has never been ingested.
func (s *Store) GetCorpusHash(ctx context.Context, hash string) (*types.CorpusHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanCorpusHash(s.db.QueryRowContext(ctx, `
		SELECT hash, mount_id, rel_path, ext, size_bytes, mtime_epoch, lang_hint, item_ids, archived
		FROM corpus_hashes WHERE hash = ?
	`, hash))
}

// UpsertCorpusHash records or updates a per-file dedup row. Ingestion
// calls this once per discovered file before deciding whether the file's
// content is already known.
func (s *Store) UpsertCorpusHash(ctx context.Context, ch types.CorpusHash) error {
	idsJSON, err := json.Marshal(ch.ItemIDs)
	if err != nil {
		return fmt.Errorf("upsert_corpus_hash: marshal item_ids: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corpus_hashes (hash, mount_id, rel_path, ext, size_bytes, mtime_epoch, lang_hint, item_ids, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			mount_id = excluded.mount_id,
			rel_path = excluded.rel_path,
			ext = excluded.ext,
			size_bytes = excluded.size_bytes,
			mtime_epoch = excluded.mtime_epoch,
			lang_hint = excluded.lang_hint,
			item_ids = excluded.item_ids,
			archived = excluded.archived
	`, ch.Hash, nullableString(ch.MountID), ch.RelPath, ch.Ext, ch.SizeBytes, ch.MtimeEpoch, ch.LangHint, string(idsJSON), boolToInt(ch.Archived))
	if err != nil {
		return wrapDBError("upsert_corpus_hash", err)
	}
	return nil
}

// ListCorpusHashesForMount returns every dedup row belonging to mountID,
// including archived ones, so sync can detect orphans by rel_path diff.
func (s *Store) ListCorpusHashesForMount(ctx context.Context, mountID string) ([]types.CorpusHash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, mount_id, rel_path, ext, size_bytes, mtime_epoch, lang_hint, item_ids, archived
		FROM corpus_hashes WHERE mount_id = ?
	`, mountID)
	if err != nil {
		return nil, wrapDBError("list_corpus_hashes", err)
	}
	defer rows.Close()

	var out []types.CorpusHash
	for rows.Next() {
		ch, err := scanCorpusHashRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// MarkCorpusHashArchived flips the archived flag for a dedup row, used
// when sync detects its source file no longer exists under the mount.
func (s *Store) MarkCorpusHashArchived(ctx context.Context, hash string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE corpus_hashes SET archived = ? WHERE hash = ?`, boolToInt(archived), hash)
	if err != nil {
		return wrapDBError("mark_corpus_hash_archived", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanCorpusHash(row *sql.Row) (*types.CorpusHash, error) {
	var ch types.CorpusHash
	var mountID sql.NullString
	var idsJSON string
	var archived int
	err := row.Scan(&ch.Hash, &mountID, &ch.RelPath, &ch.Ext, &ch.SizeBytes, &ch.MtimeEpoch, &ch.LangHint, &idsJSON, &archived)
	if err != nil {
		return nil, wrapDBError("get_corpus_hash", err)
	}
	ch.MountID = mountID.String
	ch.Archived = archived != 0
	if err := json.Unmarshal([]byte(idsJSON), &ch.ItemIDs); err != nil {
		return nil, fmt.Errorf("get_corpus_hash: unmarshal item_ids: %w", err)
	}
	return &ch, nil
}

func scanCorpusHashRows(rows *sql.Rows) (*types.CorpusHash, error) {
	var ch types.CorpusHash
	var mountID sql.NullString
	var idsJSON string
	var archived int
	err := rows.Scan(&ch.Hash, &mountID, &ch.RelPath, &ch.Ext, &ch.SizeBytes, &ch.MtimeEpoch, &ch.LangHint, &idsJSON, &archived)
	if err != nil {
		return nil, fmt.Errorf("list_corpus_hashes: scan: %w", err)
	}
	ch.MountID = mountID.String
	ch.Archived = archived != 0
	if err := json.Unmarshal([]byte(idsJSON), &ch.ItemIDs); err != nil {
		return nil, fmt.Errorf("list_corpus_hashes: unmarshal item_ids: %w", err)
	}
	return &ch, nil
}
