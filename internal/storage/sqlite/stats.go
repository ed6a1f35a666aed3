package sqlite

import (
	"context"
	"fmt"
)

// Stats is the aggregate corpus summary returned by the stats operation.
type Stats struct {
	TotalItems      int64            `json:"total_items"`
	ArchivedItems   int64            `json:"archived_items"`
	ByTier          map[string]int64 `json:"by_tier"`
	ByType          map[string]int64 `json:"by_type"`
	TotalEvents     int64            `json:"total_events"`
	TotalMounts     int64            `json:"total_mounts"`
	TotalLinks      int64            `json:"total_links"`
	Tokenizer       string           `json:"tokenizer"`
	SchemaVersion   int64            `json:"schema_version"`
}

// Stats computes a point-in-time summary of the corpus. It runs several
// independent aggregate queries rather than one join, since memory_items
// is the only table any of them need to scan.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Stats{ByTier: map[string]int64{}, ByType: map[string]int64{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_items`).Scan(&st.TotalItems); err != nil {
		return nil, wrapDBError("stats: total_items", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_items WHERE archived = 1`).Scan(&st.ArchivedItems); err != nil {
		return nil, wrapDBError("stats: archived_items", err)
	}

	tierRows, err := s.db.QueryContext(ctx, `SELECT tier, COUNT(*) FROM memory_items WHERE archived = 0 GROUP BY tier`)
	if err != nil {
		return nil, wrapDBError("stats: by_tier", err)
	}
	for tierRows.Next() {
		var tier string
		var count int64
		if err := tierRows.Scan(&tier, &count); err != nil {
			tierRows.Close()
			return nil, fmt.Errorf("stats: scan by_tier: %w", err)
		}
		st.ByTier[tier] = count
	}
	if err := tierRows.Err(); err != nil {
		tierRows.Close()
		return nil, err
	}
	tierRows.Close()

	typeRows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM memory_items WHERE archived = 0 GROUP BY type`)
	if err != nil {
		return nil, wrapDBError("stats: by_type", err)
	}
	for typeRows.Next() {
		var typ string
		var count int64
		if err := typeRows.Scan(&typ, &count); err != nil {
			typeRows.Close()
			return nil, fmt.Errorf("stats: scan by_type: %w", err)
		}
		st.ByType[typ] = count
	}
	if err := typeRows.Err(); err != nil {
		typeRows.Close()
		return nil, err
	}
	typeRows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_events`).Scan(&st.TotalEvents); err != nil {
		return nil, wrapDBError("stats: total_events", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_mounts`).Scan(&st.TotalMounts); err != nil {
		return nil, wrapDBError("stats: total_mounts", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_links`).Scan(&st.TotalLinks); err != nil {
		return nil, wrapDBError("stats: total_links", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT tokenizer, version FROM schema_meta WHERE id = 1`).Scan(&st.Tokenizer, &st.SchemaVersion); err != nil {
		return nil, wrapDBError("stats: schema_meta", err)
	}

	return st, nil
}
