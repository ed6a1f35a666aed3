package sqlite

import (
	"context"
	"fmt"

	"github.com/steveyegge/memctl/internal/types"
)

// CreateLink records a directed, typed relationship between two items.
// Both ends must already exist; the cheapest existence check is letting
// the foreign-key-free insert succeed and leaving dangling links to be
// caught by whoever resolves them, since memory_links intentionally
// carries no foreign key (links may outlive an archived endpoint).
func (s *Store) CreateLink(ctx context.Context, fromID, toID string, kind types.LinkType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_links (from_id, to_id, type, created_at) VALUES (?, ?, ?, ?)
	`, fromID, toID, string(kind), nowUTC())
	if err != nil {
		return 0, wrapDBError("create_link", err)
	}
	return res.LastInsertId()
}

// LinksFrom returns every link whose from_id is itemID.
func (s *Store) LinksFrom(ctx context.Context, itemID string) ([]types.MemoryLink, error) {
	return s.queryLinks(ctx, `SELECT id, from_id, to_id, type, created_at FROM memory_links WHERE from_id = ? ORDER BY id`, itemID)
}

// LinksTo returns every link whose to_id is itemID.
func (s *Store) LinksTo(ctx context.Context, itemID string) ([]types.MemoryLink, error) {
	return s.queryLinks(ctx, `SELECT id, from_id, to_id, type, created_at FROM memory_links WHERE to_id = ? ORDER BY id`, itemID)
}

func (s *Store) queryLinks(ctx context.Context, query, itemID string) ([]types.MemoryLink, error) {
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, wrapDBError("query_links", err)
	}
	defer rows.Close()

	var out []types.MemoryLink
	for rows.Next() {
		var l types.MemoryLink
		var kind string
		if err := rows.Scan(&l.ID, &l.FromID, &l.ToID, &kind, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("query_links: scan: %w", err)
		}
		l.Type = types.LinkType(kind)
		out = append(out, l)
	}
	return out, rows.Err()
}
