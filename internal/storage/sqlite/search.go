package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/types"
)

// Backend returns a recall.Backend bound to this store, for use by the
// cascade (internal/recall.Search).
func (s *Store) Backend() recall.Backend { return (*storeBackend)(s) }

type storeBackend Store

func (b *storeBackend) store() *Store { return (*Store)(b) }

func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

func (b *storeBackend) MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = ftsQuote(t)
	}
	matchExpr := strings.Join(quoted, " AND ")
	return b.runFTSQuery(ctx, matchExpr, scope, limit)
}

func (b *storeBackend) MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = ftsQuote(t) + "*"
	}
	matchExpr := strings.Join(quoted, " AND ")
	return b.runFTSQuery(ctx, matchExpr, scope, limit)
}

func (b *storeBackend) MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]recall.RankedMatch, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = ftsQuote(t)
	}
	matchExpr := strings.Join(quoted, " OR ")

	store := b.store()
	query := `
		SELECT m.id, m.title, m.content, m.content_hash, m.tier, m.type, m.tags, m.scope,
			m.injectable, m.archived, m.usage_count, m.created_at, m.updated_at,
			m.prov_source_kind, m.prov_source_id, m.prov_justification, m.prov_session_id,
			bm25(memory_items_fts) AS score
		FROM memory_items_fts
		JOIN memory_items m ON m.id = memory_items_fts.item_id
		WHERE memory_items_fts MATCH ? AND m.archived = 0
	`
	args := []any{matchExpr}
	if scope != "" {
		query += ` AND m.scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY score LIMIT ?`
	args = append(args, limit)

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("match_any", err)
	}
	defer rows.Close()

	var out []recall.RankedMatch
	for rows.Next() {
		item, score, err := scanRankedRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, recall.RankedMatch{Item: *item, BM25: score})
	}
	return out, rows.Err()
}

func (b *storeBackend) MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	store := b.store()
	if len(terms) == 0 {
		return nil, nil
	}
	var clauses []string
	args := []any{}
	for _, t := range terms {
		clauses = append(clauses, `(title LIKE ? OR content LIKE ?)`)
		pat := "%" + t + "%"
		args = append(args, pat, pat)
	}
	query := `
		SELECT id, title, content, content_hash, tier, type, tags, scope,
			injectable, archived, usage_count, created_at, updated_at,
			prov_source_kind, prov_source_id, prov_justification, prov_session_id
		FROM memory_items WHERE archived = 0 AND (` + strings.Join(clauses, " OR ") + `)`
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("match_like", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

func (b *storeBackend) TokenizerStems(ctx context.Context) (bool, error) {
	return b.store().TokenizerStems(ctx)
}

func (b *storeBackend) runFTSQuery(ctx context.Context, matchExpr, scope string, limit int) ([]types.MemoryItem, error) {
	store := b.store()
	query := `
		SELECT m.id, m.title, m.content, m.content_hash, m.tier, m.type, m.tags, m.scope,
			m.injectable, m.archived, m.usage_count, m.created_at, m.updated_at,
			m.prov_source_kind, m.prov_source_id, m.prov_justification, m.prov_session_id
		FROM memory_items_fts
		JOIN memory_items m ON m.id = memory_items_fts.item_id
		WHERE memory_items_fts MATCH ? AND m.archived = 0
	`
	args := []any{matchExpr}
	if scope != "" {
		query += ` AND m.scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY bm25(memory_items_fts) LIMIT ?`
	args = append(args, limit)

	rows, err := store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("fts_query", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

func scanItemRows(rows *sql.Rows) ([]types.MemoryItem, error) {
	var out []types.MemoryItem
	for rows.Next() {
		item, err := scanItemFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func scanItemFromRows(rows *sql.Rows) (*types.MemoryItem, error) {
	var item types.MemoryItem
	var tier, tagsJSON string
	var injectable, archived int
	err := rows.Scan(
		&item.ID, &item.Title, &item.Content, &item.ContentHash, &tier, &item.Type, &tagsJSON, &item.Scope,
		&injectable, &archived, &item.UsageCount, &item.CreatedAt, &item.UpdatedAt,
		&item.Provenance.SourceKind, &item.Provenance.SourceID, &item.Provenance.Justification, &item.Provenance.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("scan item row: %w", err)
	}
	item.Tier = types.Tier(tier)
	item.Injectable = injectable != 0
	item.Archived = archived != 0
	if err := unmarshalTags(tagsJSON, &item.Tags); err != nil {
		return nil, err
	}
	return &item, nil
}

func scanRankedRow(rows *sql.Rows) (*types.MemoryItem, float64, error) {
	var item types.MemoryItem
	var tier, tagsJSON string
	var injectable, archived int
	var score float64
	err := rows.Scan(
		&item.ID, &item.Title, &item.Content, &item.ContentHash, &tier, &item.Type, &tagsJSON, &item.Scope,
		&injectable, &archived, &item.UsageCount, &item.CreatedAt, &item.UpdatedAt,
		&item.Provenance.SourceKind, &item.Provenance.SourceID, &item.Provenance.Justification, &item.Provenance.SessionID,
		&score,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("scan ranked row: %w", err)
	}
	item.Tier = types.Tier(tier)
	item.Injectable = injectable != 0
	item.Archived = archived != 0
	if err := unmarshalTags(tagsJSON, &item.Tags); err != nil {
		return nil, 0, err
	}
	return &item, score, nil
}
