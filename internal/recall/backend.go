// Package recall implements the FTS cascade — the deterministic strategy
// ladder AND -> REDUCED_AND -> PREFIX_AND -> OR_FALLBACK -> LIKE — and the
// coverage ranking used by OR_FALLBACK. It depends only on a
// narrow Backend interface so the cascade's control flow is testable
// without a real database.
package recall

import (
	"context"

	"github.com/steveyegge/memctl/internal/types"
)

// RankedMatch is one OR_FALLBACK candidate with its underlying FTS BM25
// score, used as the stable tie-break behind coverage ranking.
type RankedMatch struct {
	Item types.MemoryItem
	BM25 float64
}

// Backend is the storage-layer surface the cascade needs. Implemented by
// internal/storage/sqlite; a mock implementation backs the cascade's own
// unit tests.
type Backend interface {
	// MatchAll returns items containing every term (FTS5 AND semantics).
	MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error)
	// MatchPrefixAll returns items matching every term as a prefix
	// (terms already have length >= 5; '*' is appended by the backend).
	MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error)
	// MatchAny returns items matching at least one term, ordered by the
	// underlying FTS BM25 score (stable order for tie-breaking).
	MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]RankedMatch, error)
	// MatchLike is the substring fallback used when FTS is unavailable.
	MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error)
	// TokenizerStems reports whether the active tokenizer stems, which
	// skips PREFIX_AND.
	TokenizerStems(ctx context.Context) (bool, error)
}
