package recall

import (
	"context"
	"strings"
	"testing"

	"github.com/steveyegge/memctl/internal/types"
)

// mockBackend is a minimal in-memory Backend used to exercise cascade
// control flow deterministically.
type mockBackend struct {
	items  []types.MemoryItem
	stems  bool
}

func (m *mockBackend) matches(terms []string, requireAll bool) []types.MemoryItem {
	var out []types.MemoryItem
	for _, it := range m.items {
		haystack := strings.ToLower(it.Title + " " + it.Content)
		hit := false
		allHit := true
		for _, t := range terms {
			if strings.Contains(haystack, strings.ToLower(strings.TrimSuffix(t, "*"))) {
				hit = true
			} else {
				allHit = false
			}
		}
		if requireAll && allHit {
			out = append(out, it)
		} else if !requireAll && hit {
			out = append(out, it)
		}
	}
	return out
}

func (m *mockBackend) MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return m.matches(terms, true), nil
}

func (m *mockBackend) MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return m.matches(terms, true), nil
}

func (m *mockBackend) MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]RankedMatch, error) {
	var out []RankedMatch
	for _, it := range m.matches(terms, false) {
		out = append(out, RankedMatch{Item: it, BM25: 0})
	}
	return out, nil
}

func (m *mockBackend) MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return m.matches(terms, false), nil
}

func (m *mockBackend) TokenizerStems(ctx context.Context) (bool, error) {
	return m.stems, nil
}

func TestCascadeStopsAtAND(t *testing.T) {
	backend := &mockBackend{items: []types.MemoryItem{
		{ID: "a", Title: "REST conventions", Content: "conventions for endpoints"},
	}}
	items, meta, err := Search(context.Background(), backend, nil, "REST conventions endpoints", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Strategy != types.StrategyAND {
		t.Fatalf("got %v, want AND", meta.Strategy)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestCascadeEscalatesToReducedAND(t *testing.T) {
	backend := &mockBackend{items: []types.MemoryItem{
		{ID: "a", Title: "REST conventions", Content: "REST conventions for endpoints"},
	}}
	items, meta, err := Search(context.Background(), backend, nil, "REST conventions endpoints follow", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Strategy != types.StrategyReducedAND {
		t.Fatalf("got %v, want REDUCED_AND", meta.Strategy)
	}
	if len(meta.DroppedTerms) != 1 || meta.DroppedTerms[0] != "follow" {
		t.Fatalf("got dropped=%v, want [follow]", meta.DroppedTerms)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestCascadeSkipsPrefixWhenTokenizerStems(t *testing.T) {
	backend := &mockBackend{stems: true, items: []types.MemoryItem{
		{ID: "a", Title: "unrelated", Content: "nothing matches here at all"},
	}}
	_, meta, err := Search(context.Background(), backend, nil, "zzzzz yyyyy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Strategy == types.StrategyPrefixAND {
		t.Fatal("PREFIX_AND should be skipped when tokenizer stems")
	}
}

func TestCascadeFallsBackToOR(t *testing.T) {
	backend := &mockBackend{items: []types.MemoryItem{
		{ID: "a", Title: "alpha only", Content: "alpha only content"},
		{ID: "b", Title: "beta only", Content: "beta only content"},
	}}
	items, meta, err := Search(context.Background(), backend, nil, "alpha beta gamma", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Strategy != types.StrategyORFallback {
		t.Fatalf("got %v, want OR_FALLBACK", meta.Strategy)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestCascadeEmptyQueryUsesLike(t *testing.T) {
	backend := &mockBackend{}
	_, meta, err := Search(context.Background(), backend, nil, "the a an", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if meta.Strategy != types.StrategyLIKE {
		t.Fatalf("got %v, want LIKE for all-stopword query", meta.Strategy)
	}
}
