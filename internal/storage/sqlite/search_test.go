package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/types"
)

func TestBackendMatchAllFindsExactPhrase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := sampleItem("mem_fts1", "REST conventions for endpoints")
	item.Title = "REST conventions"
	if _, err := store.WriteItem(ctx, item, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item: %v", err)
	}

	items, meta, err := recall.Search(ctx, store.Backend(), store, "REST conventions endpoints", recall.Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if meta.Strategy != types.StrategyAND {
		t.Fatalf("strategy = %v, want AND", meta.Strategy)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("got %+v, want item %s", items, item.ID)
	}
}

func TestBackendEscalatesToReducedAND(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := sampleItem("mem_fts2", "REST conventions for endpoints")
	item.Title = "REST conventions"
	if _, err := store.WriteItem(ctx, item, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item: %v", err)
	}

	items, meta, err := recall.Search(ctx, store.Backend(), store, "REST conventions endpoints follow", recall.Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if meta.Strategy != types.StrategyReducedAND {
		t.Fatalf("strategy = %v, want REDUCED_AND", meta.Strategy)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestBackendMatchLikeFallsBackWhenFTSMisses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := sampleItem("mem_fts3", "partial-token-xyz content body")
	if _, err := store.WriteItem(ctx, item, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item: %v", err)
	}

	got, err := store.Backend().MatchLike(ctx, []string{"partial-token-xyz"}, "", 10)
	if err != nil {
		t.Fatalf("match like: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
}

func TestBackendTokenizerStemsReflectsConfiguredTokenizer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stems, err := store.Backend().TokenizerStems(ctx)
	if err != nil {
		t.Fatalf("tokenizer stems: %v", err)
	}
	if stems {
		t.Fatal("default 'fr' tokenizer must not stem")
	}

	if _, _, err := store.RebuildFTS(ctx, "en"); err != nil {
		t.Fatalf("rebuild fts: %v", err)
	}
	stems, err = store.Backend().TokenizerStems(ctx)
	if err != nil {
		t.Fatalf("tokenizer stems after rebuild: %v", err)
	}
	if !stems {
		t.Fatal("'en' tokenizer must stem")
	}
}
