package sqlite

import (
	"context"
	"testing"
)

func TestStatsCountsItemsByTierAndType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item1 := sampleItem("mem_s1", "content one")
	item2 := sampleItem("mem_s2", "content two")
	item2.Tier = "mtm"
	item2.Type = "decision"

	if _, err := store.WriteItem(ctx, item1, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item1: %v", err)
	}
	if _, err := store.WriteItem(ctx, item2, acceptVerdict(), "w2"); err != nil {
		t.Fatalf("write item2: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalItems != 2 {
		t.Fatalf("total_items = %d, want 2", stats.TotalItems)
	}
	if stats.ByTier["stm"] != 1 || stats.ByTier["mtm"] != 1 {
		t.Fatalf("by_tier = %+v, want one stm and one mtm", stats.ByTier)
	}
	if stats.ByType["fact"] != 1 || stats.ByType["decision"] != 1 {
		t.Fatalf("by_type = %+v", stats.ByType)
	}
	if stats.Tokenizer != "fr" {
		t.Fatalf("tokenizer = %q, want fr", stats.Tokenizer)
	}
}

func TestResetAllDataRequiresConfirmation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.ResetAllData(ctx, "nope"); err == nil {
		t.Fatal("expected error without confirmation phrase")
	}

	item := sampleItem("mem_r1", "to be erased")
	if _, err := store.WriteItem(ctx, item, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item: %v", err)
	}

	if err := store.ResetAllData(ctx, "erase-everything"); err != nil {
		t.Fatalf("reset all data: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalItems != 0 {
		t.Fatalf("total_items = %d, want 0 after reset", stats.TotalItems)
	}
}
