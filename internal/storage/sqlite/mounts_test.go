package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/memctl/internal/types"
)

func TestUpsertAndGetMount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := types.Mount{ID: "m1", Path: "/repo/docs", DisplayName: "docs", IgnorePatterns: []string{"*.tmp"}}
	if err := store.UpsertMount(ctx, m); err != nil {
		t.Fatalf("upsert mount: %v", err)
	}

	got, err := store.GetMount(ctx, "m1")
	if err != nil {
		t.Fatalf("get mount: %v", err)
	}
	if got.Path != m.Path || len(got.IgnorePatterns) != 1 {
		t.Fatalf("got %+v, want %+v", got, m)
	}

	m.DisplayName = "docs renamed"
	if err := store.UpsertMount(ctx, m); err != nil {
		t.Fatalf("upsert mount update: %v", err)
	}
	got, err = store.GetMount(ctx, "m1")
	if err != nil {
		t.Fatalf("get mount after update: %v", err)
	}
	if got.DisplayName != "docs renamed" {
		t.Fatalf("display_name = %q, want %q", got.DisplayName, "docs renamed")
	}
}

func TestListMounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		if err := store.UpsertMount(ctx, types.Mount{ID: id, Path: "/repo/" + id, DisplayName: id}); err != nil {
			t.Fatalf("upsert mount %s: %v", id, err)
		}
	}

	mounts, err := store.ListMounts(ctx)
	if err != nil {
		t.Fatalf("list mounts: %v", err)
	}
	if len(mounts) != 2 {
		t.Fatalf("got %d mounts, want 2", len(mounts))
	}
}

func TestItemIDsForMount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertMount(ctx, types.Mount{ID: "m1", Path: "/repo", DisplayName: "repo"}); err != nil {
		t.Fatalf("upsert mount: %v", err)
	}
	if err := store.UpsertCorpusHash(ctx, types.CorpusHash{
		Hash: "h1", MountID: "m1", RelPath: "a.md", ItemIDs: []string{"mem_1", "mem_2"},
	}); err != nil {
		t.Fatalf("upsert corpus hash: %v", err)
	}

	ids, err := store.ItemIDsForMount(ctx, "m1")
	if err != nil {
		t.Fatalf("item ids for mount: %v", err)
	}
	if !ids["mem_1"] || !ids["mem_2"] {
		t.Fatalf("got %v, want both mem_1 and mem_2", ids)
	}
}
