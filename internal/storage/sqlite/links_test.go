package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/memctl/internal/types"
)

func TestCreateAndQueryLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item1 := sampleItem("mem_a", "older decision")
	item2 := sampleItem("mem_b", "newer decision")
	if _, err := store.WriteItem(ctx, item1, acceptVerdict(), "w1"); err != nil {
		t.Fatalf("write item1: %v", err)
	}
	if _, err := store.WriteItem(ctx, item2, acceptVerdict(), "w2"); err != nil {
		t.Fatalf("write item2: %v", err)
	}

	if _, err := store.CreateLink(ctx, item2.ID, item1.ID, types.LinkSupersedes); err != nil {
		t.Fatalf("create link: %v", err)
	}

	from, err := store.LinksFrom(ctx, item2.ID)
	if err != nil {
		t.Fatalf("links from: %v", err)
	}
	if len(from) != 1 || from[0].Type != types.LinkSupersedes {
		t.Fatalf("from = %+v, want one supersedes link", from)
	}

	to, err := store.LinksTo(ctx, item1.ID)
	if err != nil {
		t.Fatalf("links to: %v", err)
	}
	if len(to) != 1 || to[0].FromID != item2.ID {
		t.Fatalf("to = %+v, want link from item2", to)
	}
}
