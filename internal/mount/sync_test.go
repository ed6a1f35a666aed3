package mount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	result, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), sqlite.Options{Tokenizer: "fr"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = result.Store.Close() })
	return result.Store
}

func TestSyncIngestsNewFilesThenSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("first content here"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ctx := context.Background()
	m, err := Register(ctx, store, dir, "docs", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	first, err := Sync(ctx, store, ev, reg, m.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(first.Files) != 1 || first.Files[0].Tier != TierIngested {
		t.Fatalf("first sync = %+v, want one TierIngested file", first.Files)
	}

	second, err := Sync(ctx, store, ev, reg, m.ID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(second.Files) != 1 || second.Files[0].Tier != TierSkipped {
		t.Fatalf("second sync = %+v, want TierSkipped", second.Files)
	}
}

func TestSyncArchivesOrphans(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.md")
	if err := os.WriteFile(filePath, []byte("content that will be deleted"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ctx := context.Background()
	m, err := Register(ctx, store, dir, "docs", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	if _, err := Sync(ctx, store, ev, reg, m.ID); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	if err := os.Remove(filePath); err != nil {
		t.Fatalf("remove fixture: %v", err)
	}

	result, err := Sync(ctx, store, ev, reg, m.ID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.OrphansArchived != 1 {
		t.Fatalf("orphans archived = %d, want 1", result.OrphansArchived)
	}
}

func TestSyncReingestsChangedFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.md")
	if err := os.WriteFile(filePath, []byte("version one"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ctx := context.Background()
	m, err := Register(ctx, store, dir, "docs", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	if _, err := Sync(ctx, store, ev, reg, m.ID); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	if err := os.WriteFile(filePath, []byte("version two, totally different content"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}

	result, err := Sync(ctx, store, ev, reg, m.ID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].Tier != TierIngested {
		t.Fatalf("second sync = %+v, want TierIngested for changed file", result.Files)
	}
}
