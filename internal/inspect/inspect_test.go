package inspect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
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

func writeFixtures(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "a.md"), []byte("alpha content here"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "b.md"), []byte("beta content over there"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestInspectAutoMountsAndSyncs(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	store := newTestStore(t)
	ctx := context.Background()
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	d, err := Inspect(ctx, store, ev, reg, dir, SyncAuto, DefaultThresholds())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !d.AutoMounted {
		t.Fatal("expected auto-mount on first inspect")
	}
	if !d.Synced {
		t.Fatal("expected a sync to have run on stale (never-seen) corpus")
	}
	if d.TotalFiles != 2 {
		t.Fatalf("total files = %d, want 2", d.TotalFiles)
	}
	if len(d.Folders) != 1 || d.Folders[0].Path != "docs" {
		t.Fatalf("folders = %+v, want one 'docs' folder", d.Folders)
	}
}

func TestInspectSecondCallIsNotStale(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	store := newTestStore(t)
	ctx := context.Background()
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	if _, err := Inspect(ctx, store, ev, reg, dir, SyncAuto, DefaultThresholds()); err != nil {
		t.Fatalf("first inspect: %v", err)
	}

	d, err := Inspect(ctx, store, ev, reg, dir, SyncAuto, DefaultThresholds())
	if err != nil {
		t.Fatalf("second inspect: %v", err)
	}
	if d.AutoMounted {
		t.Fatal("second inspect should not report auto-mount")
	}
	if d.Synced {
		t.Fatal("second inspect should not need a sync when nothing changed")
	}
}

func TestInspectSyncNeverSkipsEvenWhenStale(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	store := newTestStore(t)
	ctx := context.Background()
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	d, err := Inspect(ctx, store, ev, reg, dir, SyncNever, DefaultThresholds())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if d.Synced {
		t.Fatal("SyncNever must never sync")
	}
	if d.TotalFiles != 0 {
		t.Fatalf("total files = %d, want 0 (nothing synced yet)", d.TotalFiles)
	}
}

func TestObserveFlagsSparseCorpus(t *testing.T) {
	th := DefaultThresholds()
	d := build("mnt_test", nil, th)
	found := false
	for _, o := range d.Observations {
		if strings.Contains(o, "sparse") {
			found = true
		}
	}
	if !found {
		t.Fatalf("observations = %v, want a sparse-corpus observation for zero chunks", d.Observations)
	}
}

func TestRenderProducesVersionedHeader(t *testing.T) {
	d := build("mnt_test", nil, DefaultThresholds())
	block := Render(d, 500)
	if !strings.HasPrefix(block, "format_version=1") {
		t.Fatalf("render = %q, want header prefix", block)
	}
}
