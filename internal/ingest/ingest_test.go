package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

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

func TestIngestWritesChunkedItems(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Title One\n\nfirst paragraph\n\nsecond paragraph"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ev := policy.DefaultEvaluator()
	reg := NewRegistry()

	ctx := context.Background()
	result, err := Ingest(ctx, store, ev, reg, []string{dir}, Options{MountID: "m1", DefaultScope: "default"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.ItemsWritten != 2 {
		t.Fatalf("items written = %d, want 2", result.ItemsWritten)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("stable content, nothing changes here"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ev := policy.DefaultEvaluator()
	reg := NewRegistry()
	ctx := context.Background()

	if _, err := Ingest(ctx, store, ev, reg, []string{dir}, Options{MountID: "m1"}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := Ingest(ctx, store, ev, reg, []string{dir}, Options{MountID: "m1"})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.ItemsWritten != 0 {
		t.Fatalf("second ingest items written = %d, want 0", second.ItemsWritten)
	}
	if second.FilesSkipped != 1 {
		t.Fatalf("second ingest files skipped = %d, want 1", second.FilesSkipped)
	}
}

func TestIngestMissingExtractorSurfacesError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.pdf"), []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t)
	ev := policy.DefaultEvaluator()
	reg := NewRegistry()
	ctx := context.Background()

	result, err := Ingest(ctx, store, ev, reg, []string{dir}, Options{MountID: "m1"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1 naming the missing extractor", len(result.Errors))
	}
}
