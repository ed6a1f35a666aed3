package sqlite

import (
	"context"
	"testing"

	"github.com/steveyegge/memctl/internal/types"
)

// newTestStore opens a fresh file-backed store under t.TempDir(). A real
// file is used rather than ":memory:" so WAL mode behaves the same way it
// does in production and each test gets full isolation.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	result, err := Open(ctx, t.TempDir()+"/test.db", Options{Tokenizer: "fr"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return result.Store
}

func sampleItem(id, content string) *types.MemoryItem {
	now := nowUTC()
	return &types.MemoryItem{
		ID:         id,
		Title:      "title " + id,
		Content:    content,
		ContentHash: "hash-" + id,
		Tier:       types.TierSTM,
		Type:       "fact",
		Tags:       []string{"a", "b"},
		Scope:      "default",
		Injectable: true,
		CreatedAt:  now,
		UpdatedAt:  now,
		Provenance: types.Provenance{SourceKind: "test", Justification: "unit test fixture"},
	}
}

func acceptVerdict() types.PolicyVerdict {
	return types.PolicyVerdict{Kind: types.VerdictAccept}
}
