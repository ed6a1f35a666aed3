package orchestrate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/inspect"
	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	result, err := sqlite.Open(context.Background(), t.TempDir()+"/test.db", sqlite.Options{Tokenizer: "fr"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = result.Store.Close() })
	return result.Store
}

func TestAskRunsInspectRecallAndLoop(t *testing.T) {
	store := newTestStore(t)
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# Notes\n\nREST conventions for endpoints.\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var answer, progress bytes.Buffer
	result, err := Ask(context.Background(), store, ev, reg, AskOptions{
		Path:     dir,
		Question: "what are the REST conventions?",
		Invoker:  &loop.MockInvoker{Responses: []string{"REST conventions are documented."}},
	}, &answer, &progress)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if result.Answer == "" {
		t.Fatal("expected a non-empty answer")
	}
	if answer.String() != result.Answer {
		t.Fatalf("answer writer = %q, want %q", answer.String(), result.Answer)
	}
	if progress.Len() == 0 {
		t.Fatal("expected progress output")
	}
	if result.Digest.TotalFiles != 1 {
		t.Fatalf("digest total files = %d, want 1", result.Digest.TotalFiles)
	}
}

func TestAskSyncNeverSkipsIngestion(t *testing.T) {
	store := newTestStore(t)
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()
	dir := t.TempDir()

	var answer, progress bytes.Buffer
	_, err := Ask(context.Background(), store, ev, reg, AskOptions{
		Path:     dir,
		Question: "anything here?",
		Sync:     inspect.SyncNever,
		Invoker:  &loop.MockInvoker{Responses: []string{"nothing found"}},
	}, &answer, &progress)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
}

func TestChatTurnPersistsWhenEnabled(t *testing.T) {
	store := newTestStore(t)
	ev := policy.DefaultEvaluator()

	chat := NewChat(store, ev, ChatOptions{
		Persist: true,
		Invoker: &loop.MockInvoker{Responses: []string{"the answer"}},
	})

	var answer, progress bytes.Buffer
	_, err := chat.Turn(context.Background(), "a question nobody asked before", &answer, &progress)
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	items, err := store.ListItems(context.Background(), sqlite.ItemFilter{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 persisted answer", len(items))
	}
}

func TestChatHistoryTrimsByTurnCount(t *testing.T) {
	store := newTestStore(t)
	ev := policy.DefaultEvaluator()

	chat := NewChat(store, ev, ChatOptions{
		HistoryMaxTurns: 2,
		Invoker: &loop.MockInvoker{Responses: []string{"a1", "a2", "a3"}},
	})

	var answer, progress bytes.Buffer
	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := chat.Turn(context.Background(), q, &answer, &progress); err != nil {
			t.Fatalf("turn %q: %v", q, err)
		}
		answer.Reset()
	}

	if len(chat.history) != 2 {
		t.Fatalf("history length = %d, want 2", len(chat.history))
	}
	if chat.history[0].Question != "q2" {
		t.Fatalf("oldest retained turn = %q, want q2", chat.history[0].Question)
	}
}
