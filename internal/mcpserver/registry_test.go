package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServerContext(t *testing.T) (*ServerContext, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	guard := NewGuard(GuardOptions{})
	sc, err := NewServerContext(nil, filepath.Join(t.TempDir(), "test.db"), guard, NewSessionTracker(), NewRateLimiter(RateLimiterOptions{}), NewAuditLogger(&buf))
	if err != nil {
		t.Fatalf("new server context: %v", err)
	}
	return sc, &buf
}

func TestInvokeSuccessEmitsOKAudit(t *testing.T) {
	sc, buf := newTestServerContext(t)
	reg := NewRegistry()
	reg.Register("recall", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "found 3 items", nil
	})

	if err := reg.Invoke(context.Background(), sc, Call{Tool: "recall"}); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	var rec Record
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("unmarshal audit record: %v", err)
	}
	if rec.Outcome != OutcomeOK {
		t.Fatalf("outcome = %q, want ok", rec.Outcome)
	}
	if rec.Tool != "recall" {
		t.Fatalf("tool = %q, want recall", rec.Tool)
	}
	if rec.SessionID != DefaultSessionID {
		t.Fatalf("session = %q, want default", rec.SessionID)
	}
}

func TestInvokeHandlerErrorEmitsErrorAudit(t *testing.T) {
	sc, buf := newTestServerContext(t)
	reg := NewRegistry()
	reg.Register("write", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "", errBoom
	})

	err := reg.Invoke(context.Background(), sc, Call{Tool: "write"})
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}

	var rec Record
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("unmarshal audit record: %v", err)
	}
	if rec.Outcome != OutcomeErr {
		t.Fatalf("outcome = %q, want error", rec.Outcome)
	}
}

func TestInvokePolicyBlockedEmitsBlockedAudit(t *testing.T) {
	sc, buf := newTestServerContext(t)
	reg := NewRegistry()
	reg.Register("write", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "", &PolicyBlockedError{RuleID: "github-pat", Reason: "matched secret pattern"}
	})

	err := reg.Invoke(context.Background(), sc, Call{Tool: "write"})
	if err == nil {
		t.Fatal("expected blocked error to propagate")
	}

	var rec Record
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("unmarshal audit record: %v", err)
	}
	if rec.Outcome != OutcomeBlocked {
		t.Fatalf("outcome = %q, want blocked", rec.Outcome)
	}
}

func TestInvokeOversizedWriteBlockedByGuard(t *testing.T) {
	sc, _ := newTestServerContext(t)
	reg := NewRegistry()
	called := false
	reg.Register("write", func(ctx context.Context, sc *ServerContext) (string, error) {
		called = true
		return "", nil
	})

	err := reg.Invoke(context.Background(), sc, Call{Tool: "write", WriteBytes: DefaultMaxWriteBytes + 1})
	if err == nil {
		t.Fatal("expected guard to block oversized write")
	}
	if called {
		t.Fatal("handler must not run once guard blocks the call")
	}
}

func TestInvokeRateLimitBlocksAfterBurst(t *testing.T) {
	var buf bytes.Buffer
	guard := NewGuard(GuardOptions{})
	sc, err := NewServerContext(nil, filepath.Join(t.TempDir(), "test.db"), guard, NewSessionTracker(), NewRateLimiter(RateLimiterOptions{ReadPerMin: 1, BurstFactor: 1}), NewAuditLogger(&buf))
	if err != nil {
		t.Fatalf("new server context: %v", err)
	}
	reg := NewRegistry()
	reg.Register("recall", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "ok", nil
	})

	if err := reg.Invoke(context.Background(), sc, Call{Tool: "recall"}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	if err := reg.Invoke(context.Background(), sc, Call{Tool: "recall"}); err == nil {
		t.Fatal("second immediate call should be rate limited")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(lines))
	}
}

func TestInvokeBlocksProposalsOverPerTurnCap(t *testing.T) {
	var buf bytes.Buffer
	guard := NewGuard(GuardOptions{})
	sc, err := NewServerContext(nil, filepath.Join(t.TempDir(), "test.db"), guard, NewSessionTracker(), NewRateLimiter(RateLimiterOptions{PerTurnCap: 2}), NewAuditLogger(&buf))
	if err != nil {
		t.Fatalf("new server context: %v", err)
	}
	reg := NewRegistry()
	reg.Register("propose", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "proposed", nil
	})

	for i := 0; i < 2; i++ {
		if err := reg.Invoke(context.Background(), sc, Call{Tool: "propose", SessionHint: "s1", RequestID: "turn-1"}); err != nil {
			t.Fatalf("proposal %d within cap should pass: %v", i+1, err)
		}
	}
	err = reg.Invoke(context.Background(), sc, Call{Tool: "propose", SessionHint: "s1", RequestID: "turn-1"})
	if err == nil {
		t.Fatal("third proposal in the same turn should exceed the per-turn cap")
	}
}

func TestInvokeProposalCapResetsOnNewTurn(t *testing.T) {
	var buf bytes.Buffer
	guard := NewGuard(GuardOptions{})
	sc, err := NewServerContext(nil, filepath.Join(t.TempDir(), "test.db"), guard, NewSessionTracker(), NewRateLimiter(RateLimiterOptions{PerTurnCap: 1}), NewAuditLogger(&buf))
	if err != nil {
		t.Fatalf("new server context: %v", err)
	}
	reg := NewRegistry()
	reg.Register("propose", func(ctx context.Context, sc *ServerContext) (string, error) {
		return "proposed", nil
	})

	if err := reg.Invoke(context.Background(), sc, Call{Tool: "propose", SessionHint: "s1", RequestID: "turn-1"}); err != nil {
		t.Fatalf("first proposal: %v", err)
	}
	if err := reg.Invoke(context.Background(), sc, Call{Tool: "propose", SessionHint: "s1", RequestID: "turn-2"}); err != nil {
		t.Fatalf("first proposal of a new turn should pass: %v", err)
	}
}

func TestInvokeUnknownToolErrors(t *testing.T) {
	sc, _ := newTestServerContext(t)
	reg := NewRegistry()
	if err := reg.Invoke(context.Background(), sc, Call{Tool: "nope"}); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

type boom struct{}

func (boom) Error() string { return "boom" }

var errBoom = boom{}
