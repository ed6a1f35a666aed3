package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PolicyBlockedError marks a tool outcome as "blocked" (vs "error") — the
// policy-rejection path (spec.md §7): "MCP tool returns blocked outcome
// with rule id in d.policy".
type PolicyBlockedError struct {
	RuleID string
	Reason string
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("blocked by policy rule %s: %s", e.RuleID, e.Reason)
}

// Call describes one tool invocation's guard-relevant shape. WriteBytes
// and ItemCount are zero for pure reads.
type Call struct {
	Tool       string
	SessionHint string
	WriteBytes int // 0 for reads
	ItemCount  int // import batch size; 0 for non-import tools
	RequestID  string // correlates multiple tool calls in one MCP request; minted if empty
}

// Handler is a tool's execution body. It runs only after guard, session,
// and rate-limit have all passed.
type Handler func(ctx context.Context, sc *ServerContext) (detail string, err error)

// Registry holds tool handlers and drives every call through the fixed
// middleware order: guard -> session -> rate limit -> tool execute ->
// audit. No tool may bypass any layer.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a tool name. Panics on duplicate
// registration — a programming error, not a runtime condition.
func (r *Registry) Register(tool string, h Handler) {
	if _, exists := r.handlers[tool]; exists {
		panic(fmt.Sprintf("mcpserver: tool %q already registered", tool))
	}
	r.handlers[tool] = h
}

// Invoke runs call through the full middleware chain against sc. The
// returned error, if any, is also what the audit record's outcome is
// derived from; callers translate it to a transport-level response.
func (r *Registry) Invoke(ctx context.Context, sc *ServerContext, call Call) error {
	start := time.Now()
	sessionID := ResolveSessionID(call.SessionHint)
	requestID := call.RequestID
	if requestID == "" {
		requestID = NewRequestID()
	}

	emit := func(outcome Outcome, detail string) {
		elapsed := time.Since(start)
		sc.Audit.Emit(Record{
			RequestID: requestID,
			Tool:      call.Tool,
			SessionID: sessionID,
			DBPath:    sc.DBPath,
			Outcome:   outcome,
			Detail:    detail,
			ElapsedMS: elapsed.Milliseconds(),
		})
		recordToolCall(ctx, call.Tool, outcome, float64(elapsed.Microseconds())/1000)
	}

	h, ok := r.handlers[call.Tool]
	if !ok {
		err := fmt.Errorf("mcpserver: unknown tool %q", call.Tool)
		emit(OutcomeErr, err.Error())
		return err
	}

	// Guard: per-call write size cap and import batch cap. Path
	// canonicalization already happened once at ServerContext
	// construction; sc.DBPath is reused on every call, never re-resolved.
	if call.WriteBytes > 0 {
		if err := sc.Guard.CheckWriteSize(call.WriteBytes); err != nil {
			emit(OutcomeBlocked, err.Error())
			return err
		}
	}
	if call.ItemCount > 0 {
		if err := sc.Guard.CheckImportBatch(call.ItemCount); err != nil {
			emit(OutcomeBlocked, err.Error())
			return err
		}
	}

	// Session.
	sc.Session.BeginTurn(sessionID, requestID)

	// Rate limit.
	class := ClassifyTool(call.Tool)
	if call.ItemCount > 0 {
		if err := sc.Limiter.AllowImport(sessionID, call.ItemCount, call.WriteBytes, sc.Guard.MaxWriteBytesPerMin()); err != nil {
			emit(OutcomeBlocked, err.Error())
			return err
		}
	} else if err := sc.Limiter.Allow(sessionID, class, 1); err != nil {
		emit(OutcomeBlocked, err.Error())
		return err
	}
	if class == ClassWrite {
		sc.Session.RecordWrite(sessionID)
	}
	if call.Tool == "propose" {
		proposals := sc.Session.RecordProposal(sessionID)
		if err := sc.Limiter.CheckTurnProposals(proposals); err != nil {
			emit(OutcomeBlocked, err.Error())
			return err
		}
	}

	// Tool execute.
	detail, err := h(ctx, sc)
	if err != nil {
		var blocked *PolicyBlockedError
		if errors.As(err, &blocked) {
			emit(OutcomeBlocked, err.Error())
			return err
		}
		emit(OutcomeErr, err.Error())
		return err
	}

	// Audit.
	emit(OutcomeOK, detail)
	return nil
}
