package mcpserver

import "sync"

// DefaultSessionID is the fallback singleton session id used when the MCP
// context carries none.
const DefaultSessionID = "default"

// sessionState is the per-session counters the tracker holds in memory.
// Never persisted. Only the current turn's counts are kept — nothing
// reads a past turn's counts, so there is no history to retain.
type sessionState struct {
	turnCount     int
	turnBegun     bool
	lastRequestID string
	turnWrites    int
	turnProposals int
}

// SessionTracker derives a session id from the MCP context when available,
// falling back to DefaultSessionID, and tracks turn counts and per-turn
// write counts. In-memory, single-process, cooperative — no locks are
// strictly required by the single-threaded scheduler, but a mutex is kept
// so tests may exercise it from multiple goroutines safely.
type SessionTracker struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

// NewSessionTracker returns an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{sessions: make(map[string]*sessionState)}
}

// ResolveSessionID returns hint if non-empty, else DefaultSessionID.
func ResolveSessionID(hint string) string {
	if hint == "" {
		return DefaultSessionID
	}
	return hint
}

// BeginTurn opens a turn for requestID, the id correlating every tool call
// belonging to one MCP request (Call.RequestID). A call sharing the
// previous call's requestID continues that turn instead of starting a new
// one, so a multi-tool-call request accumulates write and proposal counts
// against a single turn; a new or empty requestID (the stdio placeholder
// transport mints a fresh one per line) always opens a new turn. Returns
// the turn count.
func (t *SessionTracker) BeginTurn(sessionID, requestID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(sessionID)
	if requestID == "" || requestID != s.lastRequestID {
		s.turnCount++
		s.turnBegun = true
		s.turnWrites = 0
		s.turnProposals = 0
		s.lastRequestID = requestID
	}
	return s.turnCount
}

// RecordWrite increments the write count for the session's current turn.
// Returns the new count, or 0 if BeginTurn was never called for this
// session (a no-op turn).
func (t *SessionTracker) RecordWrite(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(sessionID)
	if !s.turnBegun {
		return 0
	}
	s.turnWrites++
	return s.turnWrites
}

// RecordProposal increments the propose-call count for the session's
// current turn. Returns the new count, or 0 if BeginTurn was never called
// for this session.
func (t *SessionTracker) RecordProposal(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(sessionID)
	if !s.turnBegun {
		return 0
	}
	s.turnProposals++
	return s.turnProposals
}

// TurnCount reports how many turns a session has had.
func (t *SessionTracker) TurnCount(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked(sessionID).turnCount
}

// CurrentTurnWrites reports the write count of the session's most recent
// turn, or 0 if no turn has begun.
func (t *SessionTracker) CurrentTurnWrites(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(sessionID)
	if !s.turnBegun {
		return 0
	}
	return s.turnWrites
}

// CurrentTurnProposals reports the propose-call count of the session's
// most recent turn, or 0 if no turn has begun.
func (t *SessionTracker) CurrentTurnProposals(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stateLocked(sessionID)
	if !s.turnBegun {
		return 0
	}
	return s.turnProposals
}

func (t *SessionTracker) stateLocked(sessionID string) *sessionState {
	s, ok := t.sessions[sessionID]
	if !ok {
		s = &sessionState{}
		t.sessions[sessionID] = s
	}
	return s
}
