package mcpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditSchemaVersion is the audit record schema version (spec.md §4.12,
// §6: "stable under SemVer — additions are minor, removals require
// major").
const AuditSchemaVersion = 1

// Outcome is the closed set of tool-call outcomes an audit record reports.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeErr     Outcome = "error"
	OutcomeBlocked Outcome = "blocked"
)

// contentPreviewChars is the cap on the raw-content preview carried in an
// audit record — the privacy rule: raw content is never logged in full,
// only a short preview plus its hash and length.
const contentPreviewChars = 120

// Record is one JSONL audit line — schema v1, fields may be added, never
// removed.
type Record struct {
	Version    int     `json:"version"`
	Timestamp  string  `json:"timestamp"`
	RequestID  string  `json:"request_id"`
	Tool       string  `json:"tool"`
	SessionID  string  `json:"session_id"`
	DBPath     string  `json:"db_path"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
	ElapsedMS  int64   `json:"elapsed_ms"`
}

// ContentSummary builds the privacy-safe preview/hash/length triple for
// content that an audit record's Detail blob wants to reference. Raw
// content is never logged (spec.md §4.12 privacy rule).
func ContentSummary(content string) (preview string, sha256Hex string, length int) {
	sum := sha256.Sum256([]byte(content))
	preview = content
	if len(preview) > contentPreviewChars {
		preview = preview[:contentPreviewChars]
	}
	return preview, hex.EncodeToString(sum[:]), len(content)
}

// AuditLogger emits one JSONL record per tool call, success and failure,
// to its configured writer. Audit failures are swallowed: a write error
// here must never disrupt tool execution (fire-and-forget).
type AuditLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAuditLogger wraps w (typically os.Stderr or an append-only file).
func NewAuditLogger(w io.Writer) *AuditLogger {
	return &AuditLogger{w: w}
}

// NewRequestID mints a fresh request id correlating the tool calls within
// one MCP request.
func NewRequestID() string {
	return uuid.NewString()
}

// Emit writes rec as one JSON line. Errors are swallowed per the
// fire-and-forget contract; callers never see them.
func (a *AuditLogger) Emit(rec Record) {
	rec.Version = AuditSchemaVersion
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return // fire-and-forget: audit must not disrupt tool execution
	}
	_, _ = fmt.Fprintln(a.w, string(data))
}
