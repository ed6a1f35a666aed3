package mcpserver

import (
	"fmt"
	"sync"
	"time"
)

// ToolClass is which rate-limit bucket a tool belongs to.
type ToolClass string

const (
	ClassWrite  ToolClass = "write"
	ClassRead   ToolClass = "read"
	ClassExempt ToolClass = "exempt" // stats, mount metadata ops: never throttled
)

// DefaultWritePerMin and DefaultReadPerMin are the token-bucket refill
// rates per session, per tool class (spec.md §4.12).
const (
	DefaultWritePerMin = 20
	DefaultReadPerMin  = 120
	DefaultBurstFactor = 2
)

// writeTools and readTools classify every MCP tool name (spec.md §4.12,
// §6). Tools absent from both maps are exempt (stats, mount metadata ops).
var writeTools = map[string]bool{
	"write": true, "propose": true, "import": true, "consolidate": true,
	"sync": true, "reindex": true,
}

var readTools = map[string]bool{
	"recall": true, "search": true, "read": true, "export": true,
	"inspect": true, "ask": true, "loop": true,
}

// ClassifyTool returns the rate-limit class for toolName.
func ClassifyTool(toolName string) ToolClass {
	if writeTools[toolName] {
		return ClassWrite
	}
	if readTools[toolName] {
		return ClassRead
	}
	return ClassExempt
}

// bucket is a token bucket: up to capacity tokens, refilled continuously
// at ratePerMin tokens/minute.
type bucket struct {
	capacity   float64
	ratePerMin float64
	tokens     float64
	lastRefill time.Time
}

func newBucket(ratePerMin float64, burst int) *bucket {
	capacity := ratePerMin * float64(burst)
	return &bucket{capacity: capacity, ratePerMin: ratePerMin, tokens: capacity, lastRefill: time.Now()}
}

func (b *bucket) refill(now time.Time) {
	elapsedMin := now.Sub(b.lastRefill).Minutes()
	if elapsedMin <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsedMin*b.ratePerMin)
	b.lastRefill = now
}

func (b *bucket) take(now time.Time, n float64) bool {
	b.refill(now)
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// RateLimiter is a token bucket per (session, tool class). Single
// threaded, cooperative scheduling — no locks are required by the
// server's own scheduler, but a mutex guards concurrent test access.
type RateLimiter struct {
	mu          sync.Mutex
	writePerMin float64
	readPerMin  float64
	burst       int
	buckets     map[string]*bucket // key: sessionID + "|" + class
	perTurnCap  int                // per-turn cap on proposals; 0 disables
}

// RateLimiterOptions configures a RateLimiter.
type RateLimiterOptions struct {
	WritePerMin int
	ReadPerMin  int
	BurstFactor int
	PerTurnCap  int // per-turn proposal cap; 0 disables
}

func (o RateLimiterOptions) withDefaults() RateLimiterOptions {
	if o.WritePerMin <= 0 {
		o.WritePerMin = DefaultWritePerMin
	}
	if o.ReadPerMin <= 0 {
		o.ReadPerMin = DefaultReadPerMin
	}
	if o.BurstFactor <= 0 {
		o.BurstFactor = DefaultBurstFactor
	}
	return o
}

// NewRateLimiter builds a RateLimiter from opts.
func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	opts = opts.withDefaults()
	return &RateLimiter{
		writePerMin: float64(opts.WritePerMin),
		readPerMin:  float64(opts.ReadPerMin),
		burst:       opts.BurstFactor,
		buckets:     make(map[string]*bucket),
		perTurnCap:  opts.PerTurnCap,
	}
}

// Allow consumes cost tokens (default 1) from the session's bucket for
// class, returning an error if the bucket is empty. Exempt tools are
// never throttled.
func (r *RateLimiter) Allow(sessionID string, class ToolClass, cost float64) error {
	if class == ClassExempt {
		return nil
	}
	if cost <= 0 {
		cost = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionID + "|" + string(class)
	b, ok := r.buckets[key]
	if !ok {
		rate := r.readPerMin
		if class == ClassWrite {
			rate = r.writePerMin
		}
		b = newBucket(rate, r.burst)
		r.buckets[key] = b
	}

	if !b.take(time.Now(), cost) {
		return fmt.Errorf("rate limit: session %q exceeded %s budget", sessionID, class)
	}
	return nil
}

// AllowImport is Allow sized for an import batch: one token per item plus
// its byte budget charged against the write class (spec.md §4.12,
// "imports count as one token per item plus their byte budget"). Costed
// as a single Allow call so a rejection never leaves tokens partially
// spent.
func (r *RateLimiter) AllowImport(sessionID string, itemCount int, totalBytes int, maxWriteBytesPerMin int) error {
	cost := float64(itemCount)
	if maxWriteBytesPerMin > 0 {
		cost += float64(totalBytes) / float64(maxWriteBytesPerMin) * r.writePerMin
	}
	return r.Allow(sessionID, ClassWrite, cost)
}

// CheckTurnProposals enforces the per-turn cap on proposals, if configured.
func (r *RateLimiter) CheckTurnProposals(proposalsThisTurn int) error {
	if r.perTurnCap > 0 && proposalsThisTurn > r.perTurnCap {
		return fmt.Errorf("rate limit: %d proposals exceeds per-turn cap of %d", proposalsThisTurn, r.perTurnCap)
	}
	return nil
}
