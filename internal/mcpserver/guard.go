// Package mcpserver is the MCP middleware stack: a fixed guard -> session
// -> rate limit -> tool execute -> audit chain that every tool invocation
// traverses, with no tool permitted to bypass any layer. Module-level
// singletons (tokenizer, rate-limiter, session tracker) are replaced by an
// explicit ServerContext owned by the entry point and passed to every tool
// handler — no process-wide mutable state survives process exit except
// the database file.
package mcpserver

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GuardOptions configures a Guard.
type GuardOptions struct {
	Root                 string // optional containment root; empty disables containment checks
	MaxWriteBytes        int    // per-call write size cap; default 64*1024
	MaxWriteBytesPerMin  int    // per-minute aggregate write byte budget; default 10 * MaxWriteBytes
	MaxImportBatch       int    // import batch cap; default 500
}

// DefaultMaxWriteBytes is the per-call write size cap (spec.md §4.12).
const DefaultMaxWriteBytes = 64 * 1024

// DefaultMaxImportBatch is the import batch cap (spec.md §4.12).
const DefaultMaxImportBatch = 500

func (o GuardOptions) withDefaults() GuardOptions {
	if o.MaxWriteBytes <= 0 {
		o.MaxWriteBytes = DefaultMaxWriteBytes
	}
	if o.MaxWriteBytesPerMin <= 0 {
		o.MaxWriteBytesPerMin = 10 * o.MaxWriteBytes
	}
	if o.MaxImportBatch <= 0 {
		o.MaxImportBatch = DefaultMaxImportBatch
	}
	return o
}

// Guard canonicalizes and validates every database path, and enforces the
// per-call write size cap, the per-minute aggregate write byte budget, and
// the import batch cap.
type Guard struct {
	opts GuardOptions
}

// NewGuard builds a Guard from opts.
func NewGuard(opts GuardOptions) *Guard {
	return &Guard{opts: opts.withDefaults()}
}

// CanonicalizePath rejects ".." path components before resolution,
// resolves symlinks, and — when a root is configured — checks the
// resolved path is contained under it. The returned path is always
// root-relative when a root is configured, so logs never carry an
// absolute path (spec.md §4.12, "root-relative paths only in logs").
func (g *Guard) CanonicalizePath(raw string) (string, error) {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return "", fmt.Errorf("guard: path %q contains a \"..\" segment", raw)
		}
	}

	resolved, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("guard: resolve %q: %w", raw, err)
	}
	resolved, err = evalSymlinksBestEffort(resolved)
	if err != nil {
		return "", fmt.Errorf("guard: resolve symlinks for %q: %w", raw, err)
	}

	if g.opts.Root == "" {
		return resolved, nil
	}

	root, err := filepath.Abs(g.opts.Root)
	if err != nil {
		return "", fmt.Errorf("guard: resolve root %q: %w", g.opts.Root, err)
	}
	root, err = evalSymlinksBestEffort(root)
	if err != nil {
		return "", fmt.Errorf("guard: resolve root symlinks %q: %w", g.opts.Root, err)
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("guard: %q resolves outside root %q", raw, root)
	}
	return rel, nil
}

// CheckWriteSize enforces the per-call write size cap.
func (g *Guard) CheckWriteSize(nBytes int) error {
	if nBytes > g.opts.MaxWriteBytes {
		return fmt.Errorf("guard: write of %d bytes exceeds per-call cap of %d", nBytes, g.opts.MaxWriteBytes)
	}
	return nil
}

// CheckImportBatch enforces the import batch cap.
func (g *Guard) CheckImportBatch(nItems int) error {
	if nItems > g.opts.MaxImportBatch {
		return fmt.Errorf("guard: import batch of %d items exceeds cap of %d", nItems, g.opts.MaxImportBatch)
	}
	return nil
}

// MaxWriteBytesPerMin exposes the configured per-minute aggregate write
// byte budget for the rate limiter.
func (g *Guard) MaxWriteBytesPerMin() int {
	return g.opts.MaxWriteBytesPerMin
}
