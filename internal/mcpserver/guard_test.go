package mcpserver

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalizePathRejectsDotDot(t *testing.T) {
	g := NewGuard(GuardOptions{})
	_, err := g.CanonicalizePath("../../etc/passwd")
	if err == nil {
		t.Fatal("expected error for path containing \"..\"")
	}
}

func TestCanonicalizePathRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	g := NewGuard(GuardOptions{Root: root})

	_, err := g.CanonicalizePath(filepath.Join(outside, "db.sqlite"))
	if err == nil {
		t.Fatal("expected error for path outside root")
	}
}

func TestCanonicalizePathAllowsWithinRoot(t *testing.T) {
	root := t.TempDir()
	g := NewGuard(GuardOptions{Root: root})

	got, err := g.CanonicalizePath(filepath.Join(root, "sub", "db.sqlite"))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if strings.HasPrefix(got, "/") {
		t.Fatalf("expected root-relative path, got %q", got)
	}
}

func TestCheckWriteSizeEnforcesCap(t *testing.T) {
	g := NewGuard(GuardOptions{MaxWriteBytes: 10})
	if err := g.CheckWriteSize(5); err != nil {
		t.Fatalf("5 bytes should pass: %v", err)
	}
	if err := g.CheckWriteSize(11); err == nil {
		t.Fatal("expected error for oversized write")
	}
}

func TestCheckImportBatchEnforcesCap(t *testing.T) {
	g := NewGuard(GuardOptions{MaxImportBatch: 2})
	if err := g.CheckImportBatch(2); err != nil {
		t.Fatalf("2 items should pass: %v", err)
	}
	if err := g.CheckImportBatch(3); err == nil {
		t.Fatal("expected error for oversized import batch")
	}
}
