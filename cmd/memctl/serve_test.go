package main

import (
	"testing"

	"github.com/steveyegge/memctl/internal/mcpserver"
)

func TestWriteByteEstimateUsesContentArg(t *testing.T) {
	req := serveRequest{Args: map[string]any{"content": "hello world"}}
	if got := writeByteEstimate(req); got != len("hello world") {
		t.Errorf("writeByteEstimate = %d, want %d", got, len("hello world"))
	}
}

func TestWriteByteEstimateZeroForReads(t *testing.T) {
	req := serveRequest{Args: map[string]any{"query": "find me"}}
	if got := writeByteEstimate(req); got != 0 {
		t.Errorf("writeByteEstimate = %d, want 0", got)
	}
}

func TestItemCountEstimateCountsImportBatch(t *testing.T) {
	req := serveRequest{Args: map[string]any{"items": []any{1, 2, 3}}}
	if got := itemCountEstimate(req); got != 3 {
		t.Errorf("itemCountEstimate = %d, want 3", got)
	}
}

func TestItemCountEstimateZeroWithoutItems(t *testing.T) {
	req := serveRequest{Args: map[string]any{}}
	if got := itemCountEstimate(req); got != 0 {
		t.Errorf("itemCountEstimate = %d, want 0", got)
	}
}

func TestAsPolicyBlockedFindsWrappedError(t *testing.T) {
	blocked := &mcpserver.PolicyBlockedError{RuleID: "r1", Reason: "pii"}
	var target *mcpserver.PolicyBlockedError
	if !asPolicyBlocked(blocked, &target) {
		t.Fatal("expected asPolicyBlocked to find the error directly")
	}
	if target.RuleID != "r1" {
		t.Errorf("RuleID = %q, want %q", target.RuleID, "r1")
	}
}

func TestAsPolicyBlockedFalseForOtherErrors(t *testing.T) {
	var target *mcpserver.PolicyBlockedError
	if asPolicyBlocked(errTest("plain failure"), &target) {
		t.Error("expected asPolicyBlocked to return false for a non-blocked error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
