package mcpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestContentSummaryNeverExceedsPreviewCap(t *testing.T) {
	content := strings.Repeat("x", 500)
	preview, hash, length := ContentSummary(content)

	if len(preview) > contentPreviewChars {
		t.Fatalf("preview length = %d, want <= %d", len(preview), contentPreviewChars)
	}
	if length != 500 {
		t.Fatalf("length = %d, want 500", length)
	}
	want := sha256.Sum256([]byte(content))
	if hash != hex.EncodeToString(want[:]) {
		t.Fatalf("hash mismatch")
	}
}

func TestContentSummaryShortContent(t *testing.T) {
	preview, _, length := ContentSummary("short")
	if preview != "short" {
		t.Fatalf("preview = %q, want %q", preview, "short")
	}
	if length != 5 {
		t.Fatalf("length = %d, want 5", length)
	}
}
