package main

import "testing"

func TestRenderMarkdownPassesThroughWhenNotATerminal(t *testing.T) {
	// go test's stdout is never a TTY, so renderMarkdown takes its
	// fallback path regardless of the host machine.
	content := "# heading\n\nsome *text*"
	if got := renderMarkdown(content); got != content {
		t.Errorf("renderMarkdown(non-tty) = %q, want unchanged %q", got, content)
	}
}
