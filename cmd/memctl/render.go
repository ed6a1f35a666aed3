package main

import (
	"os"

	"charm.land/glamour/v2"
	"golang.org/x/term"
)

// renderMarkdown renders content through glamour when stdout is a TTY,
// falling back to the raw string otherwise (piped output, --json
// callers, CI logs). Render errors fall back to the raw content rather
// than failing the command over a cosmetic concern.
func renderMarkdown(content string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return content
	}
	out, err := glamour.Render(content, "auto")
	if err != nil {
		return content
	}
	return out
}
