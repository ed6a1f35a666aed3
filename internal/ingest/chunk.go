package ingest

import (
	"regexp"
	"strings"
)

// softMaxChunkChars is the soft ceiling a merged chunk tries to stay
// under; a chunk is only allowed to exceed it when a single paragraph
// alone is already larger.
const softMaxChunkChars = 2000

var blankLineSplit = regexp.MustCompile(`\n\s*\n+`)

// Chunk splits text on consecutive blank lines and merges adjacent short
// paragraphs up to softMaxChunkChars, returning one candidate chunk per
// resulting group.
func Chunk(text string) []string {
	paragraphs := blankLineSplit.Split(strings.TrimSpace(text), -1)

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() == 0 {
			current.WriteString(p)
			continue
		}
		if current.Len()+2+len(p) <= softMaxChunkChars {
			current.WriteString("\n\n")
			current.WriteString(p)
			continue
		}
		chunks = append(chunks, current.String())
		current.Reset()
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

var headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// InferTitle returns the first markdown heading in text, or titleFallback
// (the path stem) if none is present.
func InferTitle(text, titleFallback string) string {
	if m := headingPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return titleFallback
}

// InferTags derives tags from the directory components of relPath below
// the mount root, lowercased and deduplicated.
func InferTags(relPath string) []string {
	dir := relPath
	if idx := strings.LastIndexByte(dir, '/'); idx >= 0 {
		dir = dir[:idx]
	} else {
		return nil
	}

	seen := make(map[string]bool)
	var tags []string
	for _, part := range strings.Split(dir, "/") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		tags = append(tags, part)
	}
	return tags
}
