// Package ingest turns files under a mount into memory item proposals:
// discovery, dedup against the corpus hash table, paragraph chunking,
// tag/title inference, and extractor dispatch by extension.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor turns raw file bytes into plain text. Binary formats
// (PDF, Office documents, …) are external collaborators: memctl only
// specifies the bytes-in, text-out contract and dispatches by extension.
type Extractor func(data []byte) (string, error)

// Registry maps a lowercased file extension (including the leading dot)
// to the Extractor that handles it.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a Registry pre-populated with the built-in text
// extractor for common plain-text extensions.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	for _, ext := range []string{".txt", ".md", ".markdown", ".rst", ".go", ".py", ".js", ".ts", ".json", ".yaml", ".yml"} {
		r.Register(ext, extractText)
	}
	return r
}

// Register binds ext (lowercased, with leading dot) to fn, overwriting
// any existing binding. Callers add optional extractors (PDF, DOCX, …)
// this way before calling Ingest.
func (r *Registry) Register(ext string, fn Extractor) {
	r.extractors[strings.ToLower(ext)] = fn
}

// Extract dispatches by path's extension. It returns an error naming the
// missing extractor rather than silently skipping the file, per the
// discovery step's "no silent skip" rule.
func (r *Registry) Extract(path string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("ingest: no extractor registered for extension %q (file %s) — register one with Registry.Register before ingesting this format", ext, path)
	}
	return fn(data)
}

func extractText(data []byte) (string, error) {
	return string(data), nil
}
