package ingest

import "testing"

func TestChunkSplitsOnBlankLines(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	chunks := Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(chunks), chunks)
	}
}

func TestChunkMergesShortParagraphs(t *testing.T) {
	text := "a\n\nb\n\nc"
	chunks := Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 merged chunk: %v", len(chunks), chunks)
	}
}

func TestChunkRespectsSoftMax(t *testing.T) {
	big := make([]byte, softMaxChunkChars-10)
	for i := range big {
		big[i] = 'x'
	}
	text := string(big) + "\n\n" + string(big)
	chunks := Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (merge would exceed soft max): %v", len(chunks), summarize(chunks))
	}
}

func summarize(chunks []string) []int {
	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = len(c)
	}
	return lens
}

func TestInferTitleFromHeading(t *testing.T) {
	got := InferTitle("# My Heading\n\nbody text", "fallback")
	if got != "My Heading" {
		t.Fatalf("got %q, want %q", got, "My Heading")
	}
}

func TestInferTitleFallsBackToPathStem(t *testing.T) {
	got := InferTitle("no heading here", "notes")
	if got != "notes" {
		t.Fatalf("got %q, want %q", got, "notes")
	}
}

func TestInferTagsFromDirectoryComponents(t *testing.T) {
	tags := InferTags("Project/Docs/architecture.md")
	if len(tags) != 2 || tags[0] != "project" || tags[1] != "docs" {
		t.Fatalf("got %v, want [project docs]", tags)
	}
}

func TestInferTagsNoDirectory(t *testing.T) {
	tags := InferTags("architecture.md")
	if tags != nil {
		t.Fatalf("got %v, want nil", tags)
	}
}
