package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestNewItemIDSortsByTime(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	id1 := NewItemID(t1, "alpha")
	id2 := NewItemID(t2, "beta")

	if !(id1 < id2) {
		t.Fatalf("expected id1 < id2 lexicographically, got %q >= %q", id1, id2)
	}
}

func TestNewItemIDHasPrefix(t *testing.T) {
	id := NewItemID(time.Now(), "x")
	if !strings.HasPrefix(id, "mem_") {
		t.Fatalf("expected mem_ prefix, got %q", id)
	}
}

func TestNewItemIDDisambiguatesSameMillisecond(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewItemID(now, "same")
	b := NewItemID(now, "same")
	if a == b {
		t.Fatalf("expected distinct ids for same timestamp+content, got %q twice", a)
	}
}
