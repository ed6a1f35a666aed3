package query

import (
	"reflect"
	"testing"
)

func TestNormalizeStripsStopWordsPreservesIdentifiers(t *testing.T) {
	got := Normalize("what is the NullPointerException in user_service")
	want := []string{"NullPointerException", "user_service"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeDedupes(t *testing.T) {
	got := Normalize("database database schema")
	want := []string{"database", "schema"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestClassifyModeExploration(t *testing.T) {
	if got := ClassifyMode("How does the rate limiter work?"); got != ModeExploration {
		t.Fatalf("got %v, want exploration", got)
	}
}

func TestClassifyModeModification(t *testing.T) {
	if got := ClassifyMode("Add a new rate limit bucket"); got != ModeModification {
		t.Fatalf("got %v, want modification", got)
	}
}

func TestClassifyModeUnmatchedDefaultsExploration(t *testing.T) {
	if got := ClassifyMode("rate limiter bucket sizing"); got != ModeExploration {
		t.Fatalf("got %v, want exploration default", got)
	}
}

func TestSuggestBudget(t *testing.T) {
	cases := []struct {
		chars int
		want  int
	}{
		{10, 600},
		{79, 600},
		{80, 800},
		{199, 800},
		{200, 1200},
		{399, 1200},
		{400, 1500},
		{1000, 1500},
	}
	for _, c := range cases {
		if got := SuggestBudget(c.chars); got != c.want {
			t.Fatalf("SuggestBudget(%d) = %d, want %d", c.chars, got, c.want)
		}
	}
}
