// Package timeparse resolves human-friendly date/time phrases ("since
// yesterday", "3 days ago") for CLI flags that accept a cutoff instead
// of requiring RFC3339, wrapping github.com/olebedev/when's English
// rule set.
package timeparse

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = buildParser()

func buildParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Since resolves phrase to a cutoff time relative to now. Empty phrase
// returns the zero time (no cutoff). An RFC3339 timestamp is tried
// first so scripted callers never depend on natural-language parsing.
func Since(phrase string, now time.Time) (time.Time, error) {
	if phrase == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, phrase); err == nil {
		return t, nil
	}
	r, err := parser.Parse(phrase, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeparse: %q: %w", phrase, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("timeparse: could not resolve %q to a time", phrase)
	}
	return r.Time, nil
}
