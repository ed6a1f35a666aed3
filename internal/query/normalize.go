// Package query normalizes raw recall questions into FTS-ready term
// lists, classifies the caller's intent, and suggests a token budget.
package query

import (
	"regexp"
	"strings"
)

// stopWords is the curated English + French stop-word list. Tokens that
// also match an identifier pattern are preserved even if listed here.
var stopWords = buildStopWords()

func buildStopWords() map[string]bool {
	words := []string{
		// English articles, prepositions, question words.
		"a", "an", "the", "of", "in", "on", "at", "to", "for", "with",
		"by", "from", "as", "and", "or", "but", "is", "are", "was",
		"were", "be", "been", "being", "do", "does", "did", "how",
		"what", "where", "when", "why", "which", "who", "whom",
		"this", "that", "these", "those", "it", "its",
		// French articles, prepositions, question words.
		"le", "la", "les", "un", "une", "des", "de", "du", "et", "ou",
		"est", "sont", "était", "étaient", "être", "dans", "sur",
		"pour", "avec", "par", "comme", "que", "qui", "quoi", "où",
		"quand", "pourquoi", "comment", "ce", "cet", "cette", "ces",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

var (
	dottedPathPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)+$`)
	mixedCasePattern  = regexp.MustCompile(`^[A-Za-z][a-z0-9]*[A-Z][A-Za-z0-9]*$`)
)

// isIdentifier reports whether tok should be preserved verbatim as a code
// identifier rather than treated as natural-language prose: mixed case
// with internal capitals, underscore-containing, all-upper (len>=2), or a
// dotted path.
func isIdentifier(tok string) bool {
	if strings.Contains(tok, "_") {
		return true
	}
	if dottedPathPattern.MatchString(tok) {
		return true
	}
	if len(tok) >= 2 && tok == strings.ToUpper(tok) && strings.ToLower(tok) != strings.ToUpper(tok) {
		return true
	}
	if mixedCasePattern.MatchString(tok) {
		return true
	}
	return false
}

// IsIdentifier is the exported form of isIdentifier, for callers outside
// this package that need to tell identifier-shaped terms (all-caps,
// dotted, underscored, mixed-case) from ordinary dictionary words — e.g.
// the REDUCED_AND drop rule, which should give up a prose word before an
// identifier.
func IsIdentifier(tok string) bool {
	return isIdentifier(tok)
}

var wordPattern = regexp.MustCompile(`\S+`)

// Normalize strips stop words from raw while preserving identifier-shaped
// tokens verbatim and leaving diacritics untouched (the FTS tokenizer
// handles folding). Returned tokens are in original order, deduplicated.
func Normalize(raw string) []string {
	candidates := wordPattern.FindAllString(raw, -1)
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))

	for _, tok := range candidates {
		trimmed := strings.Trim(tok, ".,;:!?\"'()[]{}")
		if trimmed == "" {
			continue
		}
		if isIdentifier(trimmed) {
			if !seen[trimmed] {
				seen[trimmed] = true
				out = append(out, trimmed)
			}
			continue
		}
		lower := strings.ToLower(trimmed)
		if stopWords[lower] {
			continue
		}
		if !seen[lower] {
			seen[lower] = true
			out = append(out, lower)
		}
	}
	return out
}

// IntentMode is the classification output of ClassifyMode.
type IntentMode string

const (
	ModeExploration  IntentMode = "exploration"
	ModeModification IntentMode = "modification"
)

var explorationVerbs = map[string]bool{
	"how": true, "where": true, "what": true, "explain": true,
	"find": true, "show": true, "describe": true, "list": true,
	"why": true, "understand": true, "review": true, "check": true,
	"look": true, "search": true, "tell": true,
}

var modificationVerbs = map[string]bool{
	"add": true, "replace": true, "refactor": true, "fix": true,
	"create": true, "update": true, "remove": true, "delete": true,
	"rename": true, "implement": true, "write": true, "change": true,
	"migrate": true, "rewrite": true, "build": true,
}

// ClassifyMode returns the intent of prompt by matching its first verb
// against curated explore/modify lists. Ties and unmatched cases resolve
// to exploration.
func ClassifyMode(prompt string) IntentMode {
	words := wordPattern.FindAllString(strings.ToLower(prompt), -1)
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if w == "" {
			continue
		}
		isExplore := explorationVerbs[w]
		isModify := modificationVerbs[w]
		switch {
		case isExplore && isModify:
			return ModeExploration
		case isExplore:
			return ModeExploration
		case isModify:
			return ModeModification
		}
	}
	return ModeExploration
}

// SuggestBudget returns a piecewise-constant token budget based on the
// character length of the question.
func SuggestBudget(questionChars int) int {
	switch {
	case questionChars < 80:
		return 600
	case questionChars < 200:
		return 800
	case questionChars < 400:
		return 1200
	default:
		return 1500
	}
}
