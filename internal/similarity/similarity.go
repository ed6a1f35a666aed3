// Package similarity provides the deterministic text-similarity
// primitives used for consolidation clustering, loop fixed-point
// detection, and query-cycle detection. Stdlib-only; no external NLP dependency.
package similarity

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases and splits s into alphanumeric runs.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// Jaccard returns the normalized Jaccard similarity of two token sets.
// Empty-vs-empty is defined as 1.0 (identical, vacuously).
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func toSet(toks []string) map[string]bool {
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	return set
}

// lcsLength returns the length of the longest common subsequence of two
// token slices, via classic O(n*m) dynamic programming.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// LCSRatio returns the longest-common-subsequence length of two strings'
// token sequences, normalized to [0,1] by the length of the longer sequence.
func LCSRatio(a, b string) float64 {
	tokA := Tokenize(a)
	tokB := Tokenize(b)
	if len(tokA) == 0 && len(tokB) == 0 {
		return 1.0
	}
	maxLen := len(tokA)
	if len(tokB) > maxLen {
		maxLen = len(tokB)
	}
	if maxLen == 0 {
		return 1.0
	}
	return float64(lcsLength(tokA, tokB)) / float64(maxLen)
}

// CombinedScore averages normalized Jaccard and LCS ratio of two strings.
func CombinedScore(a, b string) float64 {
	jac := Jaccard(Tokenize(a), Tokenize(b))
	lcs := LCSRatio(a, b)
	return (jac + lcs) / 2
}

// DefaultFixedPointThreshold is the default similarity threshold above
// which two consecutive loop answers are considered a fixed point.
const DefaultFixedPointThreshold = 0.92

// DefaultQueryCycleThreshold is the default similarity threshold above
// which a proposed query is considered a repeat of a prior one.
const DefaultQueryCycleThreshold = 0.90

// IsFixedPoint reports whether a and b's combined similarity exceeds threshold.
func IsFixedPoint(a, b string, threshold float64) bool {
	return CombinedScore(a, b) > threshold
}

// IsQueryCycle reports whether q matches any entry in history above threshold.
func IsQueryCycle(q string, history []string, threshold float64) bool {
	for _, h := range history {
		if CombinedScore(q, h) > threshold {
			return true
		}
	}
	return false
}
