// Package policy is the pure function from a candidate item/proposal to a
// policy verdict: accept, quarantine, or reject, with a rule id. No write
// path may bypass it.
package policy

import (
	"fmt"
	"strings"

	"github.com/steveyegge/memctl/internal/types"
)

// Evaluator holds the ordered detection rule table and evaluates candidate
// content against it. The zero value is not usable; use NewEvaluator.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds an Evaluator over the given rule table, in order.
func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// DefaultEvaluator evaluates against DefaultRules.
func DefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultRules)
}

// candidate is the subset of fields policy evaluation cares about, shared
// by MemoryItem and MemoryProposal paths.
type candidate struct {
	Content    string
	Type       string
	Provenance types.Provenance
	WhyStore   string
	requireWhy bool
}

// EvaluateItem evaluates a MemoryItem destined for a direct write path
// (evaluate_item is a separate entry point from
// evaluate_proposal but shares the rule table).
func (e *Evaluator) EvaluateItem(item *types.MemoryItem) types.PolicyVerdict {
	return e.evaluate(candidate{
		Content:    item.Content,
		Type:       item.Type,
		Provenance: item.Provenance,
		requireWhy: false,
	})
}

// EvaluateProposal evaluates a MemoryProposal, which additionally requires
// a non-empty why_store justification.
func (e *Evaluator) EvaluateProposal(p *types.MemoryProposal) types.PolicyVerdict {
	return e.evaluate(candidate{
		Content:    p.Content,
		Type:       p.Type,
		Provenance: p.Provenance,
		WhyStore:   p.WhyStore,
		requireWhy: true,
	})
}

func (e *Evaluator) evaluate(c candidate) types.PolicyVerdict {
	// Structural checks run before pattern rules: oversized content is an
	// unconditional reject regardless of pattern matches.
	if !types.ContentLimitExempt(c.Type) && len(c.Content) > types.MaxContentChars {
		return types.PolicyVerdict{
			Kind:   types.VerdictReject,
			RuleID: "oversized-content",
			Reason: fmt.Sprintf("content length %d exceeds %d char cap for type %q", len(c.Content), types.MaxContentChars, c.Type),
		}
	}

	// Pattern rules: first match wins, reject rules precede quarantine
	// rules in DefaultRules so reject always takes priority on a tie.
	for _, r := range e.rules {
		if !r.Pattern.MatchString(c.Content) {
			continue
		}
		if r.ID == "payment-card" && !containsLuhnValidSequence(c.Content) {
			continue
		}
		switch r.Severity {
		case SeverityReject:
			return types.PolicyVerdict{Kind: types.VerdictReject, RuleID: r.ID, Reason: "matched reject rule " + r.ID}
		case SeverityQuarantine:
			return types.PolicyVerdict{Kind: types.VerdictQuarantine, RuleID: r.ID, Reason: "matched quarantine rule " + r.ID}
		}
	}

	// Missing provenance or justification -> quarantine.
	if c.Provenance.SourceKind == "" || (c.requireWhy && strings.TrimSpace(c.WhyStore) == "") {
		return types.PolicyVerdict{
			Kind:   types.VerdictQuarantine,
			RuleID: "missing-provenance",
			Reason: "missing provenance or justification",
		}
	}

	return types.PolicyVerdict{Kind: types.VerdictAccept, Reason: "no rule fired"}
}

// containsLuhnValidSequence scans s for a run of 13-19 digits (allowing
// interior spaces/dashes) whose digits pass the Luhn check.
func containsLuhnValidSequence(s string) bool {
	var digits []int
	flush := func() bool {
		ok := luhnValid(digits) && len(digits) >= 13 && len(digits) <= 19
		digits = digits[:0]
		return ok
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
			// allowed separator inside a candidate run, keep accumulating
		default:
			if flush() {
				return true
			}
		}
	}
	return flush()
}

func luhnValid(digits []int) bool {
	if len(digits) == 0 {
		return false
	}
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}
