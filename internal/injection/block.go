// Package injection builds the token-budgeted text blocks that get
// appended to LLM prompts: the structural digest from inspect, and the
// item lists assembled by the loop controller and the ask/chat
// orchestrators. The format is a stable, versioned contract so a caller
// parsing the header can detect drift.
package injection

import (
	"fmt"
	"strings"

	"github.com/steveyegge/memctl/internal/types"
)

// FormatVersion is the injection block contract version. Bump only on a
// breaking change to the header or body grammar.
const FormatVersion = 1

// EstimateTokens approximates token count from character count. memctl
// never ships a tokenizer dependency for this; a 4-chars-per-token
// estimate is conservative enough for prefix trimming.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// Item is one entry in an item-based injection block.
type Item struct {
	Tier    types.Tier
	ID      string
	Title   string
	Tags    []string
	Content string
}

func (it Item) render() string {
	tags := strings.Join(it.Tags, ",")
	return fmt.Sprintf("[%s] %s %q tags=%s\n%s", it.Tier, it.ID, it.Title, tags, it.Content)
}

// BuildItems renders entries into a header + body block, prefix-trimming
// whole entries (never mid-sentence) until the block fits budgetTokens.
// Entries are assumed to already be in priority order (highest priority
// first); trimming drops from the tail.
func BuildItems(entries []Item, budgetTokens int) (block string, includedCount int) {
	header := fmt.Sprintf("format_version=%d token_budget=%d", FormatVersion, budgetTokens)
	used := EstimateTokens(header)

	var body []string
	for _, e := range entries {
		rendered := e.render()
		cost := EstimateTokens(rendered)
		if used+cost > budgetTokens && includedCount > 0 {
			break
		}
		body = append(body, rendered)
		used += cost
		includedCount++
	}

	return strings.Join(append([]string{header}, body...), "\n\n"), includedCount
}

// BuildText renders a header plus arbitrary body lines (used by the
// structural digest, which has no item tier/id/tags shape), trimming
// whole lines from the tail until the block fits budgetTokens.
func BuildText(lines []string, budgetTokens int) string {
	header := fmt.Sprintf("format_version=%d token_budget=%d", FormatVersion, budgetTokens)
	used := EstimateTokens(header)

	var body []string
	for _, line := range lines {
		cost := EstimateTokens(line)
		if used+cost > budgetTokens && len(body) > 0 {
			break
		}
		body = append(body, line)
		used += cost
	}

	return strings.Join(append([]string{header}, body...), "\n")
}
