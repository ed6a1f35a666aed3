package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/steveyegge/memctl/internal/query"
	"github.com/steveyegge/memctl/internal/types"
)

// minPrefixTermLength is the minimum normalized term length eligible for
// PREFIX_AND expansion.
const minPrefixTermLength = 5

// MountFilter narrows cascade results to items whose corpus-hash row
// links to a given mount. Implemented by the mount package; kept as an
// interface here because "FTS MATCH does not compose with joins
// portably" — scoped recall always post-filters.
type MountFilter interface {
	ItemIDsForMount(ctx context.Context, mountID string) (map[string]bool, error)
}

// Options configures a Search call.
type Options struct {
	Scope   string
	MountID string // optional; "" means no mount scoping
	Limit   int
}

// Search runs the cascade against raw, returning the winning strategy's
// results and the metadata describing how they were obtained. The first
// strategy that returns any result wins; later strategies never
// run once an earlier one succeeds.
func Search(ctx context.Context, backend Backend, mounts MountFilter, raw string, opts Options) ([]types.MemoryItem, types.SearchMeta, error) {
	terms := query.Normalize(raw)
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	meta := types.SearchMeta{OriginalTerms: terms}

	if len(terms) == 0 {
		meta.Strategy = types.StrategyLIKE
		meta.EffectiveTerms = terms
		items, err := backend.MatchLike(ctx, terms, opts.Scope, limit)
		if err != nil {
			return nil, meta, err
		}
		items, err = applyMountFilter(ctx, mounts, opts.MountID, items)
		if err != nil {
			return nil, meta, err
		}
		meta.CandidateCount = len(items)
		return items, meta, nil
	}

	// 1. AND
	items, err := backend.MatchAll(ctx, terms, opts.Scope, limit)
	if err != nil {
		return nil, meta, err
	}
	items, err = applyMountFilter(ctx, mounts, opts.MountID, items)
	if err != nil {
		return nil, meta, err
	}
	if len(items) > 0 {
		meta.Strategy = types.StrategyAND
		meta.EffectiveTerms = terms
		meta.CandidateCount = len(items)
		return items, meta, nil
	}

	// 2. REDUCED_AND: drop the shortest term and retry until 1 term or success.
	working := append([]string(nil), terms...)
	var dropped []string
	for len(working) > 1 {
		shortestIdx := shortestTermIndex(working)
		dropped = append(dropped, working[shortestIdx])
		working = append(working[:shortestIdx], working[shortestIdx+1:]...)

		items, err = backend.MatchAll(ctx, working, opts.Scope, limit)
		if err != nil {
			return nil, meta, err
		}
		items, err = applyMountFilter(ctx, mounts, opts.MountID, items)
		if err != nil {
			return nil, meta, err
		}
		if len(items) > 0 {
			meta.Strategy = types.StrategyReducedAND
			meta.EffectiveTerms = append([]string(nil), working...)
			meta.DroppedTerms = dropped
			meta.CandidateCount = len(items)
			return items, meta, nil
		}
	}

	// 3. PREFIX_AND: skipped if the tokenizer already stems (prefix expansion is redundant then).
	stems, err := backend.TokenizerStems(ctx)
	if err != nil {
		return nil, meta, err
	}
	if !stems {
		var prefixTerms []string
		for _, t := range terms {
			if len(t) >= minPrefixTermLength {
				prefixTerms = append(prefixTerms, t)
			}
		}
		if len(prefixTerms) > 0 {
			items, err = backend.MatchPrefixAll(ctx, prefixTerms, opts.Scope, limit)
			if err != nil {
				return nil, meta, err
			}
			items, err = applyMountFilter(ctx, mounts, opts.MountID, items)
			if err != nil {
				return nil, meta, err
			}
			if len(items) > 0 {
				meta.Strategy = types.StrategyPrefixAND
				meta.EffectiveTerms = prefixTerms
				meta.CandidateCount = len(items)
				return items, meta, nil
			}
		}
	}

	// 4. OR_FALLBACK: any term matches, ranked by coverage then BM25.
	ranked, err := backend.MatchAny(ctx, terms, opts.Scope, limit)
	if err != nil {
		return nil, meta, err
	}
	filtered, err := applyMountFilterRanked(ctx, mounts, opts.MountID, ranked)
	if err != nil {
		return nil, meta, err
	}
	if len(filtered) > 0 {
		ordered := rankByCoverage(filtered, terms)
		meta.Strategy = types.StrategyORFallback
		meta.EffectiveTerms = terms
		if len(ordered) > 0 {
			score := ordered[0].BM25
			meta.Rank1Score = &score
		}
		out := make([]types.MemoryItem, len(ordered))
		for i, r := range ordered {
			out[i] = r.Item
		}
		meta.CandidateCount = len(out)
		return out, meta, nil
	}

	// 5. LIKE: substring fallback, no ranking guarantee.
	items, err = backend.MatchLike(ctx, terms, opts.Scope, limit)
	if err != nil {
		return nil, meta, err
	}
	items, err = applyMountFilter(ctx, mounts, opts.MountID, items)
	if err != nil {
		return nil, meta, err
	}
	meta.Strategy = types.StrategyLIKE
	meta.EffectiveTerms = terms
	meta.CandidateCount = len(items)
	return items, meta, nil
}

// shortestTermIndex picks the next REDUCED_AND term to drop: the
// shortest ordinary word, never an identifier-shaped term (all-caps,
// dotted, underscored, mixed-case) as long as a non-identifier candidate
// remains. Only once every remaining term is identifier-shaped does it
// fall back to the shortest term overall.
func shortestTermIndex(terms []string) int {
	idx := -1
	for i, t := range terms {
		if query.IsIdentifier(t) {
			continue
		}
		if idx == -1 || len(t) < len(terms[idx]) {
			idx = i
		}
	}
	if idx != -1 {
		return idx
	}
	idx = 0
	for i, t := range terms {
		if len(t) < len(terms[idx]) {
			idx = i
		}
	}
	return idx
}

// rankByCoverage orders matches by the number of distinct query terms
// that appear in the item (descending), ties broken by the stable FTS
// BM25 order already present in matches.
func rankByCoverage(matches []RankedMatch, terms []string) []RankedMatch {
	type scored struct {
		match    RankedMatch
		coverage int
		origIdx  int
	}
	scoredList := make([]scored, len(matches))
	for i, m := range matches {
		haystack := strings.ToLower(m.Item.Title + " " + m.Item.Content)
		cov := 0
		for _, t := range terms {
			if strings.Contains(haystack, strings.ToLower(t)) {
				cov++
			}
		}
		scoredList[i] = scored{match: m, coverage: cov, origIdx: i}
	}
	sort.SliceStable(scoredList, func(i, j int) bool {
		return scoredList[i].coverage > scoredList[j].coverage
	})
	out := make([]RankedMatch, len(scoredList))
	for i, s := range scoredList {
		out[i] = s.match
	}
	return out
}

func applyMountFilter(ctx context.Context, mounts MountFilter, mountID string, items []types.MemoryItem) ([]types.MemoryItem, error) {
	if mountID == "" || mounts == nil {
		return items, nil
	}
	allowed, err := mounts.ItemIDsForMount(ctx, mountID)
	if err != nil {
		return nil, err
	}
	out := items[:0:0]
	for _, it := range items {
		if allowed[it.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func applyMountFilterRanked(ctx context.Context, mounts MountFilter, mountID string, items []RankedMatch) ([]RankedMatch, error) {
	if mountID == "" || mounts == nil {
		return items, nil
	}
	allowed, err := mounts.ItemIDsForMount(ctx, mountID)
	if err != nil {
		return nil, err
	}
	out := items[:0:0]
	for _, it := range items {
		if allowed[it.Item.ID] {
			out = append(out, it)
		}
	}
	return out, nil
}
