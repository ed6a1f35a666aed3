// Package consolidate implements the fully deterministic STM-to-MTM
// merge and MTM-to-LTM promotion pass. No LLM is involved: clustering,
// survivor selection, and promotion all fold out of stored fields and a
// fixed similarity threshold.
package consolidate

import (
	"context"
	"fmt"
	"sort"

	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/similarity"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// ClusterThreshold is the pairwise tag-Jaccard bound above which two STM
// items in the same type bucket are linked by single-linkage clustering.
const ClusterThreshold = 0.5

// PromoteUsageThreshold is the default usage_count an MTM item must
// exceed to promote to LTM, for types outside types.PromotionTypes.
const PromoteUsageThreshold = 5

// Result summarizes one Consolidate run.
type Result struct {
	ClustersFound int
	SurvivorIDs   []string
	ArchivedIDs   []string
	PromotedIDs   []string
}

// Consolidate clusters non-archived STM items in scope by (type, tag
// overlap), merges each cluster onto its longest-content survivor at MTM
// tier, archives the rest with supersedes links, then promotes
// already-MTM items that have crossed the usage threshold or whose type
// is always promoted.
func Consolidate(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, scope string) (*Result, error) {
	stm, err := store.ListItems(ctx, sqlite.ItemFilter{Tier: types.TierSTM, Scope: scope})
	if err != nil {
		return nil, fmt.Errorf("consolidate: list stm: %w", err)
	}

	result := &Result{}

	for _, bucket := range groupByType(stm) {
		for _, cluster := range clusterByTagOverlap(bucket) {
			if len(cluster) < 2 {
				continue
			}
			survivor := pickSurvivor(cluster)
			result.ClustersFound++
			result.SurvivorIDs = append(result.SurvivorIDs, survivor.ID)

			survivor.Tier = types.TierMTM
			verdict := ev.EvaluateItem(&survivor)
			if verdict.Kind == types.VerdictReject {
				return nil, fmt.Errorf("consolidate: survivor %s rejected on re-evaluation (rule %s)", survivor.ID, verdict.RuleID)
			}
			if _, err := store.WriteItem(ctx, &survivor, verdict, "consolidate: merge survivor"); err != nil {
				return nil, fmt.Errorf("consolidate: write survivor: %w", err)
			}

			for _, item := range cluster {
				if item.ID == survivor.ID {
					continue
				}
				if err := store.ArchiveItem(ctx, item.ID); err != nil {
					return nil, fmt.Errorf("consolidate: archive %s: %w", item.ID, err)
				}
				if _, err := store.CreateLink(ctx, item.ID, survivor.ID, types.LinkSupersedes); err != nil {
					return nil, fmt.Errorf("consolidate: link %s->%s: %w", item.ID, survivor.ID, err)
				}
				result.ArchivedIDs = append(result.ArchivedIDs, item.ID)
			}
		}
	}

	mtm, err := store.ListItems(ctx, sqlite.ItemFilter{Tier: types.TierMTM, Scope: scope})
	if err != nil {
		return nil, fmt.Errorf("consolidate: list mtm: %w", err)
	}
	for _, item := range mtm {
		if !shouldPromote(item) {
			continue
		}
		item.Tier = types.TierLTM
		verdict := ev.EvaluateItem(&item)
		if verdict.Kind == types.VerdictReject {
			continue
		}
		if _, err := store.WriteItem(ctx, &item, verdict, "consolidate: promote to ltm"); err != nil {
			return nil, fmt.Errorf("consolidate: promote %s: %w", item.ID, err)
		}
		result.PromotedIDs = append(result.PromotedIDs, item.ID)
	}

	sort.Strings(result.SurvivorIDs)
	sort.Strings(result.ArchivedIDs)
	sort.Strings(result.PromotedIDs)
	return result, nil
}

func shouldPromote(item types.MemoryItem) bool {
	if types.PromotionTypes[item.Type] {
		return true
	}
	return item.UsageCount > PromoteUsageThreshold
}

func groupByType(items []types.MemoryItem) map[string][]types.MemoryItem {
	out := make(map[string][]types.MemoryItem)
	for _, it := range items {
		out[it.Type] = append(out[it.Type], it)
	}
	return out
}

// clusterByTagOverlap single-links items within one type bucket: two
// items join a cluster if their tag-set Jaccard exceeds ClusterThreshold,
// and clusters merge transitively through any shared member.
func clusterByTagOverlap(items []types.MemoryItem) [][]types.MemoryItem {
	n := len(items)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if similarity.Jaccard(items[i].Tags, items[j].Tags) > ClusterThreshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]types.MemoryItem)
	for i, it := range items {
		root := find(i)
		groups[root] = append(groups[root], it)
	}

	var roots []int
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	out := make([][]types.MemoryItem, 0, len(roots))
	for _, root := range roots {
		cluster := groups[root]
		sort.Slice(cluster, func(i, j int) bool { return cluster[i].ID < cluster[j].ID })
		out = append(out, cluster)
	}
	return out
}

// pickSurvivor applies the tie-break chain: longest content wins, then
// earliest created_at, then lexicographic id.
func pickSurvivor(cluster []types.MemoryItem) types.MemoryItem {
	best := cluster[0]
	for _, it := range cluster[1:] {
		if better(it, best) {
			best = it
		}
	}
	return best
}

func better(a, b types.MemoryItem) bool {
	if len(a.Content) != len(b.Content) {
		return len(a.Content) > len(b.Content)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
