package mcpserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/memctl/internal/consolidate"
	"github.com/steveyegge/memctl/internal/exportimport"
	"github.com/steveyegge/memctl/internal/idgen"
	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/inspect"
	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// argString/argInt/argBool/argStrings read typed values out of
// sc.Args, the transport adapter's decoded tool arguments. Missing keys
// return the zero value — the same permissive default every optional
// CLI flag in cmd/memctl falls back to.
func argString(sc *ServerContext, key string) string {
	v, _ := sc.Args[key].(string)
	return v
}

func argInt(sc *ServerContext, key string) int {
	switch v := sc.Args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func argBool(sc *ServerContext, key string) bool {
	v, _ := sc.Args[key].(bool)
	return v
}

func argStrings(sc *ServerContext, key string) []string {
	raw, ok := sc.Args[key].([]string)
	if ok {
		return raw
	}
	anys, ok := sc.Args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(anys))
	for _, a := range anys {
		if s, ok := a.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// RegisterDefaultTools binds the 15 tools named in spec.md §6 to r,
// closing over ev and reg so handlers never need them threaded through
// ServerContext. Call once per server process before serving requests.
func RegisterDefaultTools(r *Registry, ev *policy.Evaluator, reg *ingest.Registry) {
	r.Register("recall", toolRecall)
	r.Register("search", toolSearch)
	r.Register("propose", toolPropose(ev))
	r.Register("write", toolWrite(ev))
	r.Register("read", toolRead)
	r.Register("stats", toolStats)
	r.Register("consolidate", toolConsolidate(ev))
	r.Register("mount", toolMount)
	r.Register("sync", toolSync(ev, reg))
	r.Register("inspect", toolInspect(ev, reg))
	r.Register("ask", toolAsk(ev, reg))
	r.Register("export", toolExport)
	r.Register("import", toolImport(ev))
	r.Register("loop", toolLoop)
	r.Register("reindex", toolReindex)
}

func toolRecall(ctx context.Context, sc *ServerContext) (string, error) {
	q := argString(sc, "query")
	matches, meta, err := recall.Search(ctx, sc.Store.Backend(), sc.Store, q, recall.Options{
		Scope:   argString(sc, "scope"),
		MountID: argString(sc, "mount_id"),
		Limit:   argInt(sc, "limit"),
	})
	if err != nil {
		return "", fmt.Errorf("recall: %w", err)
	}
	sc.Result = matches
	return fmt.Sprintf("strategy=%s candidates=%d matches=%d", meta.Strategy, meta.CandidateCount, len(matches)), nil
}

func toolSearch(ctx context.Context, sc *ServerContext) (string, error) {
	// search is recall's synonym in the tool surface (spec.md §6): same
	// cascade, browsing-oriented result shape.
	return toolRecall(ctx, sc)
}

func toolPropose(ev *policy.Evaluator) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		proposal := types.MemoryProposal{
			Title:      argString(sc, "title"),
			Content:    argString(sc, "content"),
			Type:       argString(sc, "type"),
			Tags:       argStrings(sc, "tags"),
			Scope:      argString(sc, "scope"),
			Injectable: true,
			WhyStore:   argString(sc, "why_store"),
		}
		verdict := ev.EvaluateProposal(&proposal)
		sc.Result = verdict
		if verdict.Kind == types.VerdictReject {
			return "", &PolicyBlockedError{RuleID: verdict.RuleID, Reason: verdict.Reason}
		}
		return fmt.Sprintf("verdict=%s rule=%s", verdict.Kind, verdict.RuleID), nil
	}
}

func toolWrite(ev *policy.Evaluator) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		content := argString(sc, "content")
		now := time.Now().UTC()
		item := types.MemoryItem{
			ID:          idgen.NewItemID(now, content),
			Title:       argString(sc, "title"),
			Content:     content,
			ContentHash: sha256Hex(content),
			Tier:        types.Tier(orString(argString(sc, "tier"), string(types.TierSTM))),
			Type:        argString(sc, "type"),
			Tags:        argStrings(sc, "tags"),
			Scope:       argString(sc, "scope"),
			Injectable:  true,
			CreatedAt:   now,
			UpdatedAt:   now,
			Provenance:  types.Provenance{SourceKind: "mcp"},
		}
		verdict, err := sqlite.EvaluateAndWrite(ctx, sc.Store, ev, &item, "mcp write")
		if err != nil {
			return "", fmt.Errorf("write: %w", err)
		}
		sc.Result = item
		if verdict.Kind == types.VerdictReject {
			return "", &PolicyBlockedError{RuleID: verdict.RuleID, Reason: verdict.Reason}
		}
		return fmt.Sprintf("id=%s verdict=%s", item.ID, verdict.Kind), nil
	}
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func toolRead(ctx context.Context, sc *ServerContext) (string, error) {
	item, err := sc.Store.ReadItem(ctx, argString(sc, "id"), argBool(sc, "touch"))
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	sc.Result = item
	return fmt.Sprintf("id=%s tier=%s", item.ID, item.Tier), nil
}

func toolStats(ctx context.Context, sc *ServerContext) (string, error) {
	st, err := sc.Store.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("stats: %w", err)
	}
	sc.Result = st
	return fmt.Sprintf("total_items=%d", st.TotalItems), nil
}

func toolConsolidate(ev *policy.Evaluator) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		result, err := consolidate.Consolidate(ctx, sc.Store, ev, argString(sc, "scope"))
		if err != nil {
			return "", fmt.Errorf("consolidate: %w", err)
		}
		sc.Result = result
		return fmt.Sprintf("clusters=%d promoted=%d", result.ClustersFound, len(result.PromotedIDs)), nil
	}
}

func toolMount(ctx context.Context, sc *ServerContext) (string, error) {
	if path := argString(sc, "path"); path != "" {
		m, err := mount.Register(ctx, sc.Store, path, argString(sc, "name"), argStrings(sc, "ignore"))
		if err != nil {
			return "", fmt.Errorf("mount: %w", err)
		}
		sc.Result = m
		return fmt.Sprintf("mount_id=%s", m.ID), nil
	}
	mounts, err := sc.Store.ListMounts(ctx)
	if err != nil {
		return "", fmt.Errorf("mount: list: %w", err)
	}
	sc.Result = mounts
	return fmt.Sprintf("count=%d", len(mounts)), nil
}

func toolSync(ev *policy.Evaluator, reg *ingest.Registry) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		mountID := argString(sc, "mount_id")
		if mountID == "" {
			if path := argString(sc, "path"); path != "" {
				m, err := mount.EnsureRegistered(ctx, sc.Store, path)
				if err != nil {
					return "", fmt.Errorf("sync: %w", err)
				}
				mountID = m.ID
			}
		}
		if mountID == "" {
			return "", fmt.Errorf("sync: mount_id or path is required")
		}
		result, err := mount.Sync(ctx, sc.Store, ev, reg, mountID)
		if err != nil {
			return "", fmt.Errorf("sync: %w", err)
		}
		sc.Result = result
		return fmt.Sprintf("files=%d orphans_archived=%d", len(result.Files), result.OrphansArchived), nil
	}
}

func toolInspect(ev *policy.Evaluator, reg *ingest.Registry) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		mode := inspect.SyncMode(orString(argString(sc, "sync"), string(inspect.SyncAuto)))
		digest, err := inspect.Inspect(ctx, sc.Store, ev, reg, argString(sc, "path"), mode, inspect.DefaultThresholds())
		if err != nil {
			return "", fmt.Errorf("inspect: %w", err)
		}
		sc.Result = digest
		return fmt.Sprintf("total_files=%d total_chunks=%d", digest.TotalFiles, digest.TotalChunks), nil
	}
}

func toolAsk(ev *policy.Evaluator, reg *ingest.Registry) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		invoker, ok := sc.Args["invoker"].(loop.LlmInvoker)
		if !ok {
			return "", fmt.Errorf("ask: no invoker bound for this call")
		}
		digest, err := inspect.Inspect(ctx, sc.Store, ev, reg, argString(sc, "path"), inspect.SyncAuto, inspect.DefaultThresholds())
		if err != nil {
			return "", fmt.Errorf("ask: inspect: %w", err)
		}
		mountID, err := mount.IDForPath(argString(sc, "path"))
		if err != nil {
			return "", fmt.Errorf("ask: %w", err)
		}
		matches, _, err := recall.Search(ctx, sc.Store.Backend(), sc.Store, argString(sc, "question"), recall.Options{MountID: mountID})
		if err != nil {
			return "", fmt.Errorf("ask: recall: %w", err)
		}
		items := make([]injection.Item, 0, len(matches))
		for _, m := range matches {
			if m.Injectable {
				items = append(items, injection.Item{Tier: m.Tier, ID: m.ID, Title: m.Title, Tags: m.Tags, Content: m.Content})
			}
		}
		result, err := loop.Run(ctx, sc.Store.Backend(), sc.Store, invoker, inspect.Render(digest, 400)+"\n\n"+argString(sc, "question"), items, loop.Options{
			Protocol: loop.ProtocolPassive,
			MaxCalls: 1,
			MountID:  mountID,
		})
		if err != nil {
			return "", fmt.Errorf("ask: loop: %w", err)
		}
		sc.Result = result
		return fmt.Sprintf("stop=%s iterations=%d", result.StopCondition, result.Iterations), nil
	}
}

func toolExport(ctx context.Context, sc *ServerContext) (string, error) {
	var buf strings.Builder
	n, err := exportimport.Export(ctx, sc.Store, &buf, exportimport.Filter{
		Tier:            types.Tier(argString(sc, "tier")),
		Type:            argString(sc, "type"),
		Scope:           argString(sc, "scope"),
		IncludeArchived: argBool(sc, "include_archived"),
	})
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	sc.Result = buf.String()
	return fmt.Sprintf("items=%d", n), nil
}

func toolImport(ev *policy.Evaluator) Handler {
	return func(ctx context.Context, sc *ServerContext) (string, error) {
		payload := argString(sc, "jsonl")
		result, err := exportimport.Import(ctx, sc.Store, ev, strings.NewReader(payload), exportimport.ImportOptions{
			PreserveIDs: argBool(sc, "preserve_ids"),
			DryRun:      argBool(sc, "dry_run"),
		})
		if err != nil {
			return "", fmt.Errorf("import: %w", err)
		}
		sc.Result = result
		return fmt.Sprintf("imported=%d rejected=%d", result.Imported, result.Rejected), nil
	}
}

func toolLoop(ctx context.Context, sc *ServerContext) (string, error) {
	invoker, ok := sc.Args["invoker"].(loop.LlmInvoker)
	if !ok {
		return "", fmt.Errorf("loop: no invoker bound for this call")
	}
	result, err := loop.Run(ctx, sc.Store.Backend(), sc.Store, invoker, argString(sc, "question"), nil, loop.Options{
		Protocol: loop.Protocol(orString(argString(sc, "protocol"), "passive")),
		Scope:    argString(sc, "scope"),
		MountID:  argString(sc, "mount_id"),
		MaxCalls: argInt(sc, "max_calls"),
	})
	if err != nil {
		return "", fmt.Errorf("loop: %w", err)
	}
	sc.Result = result
	return fmt.Sprintf("stop=%s iterations=%d", result.StopCondition, result.Iterations), nil
}

func toolReindex(ctx context.Context, sc *ServerContext) (string, error) {
	n, dur, err := sc.Store.RebuildFTS(ctx, argString(sc, "tokenizer"))
	if err != nil {
		return "", fmt.Errorf("reindex: %w", err)
	}
	sc.Result = n
	return fmt.Sprintf("items_indexed=%d duration=%s", n, dur), nil
}
