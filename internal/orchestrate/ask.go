// Package orchestrate implements the ask (one-shot) and chat
// (interactive) orchestrators: thin glue binding structural inspect,
// scoped recall, the loop controller, and policy into the two
// user-facing folder Q&A flows. Per spec.md §6's stdout purity rule,
// every orchestrator here writes answers to one writer and progress to
// another — callers decide which is stdout and which is stderr.
package orchestrate

import (
	"context"
	"fmt"
	"io"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/inspect"
	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/query"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// AskOptions configures one Ask call.
type AskOptions struct {
	Path          string        // folder to scope to; auto-mounted/synced as needed
	Question      string
	InspectCap    int           // token budget for the structural digest; default 400
	RecallBudget  int           // token budget for scoped recall results; default query.SuggestBudget(len(Question))
	Sync          inspect.SyncMode // default inspect.SyncAuto
	Thresholds    inspect.Thresholds
	Invoker       loop.LlmInvoker
	Scope         string
}

// AskResult is the outcome of one Ask call.
type AskResult struct {
	Answer string
	Digest *inspect.Digest
	Loop   *loop.Result
}

// Ask runs the one-shot folder Q&A flow: auto-mount, auto-sync (per
// staleness/flag), structural inspect, scoped recall, a single passive
// loop iteration, and delivery of the answer. answerW receives only the
// answer text; progressW receives everything else (spec.md §4.13).
func Ask(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *ingest.Registry, opts AskOptions, answerW, progressW io.Writer) (*AskResult, error) {
	if opts.InspectCap <= 0 {
		opts.InspectCap = 400
	}
	if opts.RecallBudget <= 0 {
		opts.RecallBudget = query.SuggestBudget(len(opts.Question))
	}
	if opts.Sync == "" {
		opts.Sync = inspect.SyncAuto
	}
	if opts.Thresholds == (inspect.Thresholds{}) {
		opts.Thresholds = inspect.DefaultThresholds()
	}

	fmt.Fprintf(progressW, "ask: inspecting %s\n", opts.Path)
	digest, err := inspect.Inspect(ctx, store, ev, reg, opts.Path, opts.Sync, opts.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("ask: inspect: %w", err)
	}

	mountID, err := mount.IDForPath(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintf(progressW, "ask: recalling against %q\n", opts.Question)
	matches, meta, err := recall.Search(ctx, store.Backend(), store, opts.Question, recall.Options{
		Scope:   opts.Scope,
		MountID: mountID,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: recall: %w", err)
	}
	fmt.Fprintf(progressW, "ask: recall strategy=%s candidates=%d\n", meta.Strategy, meta.CandidateCount)

	digestBlock := inspect.Render(digest, opts.InspectCap)
	initialContext := itemsToInjection(matches)

	invoker := opts.Invoker
	if invoker == nil {
		return nil, fmt.Errorf("ask: no LlmInvoker configured")
	}

	result, err := loop.Run(ctx, store.Backend(), store, invoker, digestBlock+"\n\n"+opts.Question, initialContext, loop.Options{
		Protocol:     loop.ProtocolPassive,
		Scope:        opts.Scope,
		MountID:      mountID,
		BudgetTokens: opts.RecallBudget,
		MaxCalls:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: loop: %w", err)
	}

	fmt.Fprint(answerW, result.Answer)
	return &AskResult{Answer: result.Answer, Digest: digest, Loop: result}, nil
}

func itemsToInjection(items []types.MemoryItem) []injection.Item {
	out := make([]injection.Item, 0, len(items))
	for _, it := range items {
		if !it.Injectable {
			continue
		}
		out = append(out, injection.Item{Tier: it.Tier, ID: it.ID, Title: it.Title, Tags: it.Tags, Content: it.Content})
	}
	return out
}
