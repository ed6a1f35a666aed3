package orchestrate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/steveyegge/memctl/internal/idgen"
	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// ChatOptions configures a Chat session.
type ChatOptions struct {
	Scope          string
	MountID        string // optional folder scoping
	BudgetTokens   int    // default 1200
	Invoker        loop.LlmInvoker
	Persist        bool   // persist answers as STM items through the policy engine
	HistoryMaxTurns int   // sliding-window turn cap; 0 disables turn trimming
	HistoryMaxChars int   // sliding-window char budget; 0 disables char trimming
}

// turn is one exchange in the optional in-memory sliding-window session.
type turn struct {
	Question string
	Answer   string
}

// Chat is an interactive memory-backed REPL session. Stateless by
// default; when HistoryMaxTurns or HistoryMaxChars is set, a bounded
// sliding window of prior turns is kept and trimmed (oldest first) by
// both bounds. Nothing here is persisted unless Persist is set, in which
// case answers are written through the policy engine as STM items.
type Chat struct {
	store   *sqlite.Store
	ev      *policy.Evaluator
	opts    ChatOptions
	history []turn
}

// NewChat builds a Chat bound to store.
func NewChat(store *sqlite.Store, ev *policy.Evaluator, opts ChatOptions) *Chat {
	if opts.BudgetTokens <= 0 {
		opts.BudgetTokens = 1200
	}
	return &Chat{store: store, ev: ev, opts: opts}
}

// Turn runs one REPL exchange: recall from the store, invoke the LLM,
// write the answer to answerW, progress to progressW. stdout carries
// answers; everything else goes to stderr (spec.md §4.13).
func (c *Chat) Turn(ctx context.Context, question string, answerW, progressW io.Writer) (string, error) {
	if c.opts.Invoker == nil {
		return "", fmt.Errorf("chat: no LlmInvoker configured")
	}

	fmt.Fprintf(progressW, "chat: recalling against %q\n", question)
	matches, meta, err := recall.Search(ctx, c.store.Backend(), c.store, question, recall.Options{
		Scope:   c.opts.Scope,
		MountID: c.opts.MountID,
	})
	if err != nil {
		return "", fmt.Errorf("chat: recall: %w", err)
	}
	fmt.Fprintf(progressW, "chat: recall strategy=%s candidates=%d\n", meta.Strategy, meta.CandidateCount)

	contextItems := itemsToInjection(matches)
	for _, t := range c.history {
		contextItems = append(contextItems, injection.Item{Tier: types.TierSTM, ID: "", Title: "prior turn", Content: t.Question + "\n" + t.Answer})
	}

	result, err := loop.Run(ctx, c.store.Backend(), c.store, c.opts.Invoker, question, contextItems, loop.Options{
		Protocol:     loop.ProtocolPassive,
		Scope:        c.opts.Scope,
		MountID:      c.opts.MountID,
		BudgetTokens: c.opts.BudgetTokens,
		MaxCalls:     1,
	})
	if err != nil {
		return "", fmt.Errorf("chat: loop: %w", err)
	}

	fmt.Fprint(answerW, result.Answer)

	c.appendHistory(question, result.Answer)

	if c.opts.Persist {
		if err := c.persistAnswer(ctx, question, result.Answer); err != nil {
			fmt.Fprintf(progressW, "chat: warning: failed to persist answer: %v\n", err)
		}
	}

	return result.Answer, nil
}

// appendHistory records the turn and trims the sliding window by both
// turn count and character budget, oldest first, whichever bound hits
// first (spec.md §4.13: "both enforced; oldest trimmed first").
func (c *Chat) appendHistory(question, answer string) {
	if c.opts.HistoryMaxTurns <= 0 && c.opts.HistoryMaxChars <= 0 {
		return
	}
	c.history = append(c.history, turn{Question: question, Answer: answer})

	for c.opts.HistoryMaxTurns > 0 && len(c.history) > c.opts.HistoryMaxTurns {
		c.history = c.history[1:]
	}
	for c.opts.HistoryMaxChars > 0 && c.historyChars() > c.opts.HistoryMaxChars && len(c.history) > 0 {
		c.history = c.history[1:]
	}
}

func (c *Chat) historyChars() int {
	total := 0
	for _, t := range c.history {
		total += len(t.Question) + len(t.Answer)
	}
	return total
}

func (c *Chat) persistAnswer(ctx context.Context, question, answer string) error {
	now := time.Now().UTC()
	item := &types.MemoryItem{
		ID:      idgen.NewItemID(now, answer),
		Title:   question,
		Content: answer,
		Tier:    types.TierSTM,
		Type:    "note",
		Scope:   c.opts.Scope,
		Injectable: true,
		CreatedAt: now,
		UpdatedAt: now,
		Provenance: types.Provenance{SourceKind: "chat", Justification: "chat answer persisted by user opt-in"},
	}
	_, err := sqlite.EvaluateAndWrite(ctx, c.store, c.ev, item, "chat persist")
	return err
}
