// Package loop implements the bounded recall-answer controller: a
// deterministic state machine that binds an external LLM invocation to
// the memory store across a capped number of iterations. The LLM only
// ever proposes a follow-up query or declares itself done; the
// controller alone enforces every stopping condition.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/query"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/similarity"
	"github.com/steveyegge/memctl/internal/types"
)

// Options configures a Run call. Zero values fall back to the defaults
// named in field comments.
type Options struct {
	Protocol            Protocol
	Scope               string
	MountID             string
	BudgetTokens        int           // context budget passed to injection.BuildItems; default 1200
	MaxCalls            int           // default 3
	PerCallTimeout      time.Duration // default DefaultPerCallTimeout
	Deadline            time.Time     // optional overall wall-clock deadline
	FixedPointThreshold float64       // default similarity.DefaultFixedPointThreshold
	StableSteps         int           // default 2
	QueryCycleThreshold float64       // default similarity.DefaultQueryCycleThreshold
	DisableNoNewItems   bool
}

func (o Options) withDefaults() Options {
	if o.MaxCalls <= 0 {
		o.MaxCalls = 3
	}
	if o.PerCallTimeout <= 0 {
		o.PerCallTimeout = DefaultPerCallTimeout
	}
	if o.FixedPointThreshold <= 0 {
		o.FixedPointThreshold = similarity.DefaultFixedPointThreshold
	}
	if o.StableSteps <= 0 {
		o.StableSteps = 2
	}
	if o.QueryCycleThreshold <= 0 {
		o.QueryCycleThreshold = similarity.DefaultQueryCycleThreshold
	}
	if o.BudgetTokens <= 0 {
		o.BudgetTokens = 1200
	}
	return o
}

// TraceRecord is one JSONL line of the loop's execution trace. Traces
// are replayable: ReplayTrace reads a trace file and reproduces the
// final answer without invoking an LLM, asserting recorded recalls
// reproduce the same item sets.
type TraceRecord struct {
	Iteration     int                 `json:"iteration"`
	Query         string              `json:"query,omitempty"`
	AnswerSim     *float64            `json:"answer_similarity,omitempty"`
	QuerySim      *float64            `json:"query_similarity,omitempty"`
	Action        string              `json:"action"` // "recall" or "stop"
	StopCondition types.StopCondition `json:"stop_condition,omitempty"`
	NewItemIDs    []string            `json:"new_item_ids,omitempty"`
	Timeout       bool                `json:"timeout,omitempty"`
}

// Result is the outcome of a Run call.
type Result struct {
	Answer        string
	StopCondition types.StopCondition
	Iterations    int
	Trace         []TraceRecord
	Timeout       bool
}

// Run drives invoker across a bounded number of iterations, recalling
// from the store whenever the LLM proposes a follow-up query, until one
// of the five stopping conditions fires.
func Run(ctx context.Context, backend recall.Backend, mounts recall.MountFilter, invoker LlmInvoker, question string, initialContext []injection.Item, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	maxCalls := opts.MaxCalls
	if opts.Protocol == ProtocolPassive && maxCalls > 1 {
		maxCalls = 1
	}

	contextItems := append([]injection.Item(nil), initialContext...)
	contextIDs := make(map[string]bool, len(contextItems))
	for _, it := range contextItems {
		contextIDs[it.ID] = true
	}

	var previousAnswer string
	stableCount := 0
	var queryHistory []string
	var trace []TraceRecord

	result := &Result{}

	for iter := 1; iter <= maxCalls; iter++ {
		if !opts.Deadline.IsZero() && time.Now().After(opts.Deadline) {
			result.StopCondition = types.StopMaxCalls
			result.Timeout = true
			trace = append(trace, TraceRecord{Iteration: iter, Action: "stop", StopCondition: types.StopMaxCalls, Timeout: true})
			result.Trace = trace
			result.Iterations = iter - 1
			return result, nil
		}

		block, _ := injection.BuildItems(contextItems, opts.BudgetTokens)
		prompt := block + "\n\nQUESTION: " + question

		callCtx := ctx
		var cancel context.CancelFunc
		if opts.PerCallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, opts.PerCallTimeout)
		}
		raw, err := invoker.Invoke(callCtx, prompt)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				result.StopCondition = types.StopMaxCalls
				result.Timeout = true
				trace = append(trace, TraceRecord{Iteration: iter, Action: "stop", StopCondition: types.StopMaxCalls, Timeout: true})
				result.Trace = trace
				result.Iterations = iter
				return result, nil
			}
			return nil, fmt.Errorf("loop: invoke iteration %d: %w", iter, err)
		}

		env, err := parseEnvelope(opts.Protocol, raw)
		if err != nil {
			return nil, fmt.Errorf("loop: iteration %d: %w", iter, err)
		}
		result.Answer = env.Answer
		result.Iterations = iter

		var answerSim *float64
		if previousAnswer != "" {
			sim := similarity.CombinedScore(env.Answer, previousAnswer)
			answerSim = &sim
			if sim > opts.FixedPointThreshold {
				stableCount++
			} else {
				stableCount = 0
			}
		}
		previousAnswer = env.Answer

		if opts.Protocol == ProtocolJSON && env.Stop {
			trace = append(trace, TraceRecord{Iteration: iter, Action: "stop", StopCondition: types.StopLLMStop, AnswerSim: answerSim})
			result.StopCondition = types.StopLLMStop
			result.Trace = trace
			return result, nil
		}

		if stableCount >= opts.StableSteps {
			trace = append(trace, TraceRecord{Iteration: iter, Action: "stop", StopCondition: types.StopFixedPoint, AnswerSim: answerSim})
			result.StopCondition = types.StopFixedPoint
			result.Trace = trace
			return result, nil
		}

		proposedQuery := env.Query
		wantsMore := env.NeedMore || proposedQuery != ""
		if opts.Protocol == ProtocolPassive || !wantsMore || proposedQuery == "" {
			trace = append(trace, TraceRecord{Iteration: iter, Action: "stop", StopCondition: types.StopLLMStop, AnswerSim: answerSim})
			result.StopCondition = types.StopLLMStop
			result.Trace = trace
			return result, nil
		}

		var querySim *float64
		if similarity.IsQueryCycle(proposedQuery, queryHistory, opts.QueryCycleThreshold) {
			sim := bestQuerySim(proposedQuery, queryHistory)
			querySim = &sim
			trace = append(trace, TraceRecord{Iteration: iter, Query: proposedQuery, Action: "stop", StopCondition: types.StopQueryCycle, AnswerSim: answerSim, QuerySim: querySim})
			result.StopCondition = types.StopQueryCycle
			result.Trace = trace
			return result, nil
		}
		queryHistory = append(queryHistory, proposedQuery)

		matches, _, err := recall.Search(ctx, backend, mounts, proposedQuery, recall.Options{Scope: opts.Scope, MountID: opts.MountID})
		if err != nil {
			return nil, fmt.Errorf("loop: recall iteration %d: %w", iter, err)
		}

		var newIDs []string
		for _, m := range matches {
			if contextIDs[m.ID] {
				continue
			}
			contextIDs[m.ID] = true
			newIDs = append(newIDs, m.ID)
			contextItems = append([]injection.Item{{Tier: m.Tier, ID: m.ID, Title: m.Title, Tags: m.Tags, Content: m.Content}}, contextItems...)
		}

		if !opts.DisableNoNewItems && len(newIDs) == 0 {
			trace = append(trace, TraceRecord{Iteration: iter, Query: proposedQuery, Action: "recall", StopCondition: types.StopNoNewItems, AnswerSim: answerSim, QuerySim: querySim})
			result.StopCondition = types.StopNoNewItems
			result.Trace = trace
			return result, nil
		}

		trace = append(trace, TraceRecord{Iteration: iter, Query: proposedQuery, Action: "recall", AnswerSim: answerSim, QuerySim: querySim, NewItemIDs: newIDs})
	}

	result.StopCondition = types.StopMaxCalls
	result.Trace = trace
	return result, nil
}

func bestQuerySim(q string, history []string) float64 {
	best := 0.0
	for _, h := range history {
		if s := similarity.CombinedScore(q, h); s > best {
			best = s
		}
	}
	return best
}

// SuggestBudget exposes query.SuggestBudget under the loop package so
// callers sizing an initial injection budget from a question's length
// don't need a second import.
func SuggestBudget(questionChars int) int {
	return query.SuggestBudget(questionChars)
}
