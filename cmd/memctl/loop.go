package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/query"
)

var (
	loopProtocol string
	loopCmdStr   string
	loopMaxCalls int
	loopBudget   int
	loopScope    string
	loopPath     string
)

var loopCmd = &cobra.Command{
	Use:   "loop QUESTION",
	Short: "Run the bounded recall-answer loop against an external LLM",
	Long: `Spawns --cmd as a subprocess, feeds it QUESTION plus recalled context
over stdin/stdout, and iterates until one of the five stopping
conditions fires (llm_stop, fixed_point, query_cycle, no_new_items,
max_calls).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loopCmdStr == "" {
			return operationalError(fmt.Errorf("loop: --cmd is required"))
		}
		question := strings.Join(args, " ")

		invoker := &loop.SubprocessInvoker{Command: strings.Fields(loopCmdStr), Timeout: loopPerCallTimeout}

		var mountID string
		if loopPath != "" {
			id, err := mount.IDForPath(loopPath)
			if err != nil {
				return operationalError(err)
			}
			mountID = id
		}

		budget := loopBudget
		if budget <= 0 {
			budget = query.SuggestBudget(len(question))
		}

		result, err := loop.Run(rootCtx, store.Backend(), store, invoker, question, nil, loop.Options{
			Protocol:     loop.Protocol(loopProtocol),
			Scope:        loopScope,
			MountID:      mountID,
			BudgetTokens: budget,
			MaxCalls:     loopMaxCalls,
		})
		if err != nil {
			return internalError(fmt.Errorf("loop: %w", err))
		}

		fmt.Fprintf(os.Stderr, "loop: stopped on %s after %d iteration(s)\n", result.StopCondition, result.Iterations)
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(result)
		}
		fmt.Fprint(os.Stdout, result.Answer)
		return nil
	},
}

func init() {
	loopCmd.Flags().StringVar(&loopProtocol, "protocol", "passive", `refinement protocol: "json", "regex", or "passive"`)
	loopCmd.Flags().StringVar(&loopCmdStr, "cmd", "", "subprocess command (and args) implementing the LLM side of the protocol")
	loopCmd.Flags().IntVar(&loopMaxCalls, "max-calls", 3, "maximum LLM invocations before the loop force-stops")
	loopCmd.Flags().IntVar(&loopBudget, "budget", 0, "context token budget (default: query-derived)")
	loopCmd.Flags().StringVar(&loopScope, "scope", "", "restrict recall to this scope")
	loopCmd.Flags().StringVar(&loopPath, "path", "", "restrict recall to the mount registered at this path")
	loopCmd.Flags().DurationVar(&loopPerCallTimeout, "per-call-timeout", 0, "override the per-call subprocess timeout")
}

var loopPerCallTimeout time.Duration
