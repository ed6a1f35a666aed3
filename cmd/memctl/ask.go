package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/inspect"
	"github.com/steveyegge/memctl/internal/loop"
	"github.com/steveyegge/memctl/internal/orchestrate"
)

var (
	askCmdStr string
	askScope  string
	askSync   string
)

var askCmd = &cobra.Command{
	Use:   "ask PATH QUESTION",
	Short: "One-shot folder Q&A: inspect, recall, answer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askCmdStr == "" {
			return operationalError(fmt.Errorf("ask: --cmd is required"))
		}
		invoker := &loop.SubprocessInvoker{Command: strings.Fields(askCmdStr)}

		var answer strings.Builder
		_, err := orchestrate.Ask(rootCtx, store, ev, reg, orchestrate.AskOptions{
			Path:     args[0],
			Question: strings.Join(args[1:], " "),
			Sync:     inspect.SyncMode(askSync),
			Invoker:  invoker,
			Scope:    askScope,
		}, &answer, os.Stderr)
		if err != nil {
			return internalError(fmt.Errorf("ask: %w", err))
		}
		fmt.Fprintln(os.Stdout, renderMarkdown(answer.String()))
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askCmdStr, "cmd", "", "subprocess command implementing the LLM side of the protocol")
	askCmd.Flags().StringVar(&askScope, "scope", "", "restrict recall to this scope")
	askCmd.Flags().StringVar(&askSync, "sync", "auto", `sync mode: "auto", "always", or "never"`)
}
