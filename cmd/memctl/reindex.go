package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reindexTokenizer string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the FTS5 index, optionally switching tokenizer",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenizer := reindexTokenizer
		if tokenizer == "" {
			tokenizer = resolvedCfg.FTSTokenizer
		}
		n, dur, err := store.RebuildFTS(rootCtx, tokenizer)
		if err != nil {
			return internalError(fmt.Errorf("reindex: %w", err))
		}
		fmt.Fprintf(os.Stdout, "reindex: %d items indexed in %s (tokenizer=%s)\n", n, dur, tokenizer)
		return nil
	},
}

func init() {
	reindexCmd.Flags().StringVar(&reindexTokenizer, "tokenizer", "", "FTS5 tokenizer to rebuild with (default: current)")
}
