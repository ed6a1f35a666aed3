package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/query"
	"github.com/steveyegge/memctl/internal/recall"
)

var (
	pullScope   string
	pullPath    string
	pullBudget  int
)

var pullCmd = &cobra.Command{
	Use:   "pull QUERY",
	Short: "Pull memory for QUERY as a ready-to-inject block",
	Long: `Runs the FTS cascade against QUERY and writes a format_version=1
injection block to stdout (spec.md §6). Progress and candidate counts go
to stderr; stdout carries only the block, so it can be piped straight
into a prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		for _, a := range args[1:] {
			raw += " " + a
		}

		var mountID string
		if pullPath != "" {
			id, err := mount.IDForPath(pullPath)
			if err != nil {
				return operationalError(err)
			}
			mountID = id
		}

		budget := pullBudget
		if budget <= 0 {
			budget = query.SuggestBudget(len(raw))
		}

		matches, meta, err := recall.Search(rootCtx, store.Backend(), store, raw, recall.Options{
			Scope:   pullScope,
			MountID: mountID,
			Limit:   40,
		})
		if err != nil {
			return internalError(fmt.Errorf("pull: %w", err))
		}
		fmt.Fprintf(os.Stderr, "pull: strategy=%s candidates=%d matches=%d\n", meta.Strategy, meta.CandidateCount, len(matches))

		items := make([]injection.Item, 0, len(matches))
		for _, m := range matches {
			if !m.Injectable {
				continue
			}
			items = append(items, injection.Item{Tier: m.Tier, ID: m.ID, Title: m.Title, Tags: m.Tags, Content: m.Content})
		}

		block, included := injection.BuildItems(items, budget)
		fmt.Fprintf(os.Stderr, "pull: included %d/%d items within %d-token budget\n", included, len(items), budget)
		fmt.Fprint(os.Stdout, block)
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullScope, "scope", "", "restrict recall to this scope")
	pullCmd.Flags().StringVar(&pullPath, "path", "", "restrict recall to the mount registered at this path")
	pullCmd.Flags().IntVar(&pullBudget, "budget", 0, "token budget for the injection block (default: query-derived)")
}
