package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/timeparse"
)

var (
	searchScope string
	searchPath  string
	searchLimit int
	searchSince string
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search memory items by text query",
	Long: `Runs QUERY through the FTS cascade (AND -> REDUCED_AND -> PREFIX_AND
-> OR_FALLBACK -> LIKE) and prints the matches, one per line, most
relevant first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")

		var mountID string
		if searchPath != "" {
			id, err := mount.IDForPath(searchPath)
			if err != nil {
				return operationalError(err)
			}
			mountID = id
		}

		matches, meta, err := recall.Search(rootCtx, store.Backend(), store, raw, recall.Options{
			Scope:   searchScope,
			MountID: mountID,
			Limit:   searchLimit,
		})
		if err != nil {
			return internalError(fmt.Errorf("search: %w", err))
		}

		if searchSince != "" {
			cutoff, err := timeparse.Since(searchSince, time.Now())
			if err != nil {
				return operationalError(err)
			}
			filtered := matches[:0]
			for _, m := range matches {
				if !m.UpdatedAt.Before(cutoff) {
					filtered = append(filtered, m)
				}
			}
			matches = filtered
		}

		fmt.Fprintf(os.Stderr, "search: strategy=%s candidates=%d matches=%d\n", meta.Strategy, meta.CandidateCount, len(matches))

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(matches)
		}
		for _, m := range matches {
			fmt.Fprintf(os.Stdout, "%s\t[%s]\t%s\n", m.ID, m.Tier, m.Title)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchScope, "scope", "", "restrict search to this scope")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "restrict search to the mount registered at this path")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum matches to return")
	searchCmd.Flags().StringVar(&searchSince, "since", "", `only include items updated since this time (RFC3339 or a phrase like "3 days ago")`)
}
