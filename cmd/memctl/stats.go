package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var statsResetFlag string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus-wide counts by tier, type, and table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsResetFlag != "" {
			if err := store.ResetAllData(rootCtx, statsResetFlag); err != nil {
				return operationalError(err)
			}
			fmt.Fprintln(os.Stderr, "stats: all data erased")
			return nil
		}

		st, err := store.Stats(rootCtx)
		if err != nil {
			return internalError(fmt.Errorf("stats: %w", err))
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Fprintf(os.Stdout, "items:   %d (%d archived)\n", st.TotalItems, st.ArchivedItems)
		fmt.Fprintf(os.Stdout, "events:  %d\n", st.TotalEvents)
		fmt.Fprintf(os.Stdout, "mounts:  %d\n", st.TotalMounts)
		fmt.Fprintf(os.Stdout, "links:   %d\n", st.TotalLinks)
		fmt.Fprintf(os.Stdout, "tokenizer: %s (schema v%d)\n", st.Tokenizer, st.SchemaVersion)

		fmt.Fprintln(os.Stdout, "\nby tier:")
		for _, tier := range sortedKeys(st.ByTier) {
			fmt.Fprintf(os.Stdout, "  %-6s %d\n", tier, st.ByTier[tier])
		}
		fmt.Fprintln(os.Stdout, "\nby type:")
		for _, typ := range sortedKeys(st.ByType) {
			fmt.Fprintf(os.Stdout, "  %-12s %d\n", typ, st.ByType[typ])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsResetFlag, "i-understand-this-deletes-everything", "", `pass "erase-everything" to hard-delete the entire corpus`)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
