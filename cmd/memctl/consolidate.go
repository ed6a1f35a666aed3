package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/consolidate"
)

var consolidateScope string

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Cluster and merge STM items, promote eligible MTM items",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := consolidate.Consolidate(rootCtx, store, ev, consolidateScope)
		if err != nil {
			return internalError(fmt.Errorf("consolidate: %w", err))
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(result)
		}
		fmt.Fprintf(os.Stdout, "clusters: %d  survivors: %d  archived: %d  promoted: %d\n",
			result.ClustersFound, len(result.SurvivorIDs), len(result.ArchivedIDs), len(result.PromotedIDs))
		return nil
	},
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateScope, "scope", "", "restrict consolidation to this scope")
}
