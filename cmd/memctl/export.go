package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/exportimport"
	"github.com/steveyegge/memctl/internal/types"
)

var (
	exportTier            string
	exportType            string
	exportScope           string
	exportIncludeArchived bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream memory items as JSONL to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := exportimport.Export(rootCtx, store, os.Stdout, exportimport.Filter{
			Tier:            types.Tier(exportTier),
			Type:            exportType,
			Scope:           exportScope,
			IncludeArchived: exportIncludeArchived,
		})
		if err != nil {
			return internalError(fmt.Errorf("export: %w", err))
		}
		fmt.Fprintf(os.Stderr, "export: wrote %d items\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTier, "tier", "", "restrict to this tier (stm, mtm, ltm)")
	exportCmd.Flags().StringVar(&exportType, "type", "", "restrict to this item type")
	exportCmd.Flags().StringVar(&exportScope, "scope", "", "restrict to this scope")
	exportCmd.Flags().BoolVar(&exportIncludeArchived, "include-archived", false, "include archived items")
}
