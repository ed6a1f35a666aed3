package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/exportimport"
)

var (
	importPreserveIDs bool
	importDryRun      bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Read a JSONL memory item stream from stdin",
	Long: `Reads one memory item per line from stdin, recomputes its content
hash, runs it through policy, and writes accepted/quarantined items.
Rejected and duplicate lines are reported but never abort the batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := exportimport.Import(rootCtx, store, ev, os.Stdin, exportimport.ImportOptions{
			PreserveIDs: importPreserveIDs,
			DryRun:      importDryRun,
		})
		if err != nil {
			return internalError(fmt.Errorf("import: %w", err))
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(result)
		}
		fmt.Fprintf(os.Stdout, "imported=%d quarantined=%d rejected=%d duplicates=%d errored=%d\n",
			result.Imported, result.Quarantined, result.Rejected, result.Duplicates, result.Errored)
		if result.Rejected > 0 || result.Errored > 0 {
			return operationalError(fmt.Errorf("import: %d rejected, %d errored", result.Rejected, result.Errored))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importPreserveIDs, "preserve-ids", false, "keep incoming item ids instead of minting new ones")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "evaluate policy without writing anything")
}
