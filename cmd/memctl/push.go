package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/mount"
)

var (
	pushFull  bool
	pushScope string
)

var pushCmd = &cobra.Command{
	Use:   "push PATH...",
	Short: "Push one or more folders into the memory store",
	Long: `Registers each PATH as a mount (if not already) and ingests it:
chunks new or changed files, runs them through policy, and writes
accepted/quarantined items. Re-pushing an unchanged folder adds nothing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mountIDs []string
		for _, path := range args {
			m, err := mount.EnsureRegistered(rootCtx, store, path)
			if err != nil {
				return internalError(fmt.Errorf("mount %s: %w", path, err))
			}
			mountIDs = append(mountIDs, m.ID)

			result, err := ingest.Ingest(rootCtx, store, ev, reg, []string{m.Path}, ingest.Options{
				MountID:      m.ID,
				MountPath:    m.Path,
				Full:         pushFull,
				DefaultScope: pushScope,
			})
			if err != nil {
				return internalError(fmt.Errorf("ingest %s: %w", path, err))
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				if err := enc.Encode(result); err != nil {
					return internalError(err)
				}
			} else {
				fmt.Fprintf(os.Stderr, "push %s: %d items written, %d files skipped, %d errors\n",
					path, result.ItemsWritten, result.FilesSkipped, len(result.Errors))
			}
			if len(result.Errors) > 0 {
				return operationalError(result.Errors[0])
			}
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushFull, "full", false, "re-ingest every candidate, ignoring the corpus hash cache")
	pushCmd.Flags().StringVar(&pushScope, "scope", "", "scope to tag newly ingested items with")
}
