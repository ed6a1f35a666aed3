package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/mount"
)

var syncCmd = &cobra.Command{
	Use:   "sync [PATH]",
	Short: "Apply the 3-tier delta sync to one mount, or all mounts",
	Long: `Enumerates PATH's mount (auto-registering it if needed) and applies
the 3-tier delta rule per file: ingest new files, skip unchanged
metadata, refresh metadata on a hash match, re-ingest on a real change.
Files missing from disk are archived, never deleted. With no PATH, every
registered mount is synced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mountIDs []string
		if len(args) == 1 {
			m, err := mount.EnsureRegistered(rootCtx, store, args[0])
			if err != nil {
				return internalError(fmt.Errorf("sync: %w", err))
			}
			mountIDs = append(mountIDs, m.ID)
		} else {
			mounts, err := store.ListMounts(rootCtx)
			if err != nil {
				return internalError(fmt.Errorf("sync: list mounts: %w", err))
			}
			for _, m := range mounts {
				mountIDs = append(mountIDs, m.ID)
			}
		}

		for _, mountID := range mountIDs {
			result, err := mount.Sync(rootCtx, store, ev, reg, mountID)
			if err != nil {
				return internalError(fmt.Errorf("sync %s: %w", mountID, err))
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				if err := enc.Encode(result); err != nil {
					return internalError(err)
				}
				continue
			}
			var ingested, skipped, unchanged int
			for _, f := range result.Files {
				switch f.Tier {
				case mount.TierIngested:
					ingested++
				case mount.TierSkipped:
					skipped++
				case mount.TierUnchanged:
					unchanged++
				}
			}
			fmt.Fprintf(os.Stdout, "%s: ingested=%d skipped=%d unchanged=%d orphans_archived=%d\n",
				mountID, ingested, skipped, unchanged, result.OrphansArchived)
		}
		return nil
	},
}
