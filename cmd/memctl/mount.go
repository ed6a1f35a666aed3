package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/mount"
)

var (
	mountDisplayName string
	mountIgnore      []string
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Register and list mounted folders",
}

var mountAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register PATH as a mount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := mount.Register(rootCtx, store, args[0], mountDisplayName, mountIgnore)
		if err != nil {
			return internalError(fmt.Errorf("mount add: %w", err))
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(m)
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\n", m.ID, m.Path)
		return nil
	},
}

var mountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered mounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		mounts, err := store.ListMounts(rootCtx)
		if err != nil {
			return internalError(fmt.Errorf("mount list: %w", err))
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(mounts)
		}
		for _, m := range mounts {
			fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", m.ID, m.DisplayName, m.Path)
		}
		return nil
	},
}

func init() {
	mountAddCmd.Flags().StringVar(&mountDisplayName, "name", "", "display name (default: folder basename)")
	mountAddCmd.Flags().StringSliceVar(&mountIgnore, "ignore", nil, "glob patterns to exclude from ingestion")
	mountCmd.AddCommand(mountAddCmd, mountListCmd)
}
