package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

var showTouch bool

var showCmd = &cobra.Command{
	Use:   "show ITEM_ID",
	Short: "Show one memory item in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := store.ReadItem(rootCtx, args[0], showTouch)
		if err != nil {
			if sqlite.IsNotFound(err) {
				return operationalError(fmt.Errorf("item %s not found", args[0]))
			}
			return internalError(err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(item)
		}

		fmt.Fprintf(os.Stdout, "id:      %s\n", item.ID)
		fmt.Fprintf(os.Stdout, "tier:    %s\n", item.Tier)
		fmt.Fprintf(os.Stdout, "type:    %s\n", item.Type)
		fmt.Fprintf(os.Stdout, "title:   %s\n", item.Title)
		fmt.Fprintf(os.Stdout, "tags:    %v\n", item.Tags)
		fmt.Fprintf(os.Stdout, "usage:   %d\n", item.UsageCount)
		fmt.Fprintf(os.Stdout, "archived: %t\n", item.Archived)
		fmt.Fprintf(os.Stdout, "\n%s\n", renderMarkdown(item.Content))
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showTouch, "touch", false, "increment the item's usage_count as part of reading it")
}
