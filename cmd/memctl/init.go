package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/steveyegge/memctl/internal/config"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new memory store and config file",
	Long: `Creates the SQLite store at --db (default ./memctl.db) and a sibling
memctl.json config file with compiled defaults, if neither already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := dbPath
		if db == "" {
			wd, err := os.Getwd()
			if err != nil {
				return internalError(err)
			}
			db = filepath.Join(wd, "memctl.db")
		}

		if _, err := os.Stat(db); err == nil && !quietFlag && term.IsTerminal(int(os.Stdin.Fd())) {
			proceed := false
			confirm := huh.NewConfirm().
				Title(fmt.Sprintf("A store already exists at %s", db)).
				Description("Reopening it keeps existing data; init never truncates.").
				Affirmative("Continue").
				Negative("Cancel").
				Value(&proceed)
			if err := confirm.Run(); err != nil && err != huh.ErrUserAborted {
				return internalError(fmt.Errorf("confirm prompt: %w", err))
			}
			if !proceed {
				return operationalError(fmt.Errorf("init: cancelled"))
			}
		}

		cfgPath := configFlag
		if cfgPath == "" {
			cfgPath = config.PathNextTo(db)
		}

		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Fprintf(os.Stderr, "memctl: config already exists at %s, leaving it untouched\n", cfgPath)
		} else {
			if err := config.Save(config.DefaultFile(), cfgPath); err != nil {
				return internalError(fmt.Errorf("write config: %w", err))
			}
			fmt.Fprintf(os.Stderr, "memctl: wrote config to %s\n", cfgPath)
		}

		tokenizer := config.Load(cfgPath).Store.FTSTokenizer
		result, err := sqlite.Open(rootCtx, db, sqlite.Options{Tokenizer: tokenizer})
		if err != nil {
			return internalError(fmt.Errorf("open store: %w", err))
		}
		defer result.Store.Close()

		fmt.Fprintf(os.Stderr, "memctl: store ready at %s\n", db)
		if jsonOutput {
			fmt.Fprintf(os.Stdout, `{"db":%q,"config":%q}`+"\n", db, cfgPath)
		}
		return nil
	},
}
