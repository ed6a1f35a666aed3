// Command memctl is the CLI surface over a single folder-scoped memory
// store: ingest, recall, inspect, consolidate, and talk to it through
// ask/chat, plus serve it to an MCP client. One file per subcommand,
// mirroring cmd/bd's layout in the teacher repo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/steveyegge/memctl/internal/config"
	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

// exitError carries the process exit code spec.md §6 assigns to each
// error kind (0 idempotent/success, 1 operational, 2 internal failure).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func operationalError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 1, err: err}
}

func internalError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 2, err: err}
}

var (
	dbPath     string
	configFlag string
	jsonOutput bool
	quietFlag  bool
	verboseFlag bool
	sessionID  string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	store       *sqlite.Store
	ev          *policy.Evaluator
	reg         *ingest.Registry
	resolvedCfg config.Resolved
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "memctl - folder-scoped LLM memory store",
	Long: `memctl ingests a folder into a content-addressed memory store, keeps it
in sync with disk, and serves recall/consolidation/answering over it
from the CLI or as an MCP server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if cmd.Name() == "init" || cmd.Name() == "help" || cmd.Name() == "memctl" {
			return nil
		}

		resolved, err := resolveConfig(cmd)
		if err != nil {
			return operationalError(err)
		}
		resolvedCfg = resolved

		result, err := sqlite.Open(rootCtx, resolvedCfg.DBPath, sqlite.Options{Tokenizer: resolvedCfg.FTSTokenizer})
		if err != nil {
			return internalError(fmt.Errorf("open store: %w", err))
		}
		store = result.Store
		ev = policy.DefaultEvaluator()
		reg = ingest.NewRegistry()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			_ = store.Close()
		}
		if rootCancel != nil {
			rootCancel()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// resolveConfig layers the config file, environment variables, and
// explicit CLI flags, per spec.md §6's precedence rule (flag > env >
// config file > compiled default).
func resolveConfig(cmd *cobra.Command) (config.Resolved, error) {
	db := dbPath
	if db == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Resolved{}, err
		}
		db = filepath.Join(wd, "memctl.db")
	}

	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = config.PathNextTo(db)
	}
	file := config.Load(cfgPath)

	v := viper.New()
	if cmd.Flags().Changed("db") {
		v.Set("db", db)
	}
	resolved := config.Resolve(v, file)
	if resolved.DBPath != "" {
		db = resolved.DBPath
	}
	resolved.DBPath = db

	if sessionID != "" {
		resolved.SessionID = sessionID
	}
	return resolved, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ./memctl.db)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path (default: auto-detected next to --db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose diagnostics")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id for rate limiting and audit correlation")

	rootCmd.AddCommand(initCmd, pushCmd, pullCmd, searchCmd, showCmd, statsCmd, consolidateCmd,
		loopCmd, mountCmd, syncCmd, inspectCmd, askCmd, chatCmd, exportCmd, importCmd, serveCmd, reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		var ee *exitError
		if ok := asExitError(err, &ee); ok {
			code = ee.code
		}
		if !quietFlag {
			fmt.Fprintf(os.Stderr, "memctl: %v\n", err)
		}
		os.Exit(code)
	}
}

func asExitError(err error, target **exitError) bool {
	for err != nil {
		if ee, ok := err.(*exitError); ok {
			*target = ee
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
