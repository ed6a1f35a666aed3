package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/memctl/internal/inspect"
)

var (
	inspectSync   string
	inspectBudget int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect PATH",
	Short: "Print a deterministic structural digest of a mounted folder",
	Long: `Builds the digest from corpus_hashes and memory_mounts metadata only
(no content reads): totals, per-folder and per-extension breakdowns, the
5 largest files, and rule-based observations against the four frozen
thresholds. --json emits threshold values and orchestration metadata
alongside the same data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := inspect.SyncMode(inspectSync)
		thresholds := resolvedCfg.Inspect
		th := inspect.Thresholds{
			DominanceFrac:        orDefault(thresholds.DominanceFrac, inspect.DefaultThresholds().DominanceFrac),
			LowDensityThreshold:  orDefault(thresholds.LowDensityThreshold, inspect.DefaultThresholds().LowDensityThreshold),
			ExtConcentrationFrac: orDefault(thresholds.ExtConcentrationFrac, inspect.DefaultThresholds().ExtConcentrationFrac),
			SparseThreshold:      int(orDefault(float64(thresholds.SparseThreshold), float64(inspect.DefaultThresholds().SparseThreshold))),
		}

		digest, err := inspect.Inspect(rootCtx, store, ev, reg, args[0], mode, th)
		if err != nil {
			return internalError(fmt.Errorf("inspect: %w", err))
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(digest)
		}

		budget := inspectBudget
		if budget <= 0 {
			budget = 400
		}
		fmt.Fprint(os.Stdout, inspect.Render(digest, budget))
		return nil
	},
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSync, "sync", "auto", `sync mode: "auto", "always", or "never"`)
	inspectCmd.Flags().IntVar(&inspectBudget, "budget", 400, "token budget for the rendered digest")
}
