// Package config loads memctl's config file (JSON by default, TOML on
// request) and layers it under environment variables and CLI flags via
// viper, exactly the precedence spec.md §6 names: CLI flag > env var >
// config file > compiled default. The on-disk format itself is the
// teacher's plain encoding/json load/save shape
// (internal/configfile/configfile.go), retargeted from beads' per-repo
// metadata.json to memctl's store/inspect/chat sections.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// FileName is the config file memctl auto-detects next to the database.
const FileName = "memctl.json"

// StoreConfig is the "store" config section.
type StoreConfig struct {
	FTSTokenizer string `json:"fts_tokenizer,omitempty"`
}

// InspectConfig is the "inspect" config section: the four observation
// thresholds (spec.md §4.8). Zero values fall back to
// inspect.DefaultThresholds() at the call site.
type InspectConfig struct {
	DominanceFrac        float64 `json:"dominance_frac,omitempty"`
	LowDensityThreshold  float64 `json:"low_density_threshold,omitempty"`
	ExtConcentrationFrac float64 `json:"ext_concentration_frac,omitempty"`
	SparseThreshold      int     `json:"sparse_threshold,omitempty"`
}

// ChatConfig is the "chat" config section.
type ChatConfig struct {
	HistoryMax int `json:"history_max,omitempty"`
}

// File is the on-disk JSON shape. Invalid or missing config silently
// falls back to defaults (spec.md §6) — Load never errors on a missing
// or malformed file, it just returns DefaultFile().
type File struct {
	Store   StoreConfig   `json:"store"`
	Inspect InspectConfig `json:"inspect"`
	Chat    ChatConfig    `json:"chat"`
}

// DefaultFile is the compiled-in fallback, the lowest rung of the
// precedence ladder.
func DefaultFile() File {
	return File{
		Store:   StoreConfig{FTSTokenizer: "fr"},
		Inspect: InspectConfig{DominanceFrac: 0.40, LowDensityThreshold: 0.10, ExtConcentrationFrac: 0.75, SparseThreshold: 1},
		Chat:    ChatConfig{HistoryMax: 20},
	}
}

// PathNextTo returns the auto-detected config path beside a database
// file at dbPath.
func PathNextTo(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), FileName)
}

// Load reads the config file at path (JSON by default, TOML when path
// ends in ".toml" — an operator may prefer a hand-edited TOML file over
// the auto-generated JSON one), falling back silently to DefaultFile()
// if it's missing or malformed (spec.md §6: "Invalid or missing config
// silently falls back to defaults").
func Load(path string) File {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-controlled, mirrors configfile.Load
	if err != nil {
		return DefaultFile()
	}
	cfg := DefaultFile()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return DefaultFile()
		}
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultFile()
	}
	return cfg
}

// Save writes cfg to path, in JSON unless path ends in ".toml".
func Save(cfg File, path string) error {
	var data []byte
	var err error
	if isTOML(path) {
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("config: marshal: %w", err)
		}
		data = []byte(buf.String())
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("config: marshal: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Resolved is the fully layered configuration a CLI run operates under:
// config file values overridden by env vars, in turn overridden by
// explicit CLI flags. Built once per invocation in cmd/memctl/main.go.
type Resolved struct {
	DBPath       string
	Budget       int
	FTSTokenizer string
	Tier         string
	SessionID    string
	ChatHistory  int
	Inspect      InspectConfig
}

// envBindings are the environment variables named in spec.md §6, in
// precedence order below CLI flags and above the config file.
var envBindings = map[string]string{
	"db":            "MEMCTL_DB",
	"budget":        "MEMCTL_BUDGET",
	"fts_tokenizer": "MEMCTL_FTS",
	"tier":          "MEMCTL_TIER",
	"session":       "MEMCTL_SESSION",
}

// Resolve layers file (the config-file values) under environment
// variables under v's explicitly-set flags, matching viper's own
// precedence (flag > env > config > default) via BindEnv plus a
// pre-seeded default layer from file.
func Resolve(v *viper.Viper, file File) Resolved {
	v.SetDefault("db", "")
	v.SetDefault("budget", 0)
	v.SetDefault("fts_tokenizer", file.Store.FTSTokenizer)
	v.SetDefault("tier", "")
	v.SetDefault("session", "")
	v.SetDefault("chat_history", file.Chat.HistoryMax)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	inspectCfg := file.Inspect
	if inspectCfg == (InspectConfig{}) {
		d := DefaultFile().Inspect
		inspectCfg = d
	}

	return Resolved{
		DBPath:       v.GetString("db"),
		Budget:       v.GetInt("budget"),
		FTSTokenizer: v.GetString("fts_tokenizer"),
		Tier:         v.GetString("tier"),
		SessionID:    v.GetString("session"),
		ChatHistory:  v.GetInt("chat_history"),
		Inspect:      inspectCfg,
	}
}
