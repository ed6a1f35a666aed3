// Package inspect builds a deterministic structural digest of a mounted
// corpus from corpus_hashes and memory_mounts metadata only — it never
// reads item content, so it stays cheap even over large corpora.
package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/mount"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// SyncMode controls whether Inspect syncs the mount before digesting it.
type SyncMode string

const (
	SyncAuto   SyncMode = "auto"   // sync only if the staleness pre-check finds drift
	SyncAlways SyncMode = "always" // always sync first
	SyncNever  SyncMode = "never"  // never sync, digest whatever is currently stored
)

// Thresholds are the four frozen-semantics observation thresholds.
// Values are configurable; what they mean is not.
type Thresholds struct {
	DominanceFrac       float64 // one subfolder holds >= this share of chunks
	LowDensityThreshold float64 // a folder's chunks-per-file ratio below this share of the corpus average
	ExtConcentrationFrac float64 // one extension holds >= this share of chunks
	SparseThreshold     int     // corpus has <= this many chunks total
}

// DefaultThresholds are the values named in the frozen-semantics contract.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DominanceFrac:        0.40,
		LowDensityThreshold:  0.10,
		ExtConcentrationFrac: 0.75,
		SparseThreshold:      1,
	}
}

// FolderStat is the per-immediate-subdirectory breakdown.
type FolderStat struct {
	Path   string `json:"path"`
	Files  int    `json:"files"`
	Chunks int    `json:"chunks"`
	Bytes  int64  `json:"bytes"`
}

// ExtStat is the per-extension breakdown.
type ExtStat struct {
	Ext       string  `json:"ext"`
	Files     int     `json:"files"`
	Bytes     int64   `json:"bytes"`
	ChunkPct  float64 `json:"chunk_pct"`
}

// FileStat names one of the top-5 largest files by byte size.
type FileStat struct {
	RelPath string `json:"rel_path"`
	Bytes   int64  `json:"bytes"`
}

// Digest is the full structural inspection result. All paths are
// mount-relative; this type never carries an absolute filesystem path.
type Digest struct {
	MountID      string       `json:"mount_id"`
	TotalFiles   int          `json:"total_files"`
	TotalChunks  int          `json:"total_chunks"`
	TotalBytes   int64        `json:"total_bytes"`
	Folders      []FolderStat `json:"folders"`
	Extensions   []ExtStat    `json:"extensions"`
	TopFiles     []FileStat   `json:"top_files"`
	Observations []string     `json:"observations"`
	Thresholds   Thresholds   `json:"thresholds"`
	AutoMounted  bool         `json:"auto_mounted"`
	Synced       bool         `json:"synced"`
}

// Inspect auto-mounts path if needed, runs the staleness pre-check (or
// forces/skips a sync per mode), then builds a Digest from the mount's
// corpus_hashes rows.
func Inspect(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *ingest.Registry, path string, mode SyncMode, thresholds Thresholds) (*Digest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	probeID, err := mount.IDForPath(abs)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	_, lookupErr := store.GetMount(ctx, probeID)
	if lookupErr != nil && !sqlite.IsNotFound(lookupErr) {
		return nil, fmt.Errorf("inspect: %w", lookupErr)
	}
	autoMounted := lookupErr != nil

	m, err := mount.EnsureRegistered(ctx, store, abs)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	synced := false
	switch mode {
	case SyncAlways:
		if _, err := mount.Sync(ctx, store, ev, reg, m.ID); err != nil {
			return nil, fmt.Errorf("inspect: sync: %w", err)
		}
		synced = true
	case SyncNever:
		// digest whatever is already stored
	default: // SyncAuto, and the zero value
		stale, err := isStale(ctx, store, m)
		if err != nil {
			return nil, fmt.Errorf("inspect: staleness check: %w", err)
		}
		if stale {
			if _, err := mount.Sync(ctx, store, ev, reg, m.ID); err != nil {
				return nil, fmt.Errorf("inspect: sync: %w", err)
			}
			synced = true
		}
	}

	hashes, err := store.ListCorpusHashesForMount(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	d := build(m.ID, hashes, thresholds)
	d.AutoMounted = autoMounted
	d.Synced = synced
	return d, nil
}

// isStale compares the mount's stored inventory triples (rel_path, size,
// mtime) against the current filesystem state without reading any file
// content. Any new, changed, or orphaned file counts as drift.
func isStale(ctx context.Context, store *sqlite.Store, m *types.Mount) (bool, error) {
	existing, err := store.ListCorpusHashesForMount(ctx, m.ID)
	if err != nil {
		return false, err
	}
	byRelPath := make(map[string]types.CorpusHash, len(existing))
	for _, ch := range existing {
		if !ch.Archived {
			byRelPath[ch.RelPath] = ch
		}
	}

	discovered, err := ingest.Discover([]string{m.Path}, m.IgnorePatterns)
	if err != nil {
		return false, err
	}

	seen := make(map[string]bool, len(discovered))
	for _, abs := range discovered {
		rel, err := filepath.Rel(m.Path, abs)
		if err != nil {
			rel = abs
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		prior, ok := byRelPath[rel]
		if !ok {
			return true, nil
		}
		info, err := os.Stat(abs)
		if err != nil {
			return true, nil
		}
		if prior.SizeBytes != info.Size() || prior.MtimeEpoch != info.ModTime().Unix() {
			return true, nil
		}
	}

	for rel := range byRelPath {
		if !seen[rel] {
			return true, nil
		}
	}
	return false, nil
}

func build(mountID string, hashes []types.CorpusHash, th Thresholds) *Digest {
	d := &Digest{MountID: mountID, Thresholds: th}

	folderIdx := make(map[string]*FolderStat)
	extIdx := make(map[string]*ExtStat)

	for _, ch := range hashes {
		if ch.Archived {
			continue
		}
		chunks := len(ch.ItemIDs)
		d.TotalFiles++
		d.TotalChunks += chunks
		d.TotalBytes += ch.SizeBytes

		folder := topFolder(ch.RelPath)
		fs, ok := folderIdx[folder]
		if !ok {
			fs = &FolderStat{Path: folder}
			folderIdx[folder] = fs
		}
		fs.Files++
		fs.Chunks += chunks
		fs.Bytes += ch.SizeBytes

		ext := ch.Ext
		if ext == "" {
			ext = "(none)"
		}
		es, ok := extIdx[ext]
		if !ok {
			es = &ExtStat{Ext: ext}
			extIdx[ext] = es
		}
		es.Files++
		es.Bytes += ch.SizeBytes

		d.TopFiles = append(d.TopFiles, FileStat{RelPath: ch.RelPath, Bytes: ch.SizeBytes})
	}

	for _, fs := range folderIdx {
		d.Folders = append(d.Folders, *fs)
	}
	sort.Slice(d.Folders, func(i, j int) bool { return d.Folders[i].Path < d.Folders[j].Path })

	for _, es := range extIdx {
		if d.TotalChunks > 0 {
			es.ChunkPct = float64(extChunks(hashes, es.Ext)) / float64(d.TotalChunks)
		}
		d.Extensions = append(d.Extensions, *es)
	}
	sort.Slice(d.Extensions, func(i, j int) bool { return d.Extensions[i].Ext < d.Extensions[j].Ext })

	sort.Slice(d.TopFiles, func(i, j int) bool { return d.TopFiles[i].Bytes > d.TopFiles[j].Bytes })
	if len(d.TopFiles) > 5 {
		d.TopFiles = d.TopFiles[:5]
	}

	d.Observations = observe(d, th)
	return d
}

func extChunks(hashes []types.CorpusHash, ext string) int {
	n := 0
	for _, ch := range hashes {
		if ch.Archived {
			continue
		}
		e := ch.Ext
		if e == "" {
			e = "(none)"
		}
		if e == ext {
			n += len(ch.ItemIDs)
		}
	}
	return n
}

func topFolder(relPath string) string {
	parts := strings.SplitN(filepath.ToSlash(relPath), "/", 2)
	if len(parts) < 2 {
		return "."
	}
	return parts[0]
}

func observe(d *Digest, th Thresholds) []string {
	var out []string

	if d.TotalChunks <= th.SparseThreshold {
		out = append(out, fmt.Sprintf("corpus is sparse: %d total chunk(s) across %d file(s)", d.TotalChunks, d.TotalFiles))
	}

	if d.TotalChunks > 0 && d.TotalFiles > 0 {
		globalDensity := float64(d.TotalChunks) / float64(d.TotalFiles)
		for _, fs := range d.Folders {
			if fs.Chunks >= int(th.DominanceFrac*float64(d.TotalChunks)) && d.TotalChunks > 0 &&
				float64(fs.Chunks)/float64(d.TotalChunks) >= th.DominanceFrac {
				out = append(out, fmt.Sprintf("folder %q holds %.0f%% of all chunks (%d/%d)",
					fs.Path, 100*float64(fs.Chunks)/float64(d.TotalChunks), fs.Chunks, d.TotalChunks))
			}
			if fs.Files > 0 {
				localDensity := float64(fs.Chunks) / float64(fs.Files)
				if localDensity < th.LowDensityThreshold*globalDensity {
					out = append(out, fmt.Sprintf("folder %q has low chunk density (%.2f chunks/file vs corpus average %.2f)",
						fs.Path, localDensity, globalDensity))
				}
			}
		}
	}

	for _, es := range d.Extensions {
		if es.ChunkPct >= th.ExtConcentrationFrac {
			out = append(out, fmt.Sprintf("extension %q holds %.0f%% of all chunks", es.Ext, 100*es.ChunkPct))
		}
	}

	sort.Strings(out)
	return out
}

// Render formats d as a token-budgeted injection block suitable for
// appending to an LLM prompt.
func Render(d *Digest, budgetTokens int) string {
	lines := []string{
		fmt.Sprintf("mount=%s files=%d chunks=%d bytes=%d auto_mounted=%t synced=%t",
			d.MountID, d.TotalFiles, d.TotalChunks, d.TotalBytes, d.AutoMounted, d.Synced),
	}
	for _, fs := range d.Folders {
		lines = append(lines, fmt.Sprintf("folder %s: %d files, %d chunks, %d bytes", fs.Path, fs.Files, fs.Chunks, fs.Bytes))
	}
	for _, es := range d.Extensions {
		lines = append(lines, fmt.Sprintf("ext %s: %d files, %d bytes, %.0f%% of chunks", es.Ext, es.Files, es.Bytes, 100*es.ChunkPct))
	}
	for _, f := range d.TopFiles {
		lines = append(lines, fmt.Sprintf("largest: %s (%d bytes)", f.RelPath, f.Bytes))
	}
	for _, o := range d.Observations {
		lines = append(lines, "observation: "+o)
	}
	return injection.BuildText(lines, budgetTokens)
}
