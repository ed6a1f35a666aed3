// Package mount implements the mount registry and the 3-tier delta sync
// that keeps memory items in step with files on disk.
package mount

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// Tier is which of the 3-tier delta rule's branches a file fell into.
type Tier string

const (
	TierIngested  Tier = "ingested"  // not seen before, or content changed: ingested
	TierSkipped   Tier = "skipped"   // metadata unchanged: skipped without reading
	TierUnchanged Tier = "unchanged" // metadata differed but hash matched: metadata refreshed only
)

// FileSync describes the outcome for one file under a mount.
type FileSync struct {
	RelPath    string
	Tier       Tier
	ItemsAdded int
	Error      error
}

// Result is the aggregate outcome of one Sync call.
type Result struct {
	Files           []FileSync
	OrphansArchived int
}

// Sync enumerates mountID's folder and applies the 3-tier delta rule to
// every discovered file, archiving corpus hash rows (and their items)
// whose source file no longer exists.
func Sync(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *ingest.Registry, mountID string) (*Result, error) {
	m, err := store.GetMount(ctx, mountID)
	if err != nil {
		return nil, fmt.Errorf("sync: get mount: %w", err)
	}

	existing, err := store.ListCorpusHashesForMount(ctx, mountID)
	if err != nil {
		return nil, fmt.Errorf("sync: list corpus hashes: %w", err)
	}
	byRelPath := make(map[string]types.CorpusHash, len(existing))
	for _, ch := range existing {
		byRelPath[ch.RelPath] = ch
	}

	discovered, err := ingest.Discover([]string{m.Path}, m.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("sync: discover: %w", err)
	}

	seen := make(map[string]bool, len(discovered))
	result := &Result{}

	for _, abs := range discovered {
		rel, err := filepath.Rel(m.Path, abs)
		if err != nil {
			rel = abs
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		fs := syncOne(ctx, store, ev, reg, m, abs, rel, byRelPath[rel])
		result.Files = append(result.Files, fs)
	}

	for rel, ch := range byRelPath {
		if seen[rel] || ch.Archived {
			continue
		}
		if err := archiveOrphan(ctx, store, ch); err != nil {
			result.Files = append(result.Files, FileSync{RelPath: rel, Error: fmt.Errorf("archive orphan: %w", err)})
			continue
		}
		result.OrphansArchived++
	}

	return result, nil
}

func syncOne(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *ingest.Registry, m *types.Mount, absPath, relPath string, prior types.CorpusHash) FileSync {
	info, err := os.Stat(absPath)
	if err != nil {
		return FileSync{RelPath: relPath, Error: fmt.Errorf("stat: %w", err)}
	}

	hadPrior := prior.Hash != ""
	if hadPrior && !prior.Archived && prior.SizeBytes == info.Size() && prior.MtimeEpoch == info.ModTime().Unix() {
		return FileSync{RelPath: relPath, Tier: TierSkipped}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return FileSync{RelPath: relPath, Error: fmt.Errorf("read: %w", err)}
	}
	newHash := sha256HexOf(data)

	if hadPrior && !prior.Archived && newHash == prior.Hash {
		prior.SizeBytes = info.Size()
		prior.MtimeEpoch = info.ModTime().Unix()
		if err := store.UpsertCorpusHash(ctx, prior); err != nil {
			return FileSync{RelPath: relPath, Error: fmt.Errorf("refresh metadata: %w", err)}
		}
		return FileSync{RelPath: relPath, Tier: TierUnchanged}
	}

	if hadPrior {
		for _, id := range prior.ItemIDs {
			if err := store.ArchiveItem(ctx, id); err != nil && !sqlite.IsNotFound(err) {
				return FileSync{RelPath: relPath, Error: fmt.Errorf("archive superseded item %s: %w", id, err)}
			}
		}
	}

	ingestResult, err := ingest.Ingest(ctx, store, ev, reg, []string{absPath}, ingest.Options{
		MountID:      m.ID,
		MountPath:    m.Path,
		Full:         true,
		DefaultScope: "",
	})
	if err != nil {
		return FileSync{RelPath: relPath, Error: fmt.Errorf("ingest: %w", err)}
	}
	if len(ingestResult.Errors) > 0 {
		return FileSync{RelPath: relPath, Error: ingestResult.Errors[0]}
	}
	return FileSync{RelPath: relPath, Tier: TierIngested, ItemsAdded: ingestResult.ItemsWritten}
}

func archiveOrphan(ctx context.Context, store *sqlite.Store, ch types.CorpusHash) error {
	for _, id := range ch.ItemIDs {
		if err := store.ArchiveItem(ctx, id); err != nil && !sqlite.IsNotFound(err) {
			return err
		}
	}
	return store.MarkCorpusHashArchived(ctx, ch.Hash, true)
}

func sha256HexOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
