package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/memctl/internal/idgen"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// maxConcurrentFiles bounds how many files are read, extracted, and
// chunked in parallel. Writes still serialize behind the store's own
// mutex, so this only parallelizes the CPU/IO-bound extraction step.
const maxConcurrentFiles = 8

// Options configures one Ingest call.
type Options struct {
	MountID        string
	MountPath      string // mount root; required alongside MountID to store a mount-relative rel_path
	Full           bool   // ignore corpus_hashes, re-ingest every candidate
	IgnorePatterns []string
	DefaultScope   string
}

// FileResult summarizes what happened to one candidate file.
type FileResult struct {
	Path       string
	Skipped    bool
	Error      error
	ItemsAdded int
}

// Result is the aggregate outcome of an Ingest call.
type Result struct {
	Files        []FileResult
	ItemsWritten int
	FilesSkipped int
	Errors       []error
}

// Ingest discovers candidate files under roots, dedups them against the
// corpus hash table, chunks new or changed ones, evaluates each chunk
// through policy, and writes accepted/quarantined items. Re-ingesting an
// unchanged file produces zero new items.
func Ingest(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *Registry, roots []string, opts Options) (*Result, error) {
	paths, err := Discover(roots, opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)

	var mu sync.Mutex
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res := ingestOne(gctx, store, ev, reg, path, opts)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil // per-file errors are recorded on FileResult, not fatal to the batch
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Files: results}
	for _, r := range results {
		switch {
		case r.Error != nil:
			out.Errors = append(out.Errors, fmt.Errorf("%s: %w", r.Path, r.Error))
		case r.Skipped:
			out.FilesSkipped++
		default:
			out.ItemsWritten += r.ItemsAdded
		}
	}
	return out, nil
}

func ingestOne(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *Registry, path string, opts Options) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Error: fmt.Errorf("read: %w", err)}
	}

	hash := sha256Hex(data)
	if !opts.Full {
		if existing, err := store.GetCorpusHash(ctx, hash); err == nil && !existing.Archived {
			return FileResult{Path: path, Skipped: true}
		} else if err != nil && !sqlite.IsNotFound(err) {
			return FileResult{Path: path, Error: fmt.Errorf("corpus hash lookup: %w", err)}
		}
	}

	text, err := reg.Extract(path, data)
	if err != nil {
		return FileResult{Path: path, Error: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileResult{Path: path, Error: fmt.Errorf("stat: %w", err)}
	}

	relPath := path
	if opts.MountID != "" && opts.MountPath != "" {
		if rel, err := filepath.Rel(opts.MountPath, path); err == nil {
			relPath = filepath.ToSlash(rel)
		}
	}
	titleFallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tags := InferTags(relPath)

	chunks := Chunk(text)
	itemIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		item := buildItem(chunk, titleFallback, tags, opts)
		proposal := types.MemoryProposal{
			Title:      item.Title,
			Content:    item.Content,
			Type:       item.Type,
			Tags:       item.Tags,
			Scope:      item.Scope,
			Injectable: true,
			Provenance: item.Provenance,
			WhyStore:   "ingested from " + path,
		}
		verdict := ev.EvaluateProposal(&proposal)
		if verdict.Kind == types.VerdictReject {
			continue
		}
		if _, err := store.WriteItem(ctx, &item, verdict, "ingest: "+path); err != nil {
			return FileResult{Path: path, Error: fmt.Errorf("write item: %w", err)}
		}
		itemIDs = append(itemIDs, item.ID)
	}

	ch := types.CorpusHash{
		Hash:       hash,
		MountID:    opts.MountID,
		RelPath:    relPath,
		Ext:        strings.ToLower(filepath.Ext(path)),
		SizeBytes:  info.Size(),
		MtimeEpoch: info.ModTime().Unix(),
		ItemIDs:    itemIDs,
	}
	if err := store.UpsertCorpusHash(ctx, ch); err != nil {
		return FileResult{Path: path, Error: fmt.Errorf("upsert corpus hash: %w", err)}
	}

	return FileResult{Path: path, ItemsAdded: len(itemIDs)}
}

func buildItem(content, titleFallback string, tags []string, opts Options) types.MemoryItem {
	now := time.Now().UTC()
	title := InferTitle(content, titleFallback)
	return types.MemoryItem{
		ID:          idgen.NewItemID(now, content),
		Title:       title,
		Content:     content,
		ContentHash: sha256Hex([]byte(content)),
		Tier:        types.TierSTM,
		Type:        "fact",
		Tags:        tags,
		Scope:       opts.DefaultScope,
		Injectable:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Provenance:  types.Provenance{SourceKind: "ingest"},
	}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
