// Package exportimport streams memory items to and from JSONL, the only
// machine-portable view of the store: mounts, events, and corpus hashes
// are deliberately left behind as machine-local state.
package exportimport

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/steveyegge/memctl/internal/idgen"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// Filter narrows Export. Zero-value fields are wildcards except
// IncludeArchived, which defaults to excluding archived items.
type Filter struct {
	Tier            types.Tier
	Type            string
	Scope           string
	IncludeArchived bool
}

// Export streams one JSON object per line to w for every item matching
// filter. Only items are exported.
func Export(ctx context.Context, store *sqlite.Store, w io.Writer, filter Filter) (int, error) {
	items, err := store.ListItems(ctx, sqlite.ItemFilter{
		Tier:            filter.Tier,
		Type:            filter.Type,
		Scope:           filter.Scope,
		IncludeArchived: filter.IncludeArchived,
	})
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return 0, fmt.Errorf("export: encode item %s: %w", item.ID, err)
		}
	}
	return len(items), nil
}

// ImportOptions configures Import.
type ImportOptions struct {
	PreserveIDs bool // preserve source ids rather than minting new ones
	DryRun      bool // count without writing
}

// LineOutcome is what happened to one input line.
type LineOutcome string

const (
	OutcomeImported    LineOutcome = "imported"
	OutcomeQuarantined LineOutcome = "quarantined"
	OutcomeRejected    LineOutcome = "rejected"
	OutcomeDuplicate   LineOutcome = "duplicate"
	OutcomeError       LineOutcome = "error"
)

// LineResult records the outcome of importing one JSONL line.
type LineResult struct {
	Line    int
	ItemID  string
	Outcome LineOutcome
	Detail  string
}

// Result is the aggregate outcome of an Import call.
type Result struct {
	Lines     []LineResult
	Imported  int
	Quarantined int
	Rejected  int
	Duplicates int
	Errored   int
}

// Import reads JSONL from r, evaluating each candidate item through
// policy (never bypassed) and deduping by content hash against the
// target store. Dry-run counts without writing. Exit code semantics
// (non-zero when zero items imported and at least one errored) are the
// caller's responsibility — Import just reports the outcome.
func Import(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, r io.Reader, opts ImportOptions) (*Result, error) {
	result := &Result{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var item types.MemoryItem
		if err := json.Unmarshal(raw, &item); err != nil {
			result.Lines = append(result.Lines, LineResult{Line: lineNo, Outcome: OutcomeError, Detail: err.Error()})
			result.Errored++
			continue
		}

		sum := sha256.Sum256([]byte(item.Content))
		item.ContentHash = hex.EncodeToString(sum[:])

		if !opts.PreserveIDs || item.ID == "" {
			item.ID = idgen.NewItemID(nowUTC(), item.Content)
		}

		dup, err := isDuplicate(ctx, store, item)
		if err != nil {
			result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: OutcomeError, Detail: err.Error()})
			result.Errored++
			continue
		}
		if dup {
			result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: OutcomeDuplicate})
			result.Duplicates++
			continue
		}

		verdict := ev.EvaluateItem(&item)
		if verdict.Kind == types.VerdictReject {
			result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: OutcomeRejected, Detail: verdict.Reason})
			result.Rejected++
			continue
		}

		if opts.DryRun {
			outcome := OutcomeImported
			if verdict.Kind == types.VerdictQuarantine {
				outcome = OutcomeQuarantined
			}
			result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: outcome})
			if outcome == OutcomeQuarantined {
				result.Quarantined++
			} else {
				result.Imported++
			}
			continue
		}

		if item.CreatedAt.IsZero() {
			item.CreatedAt = nowUTC()
		}
		item.UpdatedAt = nowUTC()

		if _, err := store.WriteItem(ctx, &item, verdict, "import"); err != nil {
			result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: OutcomeError, Detail: err.Error()})
			result.Errored++
			continue
		}

		outcome := OutcomeImported
		if verdict.Kind == types.VerdictQuarantine {
			outcome = OutcomeQuarantined
			result.Quarantined++
		} else {
			result.Imported++
		}
		result.Lines = append(result.Lines, LineResult{Line: lineNo, ItemID: item.ID, Outcome: outcome})
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("import: scan: %w", err)
	}

	return result, nil
}

// isDuplicate checks the content-hash/scope invariant the same way
// WriteItem's own checkContentHashInvariant does, but as a read-only
// pre-check so Import can report "duplicate" instead of an IntegrityError.
func isDuplicate(ctx context.Context, store *sqlite.Store, item types.MemoryItem) (bool, error) {
	items, err := store.ListItems(ctx, sqlite.ItemFilter{Scope: item.Scope, IncludeArchived: false})
	if err != nil {
		return false, err
	}
	for _, existing := range items {
		if existing.ContentHash == item.ContentHash && existing.ID != item.ID {
			return true, nil
		}
	}
	return false, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
