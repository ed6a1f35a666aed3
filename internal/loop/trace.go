package loop

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/steveyegge/memctl/internal/recall"
)

// WriteTrace appends result's trace records as JSONL to path, one
// object per line, creating the file if necessary.
func WriteTrace(path string, trace []TraceRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range trace {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write trace: %w", err)
		}
	}
	return nil
}

// ReadTrace loads a JSONL trace file back into a slice of records.
func ReadTrace(path string) ([]TraceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	defer f.Close()

	var out []TraceRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec TraceRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return out, nil
}

// ReplayTrace reproduces a recorded loop run without invoking an LLM: it
// re-issues every recorded recall query against backend/mounts and
// asserts the resulting item id set matches what was recorded, failing
// fast the first time recall and history disagree (the store has
// drifted since the trace was captured).
func ReplayTrace(ctx context.Context, backend recall.Backend, mounts recall.MountFilter, scope, mountID string, trace []TraceRecord) error {
	for _, rec := range trace {
		if rec.Action != "recall" || rec.Query == "" {
			continue
		}
		matches, _, err := recall.Search(ctx, backend, mounts, rec.Query, recall.Options{Scope: scope, MountID: mountID})
		if err != nil {
			return fmt.Errorf("replay trace: iteration %d: recall: %w", rec.Iteration, err)
		}

		got := make([]string, 0, len(matches))
		for _, m := range matches {
			got = append(got, m.ID)
		}
		sort.Strings(got)

		want := append([]string(nil), rec.NewItemIDs...)
		sort.Strings(want)

		if !containsAll(got, want) {
			return fmt.Errorf("replay trace: iteration %d: recall for %q no longer yields recorded item ids %v (got %v)",
				rec.Iteration, rec.Query, want, got)
		}
	}
	return nil
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}
