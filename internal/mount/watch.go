package mount

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/policy"
	"github.com/steveyegge/memctl/internal/storage/sqlite"
)

// debounceDelay coalesces bursts of filesystem events (editors often emit
// several writes per save) into a single sync.
const debounceDelay = 500 * time.Millisecond

// Watch watches mountID's folder and triggers a Sync on every debounced
// write/create/rename/remove event until ctx is cancelled. onSync, if
// non-nil, is called after each triggered sync with its result or error.
func Watch(ctx context.Context, store *sqlite.Store, ev *policy.Evaluator, reg *ingest.Registry, mountID string, onSync func(*Result, error)) error {
	m, err := store.GetMount(ctx, mountID)
	if err != nil {
		return fmt.Errorf("mount watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mount watch: new watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(m.Path); err != nil {
		return fmt.Errorf("mount watch: add %s: %w", m.Path, err)
	}

	var debounce *time.Timer
	triggerSync := func() {
		result, err := Sync(ctx, store, ev, reg, mountID)
		if onSync != nil {
			onSync(result, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, triggerSync)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onSync != nil {
				onSync(nil, fmt.Errorf("mount watch: %w", err))
			}
		}
	}
}
