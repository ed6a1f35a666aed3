package mount

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/steveyegge/memctl/internal/storage/sqlite"
	"github.com/steveyegge/memctl/internal/types"
)

// Register adds a new mount rooted at path, deriving a stable id from the
// absolute path's hash so registering the same folder twice yields the
// same mount id (idempotent registration).
func Register(ctx context.Context, store *sqlite.Store, path, displayName string, ignorePatterns []string) (*types.Mount, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("mount register: %w", err)
	}
	if displayName == "" {
		displayName = filepath.Base(abs)
	}

	m := types.Mount{
		ID:             mountID(abs),
		Path:           abs,
		DisplayName:    displayName,
		IgnorePatterns: ignorePatterns,
	}
	if err := store.UpsertMount(ctx, m); err != nil {
		return nil, fmt.Errorf("mount register: %w", err)
	}
	return &m, nil
}

// EnsureRegistered auto-mounts path if it has no existing registration,
// matching sync/inspect's "auto-mount happens transparently" behavior.
func EnsureRegistered(ctx context.Context, store *sqlite.Store, path string) (*types.Mount, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("mount ensure: %w", err)
	}
	id := mountID(abs)
	if m, err := store.GetMount(ctx, id); err == nil {
		return m, nil
	} else if !sqlite.IsNotFound(err) {
		return nil, fmt.Errorf("mount ensure: %w", err)
	}
	return Register(ctx, store, abs, "", nil)
}

func mountID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return "mnt_" + hex.EncodeToString(sum[:8])
}

// IDForPath computes the deterministic mount id for path without
// registering it, letting callers check for an existing registration
// before deciding whether auto-mount will occur.
func IDForPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("mount id for path: %w", err)
	}
	return mountID(abs), nil
}
