package mcpserver

import (
	"errors"
	"os"
	"path/filepath"
)

// evalSymlinksBestEffort resolves symlinks in path, falling back to the
// path itself (walking up to the nearest existing ancestor) when the
// path — or a database file not yet created — doesn't exist yet.
func evalSymlinksBestEffort(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)
	if dir == path {
		return path, nil
	}
	resolvedDir, err := evalSymlinksBestEffort(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}
