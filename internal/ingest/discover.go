package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover expands an explicit file list, directory tree, or glob pattern
// into a deduplicated, sorted list of regular file paths. Directories are
// walked recursively; anything matching an ignore pattern (a filepath.Match
// glob evaluated against the base name) is skipped.
func Discover(roots []string, ignorePatterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, root := range roots {
		info, err := statOrNil(root)
		switch {
		case err != nil:
			return nil, fmt.Errorf("discover: stat %s: %w", root, err)
		case info != nil && info.IsDir():
			if walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if d.IsDir() {
					return nil
				}
				if ignored(d.Name(), ignorePatterns) {
					return nil
				}
				add(path)
				return nil
			}); walkErr != nil {
				return nil, fmt.Errorf("discover: walk %s: %w", root, walkErr)
			}
		case info != nil:
			add(root)
		default:
			matches, globErr := filepath.Glob(root)
			if globErr != nil {
				return nil, fmt.Errorf("discover: glob %s: %w", root, globErr)
			}
			for _, m := range matches {
				if !ignored(filepath.Base(m), ignorePatterns) {
					add(m)
				}
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

func ignored(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

func statOrNil(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}
