package discovery

import (
	"os"
	"path/filepath"
)

// OSFS is the production FS: a thin wrapper over os.ReadFile plus a
// doublestar-aware Glob that also descends into nested fragment
// directories (`fragments/**/*.yaml`), not just the flat top level
// filepath.Glob supports.
type OSFS struct{}

// Glob expands pattern, falling back to a recursive doublestar walk
// when the pattern's directory does not exist flat (supporting nested
// fragments/**/*.yaml trees without changing callers).
func (OSFS) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(pattern)
	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		return matches, nil
	}

	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		seen[m] = true
	}

	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		if matchesFragmentTree(dir, path) && !seen[path] {
			matches = append(matches, path)
			seen[path] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// ReadFile reads a discovered workflow or fragment file.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
