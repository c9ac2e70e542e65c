// Package pages implements the local filesystem store for raw fetched HTML.
package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes page content into a flat directory, one write-once file per
// successfully fetched URL.
type Store struct {
	dir string
}

// New validates the target directory, creating it if needed, and verifies it
// is writable before any crawling starts.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("pages directory is required")
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create pages dir: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat pages dir: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("pages path %s is not a directory", dir)
	}

	probe := filepath.Join(dir, ".writable_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return nil, fmt.Errorf("pages dir is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("remove writable probe: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under filename and returns the full path. Filenames are
// derived from URLs upstream; the traversal check guards against a crafted
// URL escaping the store directory.
func (s *Store) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save canceled: %w", err)
	}
	if strings.TrimSpace(filename) == "" {
		return "", fmt.Errorf("filename is required")
	}

	full := filepath.Join(s.dir, filename)
	cleanBase := filepath.Clean(s.dir)
	if !strings.HasPrefix(filepath.Clean(full), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes pages dir", filename)
	}

	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", fmt.Errorf("write page %s: %w", full, err)
	}
	return full, nil
}
