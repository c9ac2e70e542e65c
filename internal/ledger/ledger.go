// Package ledger implements the durable, append-only crawl manifest. One
// JSON record per line; the file is the source of truth for resumability.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ragops/handbook-ingest/internal/crawler"
)

// Writer appends records to the manifest file. A single Writer owns the file
// handle for the lifetime of a session; the lock guarantees each line lands
// complete, never interleaved with a concurrent worker's record.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open creates the manifest's parent directory if needed and opens the file
// for appending.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	return &Writer{f: f, path: path}, nil
}

// Path returns the manifest file location.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one record as a single JSON line. Errors here are fatal to
// the run: a manifest that silently loses records cannot be resumed safely.
func (w *Writer) Append(rec crawler.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal manifest record: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("append manifest record: %w", err)
	}
	return nil
}

// Close syncs and closes the manifest file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return nil
}

// LoadURLs reads every URL recorded in a prior session's manifest. A missing
// file yields an empty set; malformed lines are skipped rather than failing
// the load, so a partially corrupt manifest still resumes with whatever
// history was recoverable.
func LoadURLs(path string) (map[string]struct{}, error) {
	urls := make(map[string]struct{})
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return urls, nil
		}
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec crawler.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.URL != "" {
			urls[rec.URL] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest %s: %w", path, err)
	}
	return urls, nil
}
