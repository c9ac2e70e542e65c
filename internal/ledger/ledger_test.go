package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragops/handbook-ingest/internal/crawler"
)

// TestLedgerRoundTrip writes records and loads them back through LoadURLs.
func TestLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "manifest.jsonl")
	w, err := Open(path)
	require.NoError(t, err)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.Append(crawler.Record{
		URL:       "https://about.gitlab.com/handbook/finance/",
		Status:    crawler.StatusOK,
		Path:      "data/raw/pages/finance-abc.html",
		FetchedAt: now,
		Section:   "finance",
		Bytes:     2048,
	}))
	require.NoError(t, w.Append(crawler.Record{
		URL:       "https://about.gitlab.com/handbook/legal/",
		Status:    crawler.StatusFailed,
		FetchedAt: now,
		Section:   "legal",
	}))
	require.NoError(t, w.Close())

	urls, err := LoadURLs(path)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "https://about.gitlab.com/handbook/finance/")
	assert.Contains(t, urls, "https://about.gitlab.com/handbook/legal/")
}

// TestLedgerFailedRecordOmitsPath pins the wire shape: failed records carry
// no path or byte count.
func TestLedgerFailedRecordOmitsPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(crawler.Record{
		URL:       "https://about.gitlab.com/handbook/legal/",
		Status:    crawler.StatusFailed,
		FetchedAt: time.Now().UTC(),
		Section:   "legal",
	}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"path"`)
	assert.NotContains(t, string(raw), `"bytes"`)
	assert.Contains(t, string(raw), `"status":"failed"`)
}

// TestLoadURLsMissingFile asserts a first run starts with empty history.
func TestLoadURLsMissingFile(t *testing.T) {
	t.Parallel()

	urls, err := LoadURLs(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, urls)
}

// TestLoadURLsSkipsMalformedLines asserts corrupt lines are dropped while
// intact history is kept.
func TestLoadURLsSkipsMalformedLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	content := `{"url":"https://about.gitlab.com/handbook/a/","status":"ok","fetched_at":"2026-08-30T12:00:00Z","section":"handbook"}
{not json at all
{"url":"","status":"ok","fetched_at":"2026-08-30T12:00:00Z","section":"handbook"}

{"url":"https://about.gitlab.com/handbook/b/","status":"failed","fetched_at":"2026-08-30T12:01:00Z","section":"handbook"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	urls, err := LoadURLs(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{
		"https://about.gitlab.com/handbook/a/": {},
		"https://about.gitlab.com/handbook/b/": {},
	}, urls)
}

// TestLedgerConcurrentAppends asserts every record from concurrent writers
// lands as a complete, parseable line.
func TestLedgerConcurrentAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	w, err := Open(path)
	require.NoError(t, err)

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := w.Append(crawler.Record{
					URL:       fmt.Sprintf("https://about.gitlab.com/handbook/w%d-p%d/", g, i),
					Status:    crawler.StatusOK,
					FetchedAt: time.Now().UTC(),
					Section:   "handbook",
				})
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	urls, err := LoadURLs(path)
	require.NoError(t, err)
	assert.Len(t, urls, writers*perWriter)
}

// TestLedgerResumeAppendsAcrossSessions asserts a second Writer extends the
// file instead of truncating history.
func TestLedgerResumeAppendsAcrossSessions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")

	w1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w1.Append(crawler.Record{
		URL: "https://about.gitlab.com/handbook/a/", Status: crawler.StatusOK,
		FetchedAt: time.Now().UTC(), Section: "handbook",
	}))
	require.NoError(t, w1.Close())

	w2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w2.Append(crawler.Record{
		URL: "https://about.gitlab.com/handbook/b/", Status: crawler.StatusOK,
		FetchedAt: time.Now().UTC(), Section: "handbook",
	}))
	require.NoError(t, w2.Close())

	urls, err := LoadURLs(path)
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}
