package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragops/handbook-ingest/internal/crawler"
)

// TestFetchSuccess asserts a 200 HTML response comes back with its body and
// metadata.
func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>handbook</body></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "test-agent/1.0", Timeout: 5 * time.Second, MaxConns: 2})
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL, res.URL)
	assert.Contains(t, res.ContentType, "text/html")
	assert.Contains(t, string(res.Body), "handbook")
	assert.Greater(t, res.Duration, time.Duration(0))
}

// TestFetchBadStatus asserts non-200 responses surface as permanent misses.
func TestFetchBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var bad *crawler.BadStatusError
	require.True(t, errors.As(err, &bad))
	assert.Equal(t, http.StatusNotFound, bad.Code)
	assert.False(t, crawler.Retryable(err))
}

// TestFetchNonHTML asserts a 200 with the wrong content type is a permanent
// miss, not a retry candidate.
func TestFetchNonHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"html"}`))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, crawler.ErrNotHTML))
	assert.False(t, crawler.Retryable(err))
}

// TestFetchTimeout asserts a stalled server yields a retryable error.
func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	f := New(Config{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, crawler.Retryable(err))
}

// TestFetchFollowsRedirects asserts redirect chains resolve to the final
// page.
func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>moved here</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	res, err := f.Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Contains(t, string(res.Body), "moved here")
}
