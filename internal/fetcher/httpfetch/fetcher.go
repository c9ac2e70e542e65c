// Package httpfetch implements crawler.Fetcher with a plain net/http client.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ragops/handbook-ingest/internal/crawler"
)

// Config controls client behavior. MaxConns should match the crawl
// concurrency so the connection pool is sized to the worker count.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxConns  int
}

// Fetcher performs timed HTTP GETs through a shared client. The client and
// its transport carry only configuration and are safe for concurrent use by
// every worker.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// New builds a Fetcher with a pooled transport.
func New(cfg Config) *Fetcher {
	conns := cfg.MaxConns
	if conns < 1 {
		conns = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        conns,
		MaxIdleConnsPerHost: conns,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Fetcher{
		cfg: cfg,
		// Redirects are followed by default; the per-request timeout comes
		// from the context so cancellation and deadline share one path.
		client: &http.Client{Transport: transport},
	}
}

// Fetch performs one GET attempt. It succeeds only for a 200 response whose
// content type indicates HTML; any other status or content type is a
// non-retryable miss, while timeouts and transport failures surface as
// retryable errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return crawler.FetchResult{StatusCode: resp.StatusCode}, &crawler.BadStatusError{Code: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return crawler.FetchResult{StatusCode: resp.StatusCode}, fmt.Errorf("%s: %w", contentType, crawler.ErrNotHTML)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return crawler.FetchResult{}, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return crawler.FetchResult{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		Duration:    time.Since(start),
	}, nil
}
