// Package collyfetch implements crawler.Fetcher over a gocolly collector.
// It exists as a drop-in alternative to the plain HTTP fetcher and is
// selected via the crawl.fetcher configuration key.
package collyfetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ragops/handbook-ingest/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher wraps a base collector that is cloned per request, so each fetch
// gets isolated hooks while sharing transport configuration.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	// Synchronous mode is colly's default; Async(false) must not be passed
	// here because colly v2.1.0's Async option ignores its argument and
	// always enables async mode, which breaks Fetch's blocking contract.
	c := colly.NewCollector(colly.IgnoreRobotsTxt())
	// Revisits must be allowed: the retry loop re-fetches the same URL.
	c.AllowURLRevisit = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET through a cloned collector, applying the
// same 200-and-HTML success contract as the plain HTTP fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResult, error) {
	collector := f.baseCollector.Clone()

	var (
		result    crawler.FetchResult
		gotBody   bool
		errStatus int
		fetchErr  error
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		result = crawler.FetchResult{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
			Duration:    time.Since(start),
		}
		gotBody = true
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			errStatus = r.StatusCode
		}
		fetchErr = err
	})

	visitErr, err := f.visit(ctx, collector, rawURL)
	if err != nil {
		return crawler.FetchResult{}, err
	}
	if fetchErr == nil {
		fetchErr = visitErr
	}

	switch {
	case gotBody && result.StatusCode == http.StatusOK:
		if !strings.Contains(result.ContentType, "text/html") {
			return crawler.FetchResult{StatusCode: result.StatusCode}, fmt.Errorf("%s: %w", result.ContentType, crawler.ErrNotHTML)
		}
		return result, nil
	case errStatus != 0 && errStatus != http.StatusOK:
		return crawler.FetchResult{StatusCode: errStatus}, &crawler.BadStatusError{Code: errStatus}
	case gotBody:
		return crawler.FetchResult{StatusCode: result.StatusCode}, &crawler.BadStatusError{Code: result.StatusCode}
	default:
		if fetchErr == nil {
			fetchErr = fmt.Errorf("no response received")
		}
		return crawler.FetchResult{}, fmt.Errorf("colly fetch %s: %w", rawURL, fetchErr)
	}
}

// visit runs the collector, returning early if the context ends. When the
// context wins the race the fetch itself runs to completion in the
// background and its result is discarded.
func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, rawURL string) (visitErr error, fatal error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		// Visit errors for non-2xx responses too; those are surfaced via
		// the OnError hook so the caller can classify them by status.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
		}
		return err, nil
	}
}
