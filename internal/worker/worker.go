// Package worker implements the fetch pipeline executed for each scheduled
// URL: politeness pause, retried fetch, page persistence, ledger append, and
// link discovery.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/crawler"
	"github.com/ragops/handbook-ingest/internal/progress"
)

// Config controls Worker behavior.
type Config struct {
	// Retries is the number of additional attempts after the first fetch.
	Retries int
	// Delay is the politeness pause applied before every fetch.
	Delay  time.Duration
	Jitter time.Duration
	// Backoff spaces out retry attempts for transient failures.
	Backoff crawler.BackoffPolicy
}

// Worker consumes scheduled URLs and executes the fetch pipeline. Several
// workers share the same queues and frontier; each URL produces exactly one
// ledger record.
type Worker struct {
	work       *crawler.URLQueue
	discovered *crawler.URLQueue
	frontier   *crawler.Frontier
	fetcher    crawler.Fetcher
	ledger     crawler.Ledger
	pages      crawler.PageStore
	clock      crawler.Clock
	scope      crawler.Scope
	pending    *sync.WaitGroup
	emitter    progress.Emitter
	onFatal    func(error)
	runID      uuid.UUID
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	work *crawler.URLQueue,
	discovered *crawler.URLQueue,
	frontier *crawler.Frontier,
	fetcher crawler.Fetcher,
	ledger crawler.Ledger,
	pages crawler.PageStore,
	clock crawler.Clock,
	scope crawler.Scope,
	pending *sync.WaitGroup,
	emitter progress.Emitter,
	onFatal func(error),
	runID uuid.UUID,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if onFatal == nil {
		onFatal = func(error) {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		work:       work,
		discovered: discovered,
		frontier:   frontier,
		fetcher:    fetcher,
		ledger:     ledger,
		pages:      pages,
		clock:      clock,
		scope:      scope,
		pending:    pending,
		emitter:    emitter,
		onFatal:    onFatal,
		runID:      runID,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming scheduled URLs until the context finishes. Every
// dequeued URL is marked done on the pending group regardless of outcome.
func (w *Worker) Run(ctx context.Context) {
	for {
		url, err := w.work.Dequeue(ctx)
		if err != nil {
			return
		}
		w.process(ctx, url)
		w.pending.Done()
	}
}

// process runs the full pipeline for one URL and appends exactly one ledger
// record for it.
func (w *Worker) process(ctx context.Context, url string) {
	crawler.Pause(ctx, w.cfg.Delay, w.cfg.Jitter)
	if ctx.Err() != nil {
		return
	}

	section := crawler.SectionOf(url)
	result, err := w.fetchWithRetries(ctx, url)
	fetchedAt := w.clock.Now()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("fetch failed",
			zap.String("url", url),
			zap.Error(err),
		)
		w.append(crawler.Record{
			URL:       url,
			Status:    crawler.StatusFailed,
			FetchedAt: fetchedAt,
			Section:   section,
		})
		w.emit(progress.Event{
			Stage:   progress.StageFetchDone,
			URL:     url,
			Section: section,
			Status:  string(crawler.StatusFailed),
			TS:      fetchedAt,
		})
		return
	}

	path, err := w.pages.Save(ctx, crawler.FilenameFor(url), result.Body)
	if err != nil {
		// Page files and ledger must stay consistent; a failed write means
		// the local disk is no longer trustworthy.
		w.onFatal(err)
		return
	}

	w.append(crawler.Record{
		URL:       url,
		Status:    crawler.StatusOK,
		Path:      path,
		FetchedAt: fetchedAt,
		Section:   section,
		Bytes:     int64(len(result.Body)),
	})

	w.discover(ctx, url, result.Body)

	w.logger.Info("page saved",
		zap.String("url", url),
		zap.String("path", path),
		zap.Int("bytes", len(result.Body)),
		zap.Duration("dur", result.Duration),
	)
	w.emit(progress.Event{
		Stage:   progress.StageFetchDone,
		URL:     url,
		Section: section,
		Status:  string(crawler.StatusOK),
		Bytes:   int64(len(result.Body)),
		Dur:     result.Duration,
		TS:      fetchedAt,
	})
}

// fetchWithRetries attempts the fetch up to Retries+1 times, backing off
// between attempts. Errors classified as permanent end the loop immediately.
func (w *Worker) fetchWithRetries(ctx context.Context, url string) (crawler.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.Retries; attempt++ {
		result, err := w.fetcher.Fetch(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !crawler.Retryable(err) {
			break
		}
		if attempt == w.cfg.Retries {
			break
		}
		w.logger.Debug("retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		w.cfg.Backoff.Sleep(ctx, attempt)
		if ctx.Err() != nil {
			return crawler.FetchResult{}, ctx.Err()
		}
	}
	return crawler.FetchResult{}, lastErr
}

// discover extracts in-scope links from the page body and hands newly
// admitted URLs to the scheduler.
func (w *Worker) discover(ctx context.Context, sourceURL string, body []byte) {
	for _, link := range crawler.ExtractLinks(w.scope, sourceURL, body) {
		if !w.frontier.TryAdmit(link) {
			continue
		}
		if err := w.discovered.Enqueue(ctx, link); err != nil {
			return
		}
	}
}

// append writes a ledger record. Append errors end the run; a partial ledger
// that silently loses records would corrupt every later resume.
func (w *Worker) append(rec crawler.Record) {
	if err := w.ledger.Append(rec); err != nil {
		w.logger.Error("ledger append failed",
			zap.String("url", rec.URL),
			zap.Error(err),
		)
		w.onFatal(err)
	}
}

func (w *Worker) emit(evt progress.Event) {
	evt.RunID = w.runID
	w.emitter.Emit(evt)
}
