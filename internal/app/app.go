// Package app initializes and holds the long-lived services for a crawl
// session, acting as the dependency injection container between the CLI and
// the crawl engine.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/api"
	"github.com/ragops/handbook-ingest/internal/config"
	"github.com/ragops/handbook-ingest/internal/crawler"
	collyfetch "github.com/ragops/handbook-ingest/internal/fetcher/colly"
	"github.com/ragops/handbook-ingest/internal/fetcher/httpfetch"
	"github.com/ragops/handbook-ingest/internal/ledger"
	"github.com/ragops/handbook-ingest/internal/progress"
	"github.com/ragops/handbook-ingest/internal/progress/sinks"
	"github.com/ragops/handbook-ingest/internal/scheduler"
	"github.com/ragops/handbook-ingest/internal/storage/pages"
	"github.com/ragops/handbook-ingest/internal/worker"
)

// App holds the shared services for one crawl session: the ledger writer,
// page store, progress hub, and optional status server. It is initialized
// once per run and torn down by Close.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  crawler.Clock

	scope crawler.Scope
	seeds []string

	ledger   *ledger.Writer
	pages    *pages.Store
	resumed  map[string]struct{}
	hub      *progress.Hub
	snapshot *sinks.SnapshotSink
	server   *api.Server
	runID    uuid.UUID
}

// NewApp validates the configuration, prepares the output tree, and
// constructs every service the crawl needs. It fails fast: seeds are
// checked against the allowed scope before anything touches the disk.
func NewApp(cfg config.Config, clock crawler.Clock, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scope := crawler.Scope{Host: cfg.Crawl.AllowedHost, Prefix: cfg.Crawl.AllowedPrefix}

	seeds := normalizeSeeds(scope, cfg.Crawl.Seeds)
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds inside %s%s after normalization", scope.Host, scope.Prefix)
	}

	manifestPath := filepath.Join(cfg.Crawl.OutDir, "manifest.jsonl")
	resumed, err := ledger.LoadURLs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("load ledger history: %w", err)
	}

	ledgerWriter, err := ledger.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	pageStore, err := pages.New(filepath.Join(cfg.Crawl.OutDir, "pages"))
	if err != nil {
		closeErr := ledgerWriter.Close()
		if closeErr != nil {
			logger.Warn("close ledger after failed init", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("open page store: %w", err)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		scope:   scope,
		seeds:   seeds,
		ledger:  ledgerWriter,
		pages:   pageStore,
		resumed: resumed,
		runID:   uuid.New(),
	}
	if err := a.initProgress(); err != nil {
		closeErr := ledgerWriter.Close()
		if closeErr != nil {
			logger.Warn("close ledger after failed init", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

// initProgress wires the event hub, its sinks, and the optional status
// server sharing the Prometheus registry.
func (a *App) initProgress() error {
	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	a.snapshot = sinks.NewSnapshotSink()
	a.hub = progress.NewHub(a.logger,
		sinks.NewLogSink(a.logger),
		promSink,
		a.snapshot,
	)
	if a.cfg.Status.Enabled {
		a.server = api.NewServer(a.cfg.Status.Addr, a.snapshot, registry, a.logger)
	}
	return nil
}

// RunID identifies this session in logs and progress events.
func (a *App) RunID() uuid.UUID {
	return a.runID
}

// Run executes one crawl session to completion. A worker reporting a fatal
// storage error cancels the whole run; scheduled URLs then finish or abort
// with the context.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatalOnce sync.Once
	var fatalErr error
	onFatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			a.logger.Error("aborting crawl", zap.Error(err))
			cancel()
		})
	}

	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				a.logger.Error("status server failed", zap.Error(err))
			}
		}()
	}

	budget := a.cfg.Crawl.MaxPages
	frontier := crawler.NewFrontier(budget)
	frontier.Seed(a.resumed)

	work := crawler.NewURLQueue(budget)
	discovered := crawler.NewURLQueue(budget)
	fetcher := a.buildFetcher()

	var pending sync.WaitGroup
	workerCfg := worker.Config{
		Retries: a.cfg.Crawl.Retries,
		Delay:   a.cfg.Crawl.Delay(),
		Jitter:  a.cfg.Crawl.Jitter(),
		Backoff: crawler.NewBackoffPolicy(a.cfg.Crawl.Jitter()),
	}
	workers := make([]*worker.Worker, a.cfg.Crawl.Concurrency)
	for i := range workers {
		workers[i] = worker.New(
			work, discovered, frontier,
			fetcher, a.ledger, a.pages,
			a.clock, a.scope, &pending,
			a.hub, onFatal, a.runID,
			workerCfg, a.logger,
		)
	}

	sched := scheduler.New(
		work, discovered, frontier,
		a.resumed, workers, &pending,
		a.clock, a.hub, a.runID,
		scheduler.Config{Budget: budget, Seeds: a.seeds},
		a.logger,
	)

	err := sched.Run(runCtx)
	if fatalErr != nil {
		return fmt.Errorf("crawl aborted: %w", fatalErr)
	}
	if err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}

// Close flushes progress, stops the status server, and syncs the ledger.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			firstErr = err
		}
		cancel()
	}
	if err := a.hub.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.ledger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// buildFetcher selects the fetch implementation named in the configuration.
func (a *App) buildFetcher() crawler.Fetcher {
	switch a.cfg.Crawl.Fetcher {
	case "colly":
		return collyfetch.New(collyfetch.Config{
			UserAgent: a.cfg.Crawl.UserAgent,
			Timeout:   a.cfg.Crawl.Timeout(),
		})
	default:
		return httpfetch.New(httpfetch.Config{
			UserAgent: a.cfg.Crawl.UserAgent,
			Timeout:   a.cfg.Crawl.Timeout(),
			MaxConns:  a.cfg.Crawl.Concurrency,
		})
	}
}

// normalizeSeeds maps raw seed URLs through the scope filter, dropping
// out-of-scope entries and duplicates while keeping order.
func normalizeSeeds(scope crawler.Scope, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		u := scope.Normalize(s)
		if !scope.IsAllowed(u) {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
