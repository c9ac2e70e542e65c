// Package scheduler manages worker fan-out and the admission loop that moves
// discovered URLs onto the work queue until the page budget is spent.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/crawler"
	"github.com/ragops/handbook-ingest/internal/progress"
	"github.com/ragops/handbook-ingest/internal/worker"
)

// pollWait bounds how long the admission loop blocks on an empty discovery
// queue before re-checking its termination conditions.
const pollWait = 500 * time.Millisecond

// heartbeatEvery is the scheduling interval between progress reports.
const heartbeatEvery = 10

// Config controls Scheduler behavior.
type Config struct {
	// Budget caps the number of distinct URLs per session, counting URLs
	// resumed from the ledger.
	Budget int
	// Seeds are normalized in-scope starting URLs.
	Seeds []string
}

// Scheduler owns the crawl run: it seeds the frontier, fans out workers, and
// feeds admitted URLs to them until the budget is exhausted or discovery
// goes quiet.
type Scheduler struct {
	work       *crawler.URLQueue
	discovered *crawler.URLQueue
	frontier   *crawler.Frontier
	resumed    map[string]struct{}
	workers    []*worker.Worker
	pending    *sync.WaitGroup
	clock      crawler.Clock
	emitter    progress.Emitter
	runID      uuid.UUID
	cfg        Config
	logger     *zap.Logger
}

// New creates a Scheduler. The pending group must be the same one handed to
// the workers; resumed holds URLs already recorded in a prior session's
// ledger.
func New(
	work *crawler.URLQueue,
	discovered *crawler.URLQueue,
	frontier *crawler.Frontier,
	resumed map[string]struct{},
	workers []*worker.Worker,
	pending *sync.WaitGroup,
	clock crawler.Clock,
	emitter progress.Emitter,
	runID uuid.UUID,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if resumed == nil {
		resumed = map[string]struct{}{}
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		work:       work,
		discovered: discovered,
		frontier:   frontier,
		resumed:    resumed,
		workers:    workers,
		pending:    pending,
		clock:      clock,
		emitter:    emitter,
		runID:      runID,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes one crawl session and blocks until every scheduled URL has a
// ledger record or the context ends. Workers are stopped before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	started := s.clock.Now()
	s.emit(progress.Event{Stage: progress.StageCrawlStart, TS: started})
	s.logger.Info("crawl started",
		zap.Int("budget", s.cfg.Budget),
		zap.Int("seeds", len(s.cfg.Seeds)),
		zap.Int("resumed", len(s.resumed)),
	)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workerWG sync.WaitGroup
	for _, w := range s.workers {
		workerWG.Add(1)
		go func(wk *worker.Worker) {
			defer workerWG.Done()
			wk.Run(workerCtx)
		}(w)
	}

	scheduled := s.seed(ctx)
	scheduled = s.admitLoop(ctx, scheduled)

	s.waitDrained(ctx)
	stopWorkers()
	workerWG.Wait()

	done := s.clock.Now()
	s.emit(progress.Event{
		Stage:     progress.StageCrawlDone,
		Scheduled: scheduled,
		Seen:      s.frontier.Len(),
		Dur:       done.Sub(started),
		TS:        done,
	})
	s.logger.Info("crawl finished",
		zap.Int("scheduled", scheduled),
		zap.Int("seen", s.frontier.Len()),
		zap.Duration("dur", done.Sub(started)),
	)
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// seed schedules the starting URLs. Seeds already present in a prior ledger
// are skipped; the frontier rejects them and no budget is consumed twice.
func (s *Scheduler) seed(ctx context.Context) int {
	scheduled := 0
	for _, url := range s.cfg.Seeds {
		if _, ok := s.resumed[url]; ok {
			s.logger.Debug("seed already crawled", zap.String("url", url))
			continue
		}
		if !s.frontier.TryAdmit(url) {
			continue
		}
		if !s.schedule(ctx, url) {
			break
		}
		scheduled++
	}
	return scheduled
}

// admitLoop transfers discovered URLs onto the work queue until the budget
// is spent or discovery stays quiet past a poll interval with both queues
// empty. Workers can still be mid-fetch at that point; any links they report
// afterwards stay unscheduled, which a later session picks up via the
// ledger.
func (s *Scheduler) admitLoop(ctx context.Context, scheduled int) int {
	for scheduled < s.cfg.Budget {
		url, ok, err := s.discovered.Poll(ctx, pollWait)
		if err != nil {
			return scheduled
		}
		if !ok {
			if s.discovered.Len() == 0 && s.work.Len() == 0 {
				return scheduled
			}
			continue
		}
		if _, resumed := s.resumed[url]; resumed {
			continue
		}
		if !s.schedule(ctx, url) {
			return scheduled
		}
		scheduled++
		if scheduled%heartbeatEvery == 0 {
			s.heartbeat(scheduled)
		}
	}
	return scheduled
}

// schedule hands one URL to the workers. The pending group is incremented
// before the hand-off so drainage can never miss an in-flight URL.
func (s *Scheduler) schedule(ctx context.Context, url string) bool {
	s.pending.Add(1)
	if err := s.work.Enqueue(ctx, url); err != nil {
		s.pending.Done()
		return false
	}
	return true
}

// waitDrained blocks until every scheduled URL has been processed, or the
// run context is canceled out from under the workers.
func (s *Scheduler) waitDrained(ctx context.Context) {
	drained := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
	}
}

func (s *Scheduler) heartbeat(scheduled int) {
	seen := s.frontier.Len()
	s.logger.Info("crawl progress",
		zap.Int("scheduled", scheduled),
		zap.Int("seen", seen),
	)
	s.emit(progress.Event{
		Stage:     progress.StageCrawlHB,
		Scheduled: scheduled,
		Seen:      seen,
		TS:        s.clock.Now(),
	})
}

func (s *Scheduler) emit(evt progress.Event) {
	evt.RunID = s.runID
	s.emitter.Emit(evt)
}
