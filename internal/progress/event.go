// Package progress defines the telemetry events emitted during a crawl and
// the hub that fans them out to sinks.
package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart Stage = "CRAWL_START"
	StageCrawlHB    Stage = "CRAWL_HEARTBEAT"
	StageCrawlDone  Stage = "CRAWL_DONE"
	StageFetchDone  Stage = "FETCH_DONE"
)

// Event captures a single progress milestone.
type Event struct {
	// RunID identifies the crawl session.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone type.
	Stage Stage
	// URL is set for fetch events.
	URL string
	// Section is the page's section tag, set for fetch events.
	Section string
	// Status is "ok" or "failed" for fetch events.
	Status string
	// Bytes is the stored content size for successful fetches.
	Bytes int64
	// Scheduled is the cumulative admitted-work count at heartbeat time.
	Scheduled int
	// Seen is the frontier size at heartbeat time.
	Seen int
	// Dur is fetch latency or total crawl wall time.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Sink consumes batches of events. Implementations must honor ctx deadlines
// and may be called from a single hub goroutine.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this so emitting code
// stays agnostic about buffering.
type Emitter interface {
	Emit(evt Event)
}

// Nop is an Emitter that discards everything, useful in tests.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) {}
