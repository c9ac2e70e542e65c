package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ragops/handbook-ingest/internal/progress"
)

// Snapshot is a point-in-time view of the current crawl run, served by the
// status API.
type Snapshot struct {
	RunID     uuid.UUID        `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	DoneAt    *time.Time       `json:"done_at,omitempty"`
	Scheduled int              `json:"scheduled"`
	Seen      int              `json:"seen"`
	Fetched   int64            `json:"fetched"`
	Failed    int64            `json:"failed"`
	Bytes     int64            `json:"bytes"`
	Sections  map[string]int64 `json:"sections"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SnapshotSink folds progress events into an in-memory Snapshot. It batches
// section counters under a single lock per Consume call.
type SnapshotSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewSnapshotSink constructs an empty SnapshotSink.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{snap: Snapshot{Sections: make(map[string]int64)}}
}

// Consume folds the batch into the snapshot. It never returns an error.
func (s *SnapshotSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *SnapshotSink) apply(evt progress.Event) {
	switch evt.Stage {
	case progress.StageCrawlStart:
		s.snap = Snapshot{
			RunID:     evt.RunID,
			StartedAt: evt.TS,
			Sections:  make(map[string]int64),
		}
	case progress.StageCrawlHB:
		s.snap.Scheduled = evt.Scheduled
		s.snap.Seen = evt.Seen
	case progress.StageCrawlDone:
		ts := evt.TS
		s.snap.DoneAt = &ts
		s.snap.Scheduled = evt.Scheduled
		s.snap.Seen = evt.Seen
	case progress.StageFetchDone:
		if evt.Status == "ok" {
			s.snap.Fetched++
		} else {
			s.snap.Failed++
		}
		s.snap.Bytes += evt.Bytes
		if evt.Section != "" {
			s.snap.Sections[evt.Section]++
		}
	}
	s.snap.UpdatedAt = evt.TS
}

// Snapshot returns a copy of the current state, with the section map cloned so
// callers cannot race the sink.
func (s *SnapshotSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Sections = make(map[string]int64, len(s.snap.Sections))
	for k, v := range s.snap.Sections {
		out.Sections[k] = v
	}
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
