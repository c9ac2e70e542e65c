// Package sinks provides progress.Sink implementations: structured logs,
// Prometheus collectors, and an in-memory snapshot for the status API.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/ragops/handbook-ingest/internal/progress"
)

// LogSink emits one structured log line per progress event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
		}
		switch evt.Stage {
		case progress.StageFetchDone:
			fields = append(fields,
				zap.String("url", evt.URL),
				zap.String("section", evt.Section),
				zap.String("status", evt.Status),
				zap.Int64("bytes", evt.Bytes),
				zap.Duration("dur", evt.Dur),
			)
		case progress.StageCrawlHB:
			fields = append(fields,
				zap.Int("scheduled", evt.Scheduled),
				zap.Int("seen", evt.Seen),
			)
		case progress.StageCrawlDone:
			fields = append(fields,
				zap.Int("scheduled", evt.Scheduled),
				zap.Int("seen", evt.Seen),
				zap.Duration("dur", evt.Dur),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("crawl progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
