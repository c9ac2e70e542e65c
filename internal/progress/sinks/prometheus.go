package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragops/handbook-ingest/internal/progress"
)

// PrometheusSink exports crawl progress metrics via Prometheus. It owns all
// collectors for runs started/completed and per-section fetch counters.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runRuntime    prometheus.Histogram

	pagesScheduled prometheus.Gauge
	frontierSeen   prometheus.Gauge

	fetchResults  *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_crawl_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_crawl_runs_completed_total",
			Help: "Total crawl runs that have completed.",
		}),
		runRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_crawl_run_seconds",
			Help:    "Wall time per completed crawl run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		pagesScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_crawl_pages_scheduled",
			Help: "Pages handed to workers in the current run.",
		}),
		frontierSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_crawl_frontier_seen",
			Help: "Distinct URLs admitted to the frontier, including resumed ones.",
		}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_fetch_results_total",
			Help: "Fetch completions partitioned by handbook section and outcome.",
		}, []string{"section", "status"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_fetch_bytes_total",
			Help: "Bytes downloaded per handbook section.",
		}, []string{"section"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by handbook section and outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"section", "status"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runRuntime,
		s.pagesScheduled,
		s.frontierSeen,
		s.fetchResults,
		s.fetchBytes,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageCrawlStart:
		s.runsStarted.Inc()
	case progress.StageCrawlHB:
		s.pagesScheduled.Set(float64(evt.Scheduled))
		s.frontierSeen.Set(float64(evt.Seen))
	case progress.StageCrawlDone:
		s.runsCompleted.Inc()
		s.pagesScheduled.Set(float64(evt.Scheduled))
		s.frontierSeen.Set(float64(evt.Seen))
		if evt.Dur > 0 {
			s.runRuntime.Observe(evt.Dur.Seconds())
		}
	case progress.StageFetchDone:
		s.handleFetchEvent(evt)
	}
}

func (s *PrometheusSink) handleFetchEvent(evt progress.Event) {
	section := evt.Section
	if section == "" {
		section = "unknown"
	}
	status := evt.Status
	if status == "" {
		status = "unknown"
	}
	s.fetchResults.WithLabelValues(section, status).Inc()
	if evt.Bytes > 0 {
		s.fetchBytes.WithLabelValues(section).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(section, status).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
