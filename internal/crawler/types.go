// Package crawler defines the core types and interfaces shared by the
// crawl engine subsystems: frontier, scheduler, workers, fetchers, and the
// durable ledger.
package crawler

import (
	"time"
)

// Status is the terminal outcome recorded for a URL within a session.
type Status string

// Ledger status values. A URL reaches exactly one of these per session.
const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Record is one line of the append-only crawl ledger. Records are written
// exactly once per URL per session and never mutated.
type Record struct {
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	Path      string    `json:"path,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	Section   string    `json:"section"`
	Bytes     int64     `json:"bytes,omitempty"`
}

// FetchResult is the outcome of a single successful fetch attempt.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
}
