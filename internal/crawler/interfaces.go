package crawler

import (
	"context"
	"time"
)

// Fetcher performs a single retrieval attempt for a URL. Implementations
// succeed only for a 200 response carrying HTML; other outcomes surface as
// errors classified by Retryable.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Ledger appends fetch outcomes to the durable crawl record.
type Ledger interface {
	Append(rec Record) error
}

// PageStore persists raw page content under a derived filename and returns
// the path the content was written to.
type PageStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// Clock returns the current time (swappable for testing).
type Clock interface {
	Now() time.Time
}
