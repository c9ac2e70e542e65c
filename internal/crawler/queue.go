package crawler

import (
	"context"
	"fmt"
	"time"
)

// URLQueue is a channel-backed hand-off queue with context-aware operations.
// Capacity is sized to the page budget so producers never block: the frontier
// admits at most budget URLs into the session.
type URLQueue struct {
	ch chan string
}

// NewURLQueue constructs a queue with the provided capacity.
func NewURLQueue(capacity int) *URLQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &URLQueue{ch: make(chan string, capacity)}
}

// Enqueue pushes a URL or returns if the context ends first.
func (q *URLQueue) Enqueue(ctx context.Context, url string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- url:
		return nil
	}
}

// Dequeue pops the next URL, blocking until one arrives or the context ends.
func (q *URLQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case url := <-q.ch:
		return url, nil
	}
}

// Poll pops the next URL, waiting at most wait. The second return value is
// false on timeout so the caller can re-check its termination conditions;
// workers feed the queue asynchronously and silence is not proof of
// exhaustion.
func (q *URLQueue) Poll(ctx context.Context, wait time.Duration) (string, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", false, fmt.Errorf("poll canceled: %w", ctx.Err())
	case <-timer.C:
		return "", false, nil
	case url := <-q.ch:
		return url, true, nil
	}
}

// Len returns the number of queued URLs not yet popped.
func (q *URLQueue) Len() int {
	return len(q.ch)
}
