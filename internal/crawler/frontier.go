package crawler

import "sync"

// Frontier is the set of URLs known to this crawl session, bounded by the
// page budget. Membership is monotonic: URLs are never removed. All mutation
// goes through the internal lock so admission is atomic with respect to
// concurrent workers.
type Frontier struct {
	mu     sync.Mutex
	budget int
	seen   map[string]struct{}
}

// NewFrontier creates a Frontier capped at budget URLs.
func NewFrontier(budget int) *Frontier {
	return &Frontier{
		budget: budget,
		seen:   make(map[string]struct{}),
	}
}

// Seed inserts URLs unconditionally, used at startup to load the prior
// session's ledger history. Seeded URLs count toward the budget.
func (f *Frontier) Seed(urls map[string]struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for u := range urls {
		f.seen[u] = struct{}{}
	}
}

// TryAdmit admits url iff it has not been seen and the budget has headroom.
// It returns whether admission succeeded, consuming one unit of budget.
func (f *Frontier) TryAdmit(url string) bool {
	if url == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[url]; ok {
		return false
	}
	if len(f.seen) >= f.budget {
		return false
	}
	f.seen[url] = struct{}{}
	return true
}

// Contains reports whether url is already part of the session.
func (f *Frontier) Contains(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[url]
	return ok
}

// Len returns the current size of the seen set.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
