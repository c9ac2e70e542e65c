package crawler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFrontierAdmitOnce asserts a URL consumes budget exactly once.
func TestFrontierAdmitOnce(t *testing.T) {
	t.Parallel()

	f := NewFrontier(10)
	require.True(t, f.TryAdmit("https://about.gitlab.com/handbook/"))
	assert.False(t, f.TryAdmit("https://about.gitlab.com/handbook/"))
	assert.True(t, f.Contains("https://about.gitlab.com/handbook/"))
	assert.Equal(t, 1, f.Len())
}

// TestFrontierBudgetCap asserts admissions stop dead at the budget.
func TestFrontierBudgetCap(t *testing.T) {
	t.Parallel()

	f := NewFrontier(3)
	admitted := 0
	for i := 0; i < 10; i++ {
		if f.TryAdmit(fmt.Sprintf("https://about.gitlab.com/handbook/page-%d/", i)) {
			admitted++
		}
	}
	assert.Equal(t, 3, admitted)
	assert.Equal(t, 3, f.Len())
}

// TestFrontierSeedCountsTowardBudget asserts resumed URLs consume budget
// without being admitted again.
func TestFrontierSeedCountsTowardBudget(t *testing.T) {
	t.Parallel()

	f := NewFrontier(3)
	f.Seed(map[string]struct{}{
		"https://about.gitlab.com/handbook/a/": {},
		"https://about.gitlab.com/handbook/b/": {},
	})
	assert.Equal(t, 2, f.Len())
	assert.False(t, f.TryAdmit("https://about.gitlab.com/handbook/a/"))
	assert.True(t, f.TryAdmit("https://about.gitlab.com/handbook/c/"))
	assert.False(t, f.TryAdmit("https://about.gitlab.com/handbook/d/"), "budget exhausted")
}

// TestFrontierConcurrentAdmission hammers TryAdmit from many goroutines and
// checks the budget holds and no URL is admitted twice.
func TestFrontierConcurrentAdmission(t *testing.T) {
	t.Parallel()

	const budget = 50
	f := NewFrontier(budget)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if f.TryAdmit(fmt.Sprintf("https://about.gitlab.com/handbook/p-%d/", i)) {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(budget), admitted.Load())
	assert.Equal(t, budget, f.Len())
}

// TestFrontierRejectsEmpty asserts the empty string never enters the set.
func TestFrontierRejectsEmpty(t *testing.T) {
	t.Parallel()

	f := NewFrontier(5)
	assert.False(t, f.TryAdmit(""))
	assert.Equal(t, 0, f.Len())
}
