package generator

import (
	"sync"

	"github.com/brensch/chainplan/world"
)

// CycleCache holds one value computed from the live world and keeps it
// for the rest of that simulator cycle.
type CycleCache[T any] struct {
	mu    sync.Mutex
	time  world.Time
	valid bool
	val   T
}

// InvalidateIfStale drops the cached value when t is not the cycle it was
// computed for. It reports whether the value was dropped.
func (c *CycleCache[T]) InvalidateIfStale(t world.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateIfStale(t)
}

func (c *CycleCache[T]) invalidateIfStale(t world.Time) bool {
	if c.valid && c.time == t {
		return false
	}
	var zero T
	c.val = zero
	c.valid = false
	return true
}

// Get returns the value for t, computing it at most once per cycle.
func (c *CycleCache[T]) Get(t world.Time, compute func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateIfStale(t) {
		c.val = compute()
		c.time = t
		c.valid = true
	}
	return c.val
}

// cycleCounter numbers actions generated within one simulator cycle.
type cycleCounter struct {
	mu   sync.Mutex
	time world.Time
	n    int
}

func (c *cycleCounter) next(t world.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.time != t {
		c.time = t
		c.n = 0
	}
	c.n++
	return c.n
}
