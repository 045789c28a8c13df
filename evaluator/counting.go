package evaluator

import (
	"sync/atomic"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/state"
)

// Counting counts calls to E.
type Counting struct {
	E Evaluator
	n atomic.Int64
}

func (c *Counting) Evaluate(s *state.State, path []action.Pair) float64 {
	c.n.Add(1)
	return c.E.Evaluate(s, path)
}

func (c *Counting) Count() int64 { return c.n.Load() }

// Reset returns the count so far and zeroes it.
func (c *Counting) Reset() int64 { return c.n.Swap(0) }

func (c *Counting) Identity() string { return generator.Identity(c.E) }
