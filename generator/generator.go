// Package generator enumerates candidate actions for the chain search.
//
// A Generator appends action/state pairs reachable from a predicted state.
// Generators never fail: an infeasible situation simply appends nothing.
// The course generators (passes, cross, dribbles, clear) work on the live
// world once per cycle and keep the result in a CycleCache; their chain
// wrappers only turn cached courses into pairs.
package generator

import (
	"fmt"
	"strings"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// Generator appends the candidates reachable from s, given the chain so
// far, to dst and returns the extended slice.
type Generator interface {
	Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair
}

// Func adapts a plain function to Generator.
type Func func(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair

func (f Func) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	return f(dst, s, w, path)
}

// Composite fans out to every child in order.
type Composite []Generator

func (c Composite) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	for _, g := range c {
		dst = g.Generate(dst, s, w, path)
	}
	return dst
}

func (c Composite) Identity() string {
	ids := make([]string, len(c))
	for i, g := range c {
		ids[i] = Identity(g)
	}
	return "composite(" + strings.Join(ids, ",") + ")"
}

// Open as a maximum length means no upper bound.
const Open = -1

// Range runs G only while the chain being extended is within bounds: the
// new action would be at position len(path)+1, which must be at least Min,
// and len(path) must be below Max unless Max is Open.
type Range struct {
	G   Generator
	Min int
	Max int
}

// MaxLength runs g only while len(path) < n.
func MaxLength(g Generator, n int) Range { return Range{G: g, Min: 1, Max: n} }

// MinLength runs g only when the new action is at least the n-th.
func MinLength(g Generator, n int) Range { return Range{G: g, Min: n, Max: Open} }

func (r Range) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if r.Max != Open && len(path) >= r.Max {
		return dst
	}
	if len(path)+1 < r.Min {
		return dst
	}
	return r.G.Generate(dst, s, w, path)
}

func (r Range) Identity() string {
	return fmt.Sprintf("range[%d,%d](%s)", r.Min, r.Max, Identity(r.G))
}

// Identity names g for memoization. Generators may provide an
// Identity() string method; otherwise the dynamic type and address are
// used.
func Identity(g any) string {
	if id, ok := g.(interface{ Identity() string }); ok {
		return id.Identity()
	}
	return fmt.Sprintf("%T@%p", g, g)
}
