package search

import (
	"time"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/state"
)

// Result is the outcome of one search. The chain is never empty.
type Result struct {
	root      *state.State
	chain     []action.Pair
	score     float64
	evaluated int
	bestSeq   int

	Strategy Strategy
	Elapsed  time.Duration
	// TimedOut is set when the deadline or the context ended the search.
	TimedOut bool
	// Fallback is set when no chain scored above the current state, or
	// none could be generated, and a Hold was substituted.
	Fallback bool
}

func (r *Result) Chain() []action.Pair { return r.chain }

func (r *Result) FirstAction() *action.Action { return r.chain[0].Action }

func (r *Result) FirstState() *state.State { return r.chain[0].State }

func (r *Result) FinalState() *state.State { return r.chain[len(r.chain)-1].State }

// Root is the predicted state the search started from.
func (r *Result) Root() *state.State { return r.root }

// Score is the evaluation of the chosen chain. For a fallback Hold it is
// the score of the unchanged current state.
func (r *Result) Score() float64 { return r.score }

// Evaluated is the number of evaluator calls made.
func (r *Result) Evaluated() int { return r.evaluated }

// BestSeq is the evaluation sequence number of the chosen chain.
func (r *Result) BestSeq() int { return r.bestSeq }
