// Package search finds the best chain of cooperative actions reachable
// from the current world snapshot.
//
// Every node is scored by an Evaluator as soon as it is generated. The
// number of evaluations is capped by Config.MaxEvaluateLimit; an optional
// wall-clock deadline is checked at the same points. When nothing can be
// generated the result is a single Hold of one cycle.
package search

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// Strategy selects the search algorithm.
type Strategy string

const (
	BestFirst       Strategy = "best-first"
	Recursive       Strategy = "recursive"
	StrictImproving Strategy = "strict-improving"
)

var ErrUnknownStrategy = errors.New("search: unknown strategy")

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case BestFirst, Recursive, StrictImproving:
		return st, nil
	}
	return "", errors.Wrapf(ErrUnknownStrategy, "%q", s)
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s), nil }

func (s *Strategy) UnmarshalText(b []byte) error {
	st, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Unlimited as MaxEvaluateLimit disables the evaluation budget.
const Unlimited = -1

const (
	DefaultMaxChainLength   = 4
	DefaultMaxEvaluateLimit = 500
)

type Config struct {
	MaxChainLength   int           `yaml:"max_chain_length"`
	MaxEvaluateLimit int           `yaml:"max_evaluate_limit"`
	Strategy         Strategy      `yaml:"strategy"`
	Deadline         time.Duration `yaml:"deadline"`
}

func DefaultConfig() Config {
	return Config{
		MaxChainLength:   DefaultMaxChainLength,
		MaxEvaluateLimit: DefaultMaxEvaluateLimit,
		Strategy:         BestFirst,
	}
}

// Evaluator scores the state reached by path. Higher is better.
type Evaluator interface {
	Evaluate(s *state.State, path []action.Pair) float64
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(s *state.State, path []action.Pair) float64

func (f EvaluatorFunc) Evaluate(s *state.State, path []action.Pair) float64 { return f(s, path) }

// Node is one evaluated chain, reported to Searcher.OnEvaluate in
// evaluation order. Seq starts at 1.
type Node struct {
	Seq   int
	Path  []action.Pair
	Score float64
}

// Searcher runs one search per call. It holds no per-search state and
// may be reused across cycles.
type Searcher struct {
	Config     Config
	Generator  generator.Generator
	Evaluator  Evaluator
	Logger     *slog.Logger
	OnEvaluate func(Node)
}

// Search plans from w. It returns an error only when ctx is done before
// the root could be evaluated; later cancellation or an expired deadline
// returns the best chain found so far with TimedOut set.
func (sr *Searcher) Search(ctx context.Context, w *world.World) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	root := state.NewWithLogger(w, sr.logger())
	r := &run{
		sr:    sr,
		ctx:   ctx,
		w:     w,
		limit: sr.Config.MaxEvaluateLimit,
	}
	if sr.Config.Deadline > 0 {
		r.deadline = start.Add(sr.Config.Deadline)
	}

	var chain []action.Pair
	var score float64
	switch sr.Config.Strategy {
	case Recursive:
		chain, score, r.bestSeq, _ = r.recursive(root, nil)
	default:
		chain, score = r.bestFirst(root, sr.Config.Strategy == StrictImproving)
	}

	res := &Result{
		root:      root,
		chain:     chain,
		score:     score,
		evaluated: r.evaluated,
		bestSeq:   r.bestSeq,
		Strategy:  sr.strategy(),
		Elapsed:   time.Since(start),
		TimedOut:  r.timedOut,
	}
	if len(res.chain) == 0 {
		res.chain = []action.Pair{holdFallback(root, w)}
		res.Fallback = true
	}

	log := sr.logger()
	if r.exhausted {
		log.Debug("evaluation budget exhausted", "cycle", w.Time.Cycle, "limit", r.limit)
	}
	if r.timedOut {
		log.Debug("search stopped early", "cycle", w.Time.Cycle, "evaluated", r.evaluated, "elapsed", res.Elapsed)
	}
	log.Debug("best chain", "cycle", w.Time.Cycle, "strategy", res.Strategy,
		"length", len(res.chain), "score", res.score, "evaluated", res.evaluated)
	return res, nil
}

func (sr *Searcher) strategy() Strategy {
	if sr.Config.Strategy == "" {
		return BestFirst
	}
	return sr.Config.Strategy
}

func (sr *Searcher) logger() *slog.Logger {
	if sr.Logger == nil {
		return slog.Default()
	}
	return sr.Logger
}

func holdFallback(root *state.State, w *world.World) action.Pair {
	a := action.NewHold(w.SelfUnum, w.Ball.Pos, 1)
	a.Final = true
	return action.Pair{Action: a, State: root.AdvanceTime(1)}
}

// run is the mutable bookkeeping of one search.
type run struct {
	sr       *Searcher
	ctx      context.Context
	w        *world.World
	limit    int
	deadline time.Time

	evaluated int
	bestSeq   int
	exhausted bool
	timedOut  bool
}

func (r *run) evaluate(s *state.State, path []action.Pair) float64 {
	v := r.sr.Evaluator.Evaluate(s, path)
	r.evaluated++
	if r.sr.OnEvaluate != nil {
		r.sr.OnEvaluate(Node{Seq: r.evaluated, Path: path, Score: v})
	}
	return v
}

// stop reports whether the budget, the deadline or the context ends the
// search.
func (r *run) stop() bool {
	if r.limit != Unlimited && r.evaluated >= r.limit {
		r.exhausted = true
		return true
	}
	if !r.deadline.IsZero() && !time.Now().Before(r.deadline) {
		r.timedOut = true
		return true
	}
	if r.ctx.Err() != nil {
		r.timedOut = true
		return true
	}
	return false
}

func (r *run) expandable(path []action.Pair) bool {
	return len(path) == 0 || !path[len(path)-1].Action.Final
}

func (r *run) children(s *state.State, path []action.Pair) []action.Pair {
	return r.sr.Generator.Generate(nil, s, r.w, path)
}

// extend returns path plus p without sharing path's backing array.
func extend(path []action.Pair, p action.Pair) []action.Pair {
	return append(slices.Clip(path), p)
}

// recursive scores s, then every descendant depth first, and returns the
// best scoring chain below and including path with the evaluation
// sequence number that produced it. Ties keep the first seen.
func (r *run) recursive(s *state.State, path []action.Pair) ([]action.Pair, float64, int, bool) {
	if len(path) > r.sr.Config.MaxChainLength || r.stop() {
		return nil, 0, 0, false
	}
	best := path
	bestScore := r.evaluate(s, path)
	bestSeq := r.evaluated
	if !r.expandable(path) || len(path) >= r.sr.Config.MaxChainLength {
		return best, bestScore, bestSeq, true
	}
	for _, c := range r.children(s, path) {
		sub, v, seq, ok := r.recursive(c.State, extend(path, c))
		if !ok {
			continue
		}
		if v > bestScore {
			best, bestScore, bestSeq = sub, v, seq
		}
	}
	return best, bestScore, bestSeq, true
}
