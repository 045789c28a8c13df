package search

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/generator"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
	"github.com/brensch/chainplan/world/worldtest"
)

func testWorld(t testing.TB) *world.World {
	return worldtest.New(10).
		Ball(0.5, 0).
		Mate(10, 0, 0, worldtest.Kickable).
		Mate(9, 10, 0).
		Build(t)
}

// tree generates fan holds per node, each one step long, with target x
// equal to its position among siblings.
func tree(fan int) generator.Func {
	return func(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
		for i := range fan {
			a := action.NewHold(s.SelfUnum(), geom.V(float64(i), float64(len(path))), 1)
			dst = append(dst, action.Pair{Action: a, State: s.AdvanceTime(1)})
		}
		return dst
	}
}

// byTargetX prefers chains whose actions picked larger sibling indexes.
func byTargetX(s *state.State, path []action.Pair) float64 {
	v := 0.0
	for _, p := range path {
		v += p.Action.TargetPoint.X
	}
	return v
}

func TestBudgetNeverExceeded(t *testing.T) {
	w := testWorld(t)
	for _, strat := range []Strategy{BestFirst, Recursive, StrictImproving} {
		for _, limit := range []int{1, 2, 7, 50, 500} {
			calls := 0
			sr := &Searcher{
				Config:    Config{MaxChainLength: 4, MaxEvaluateLimit: limit, Strategy: strat},
				Generator: tree(4),
				Evaluator: EvaluatorFunc(func(s *state.State, path []action.Pair) float64 {
					calls++
					return byTargetX(s, path)
				}),
			}
			res, err := sr.Search(context.Background(), w)
			if err != nil {
				t.Fatalf("%s/%d: %v", strat, limit, err)
			}
			if calls > limit {
				t.Errorf("%s/%d: evaluator called %d times", strat, limit, calls)
			}
			if res.Evaluated() != calls {
				t.Errorf("%s/%d: Evaluated()=%d, calls=%d", strat, limit, res.Evaluated(), calls)
			}
		}
	}
}

func TestUnlimitedEvaluatesWholeTree(t *testing.T) {
	w := testWorld(t)
	// 1 + 3 + 9 nodes
	for _, strat := range []Strategy{BestFirst, Recursive} {
		sr := &Searcher{
			Config:    Config{MaxChainLength: 2, MaxEvaluateLimit: Unlimited, Strategy: strat},
			Generator: tree(3),
			Evaluator: EvaluatorFunc(byTargetX),
		}
		res, err := sr.Search(context.Background(), w)
		if err != nil {
			t.Fatal(err)
		}
		if res.Evaluated() != 13 {
			t.Errorf("%s: evaluated %d, want 13", strat, res.Evaluated())
		}
		if len(res.Chain()) != 2 || res.Score() != 4 {
			t.Errorf("%s: chain length %d score %v, want 2 and 4", strat, len(res.Chain()), res.Score())
		}
	}
}

func TestMaxChainLength(t *testing.T) {
	w := testWorld(t)
	for _, strat := range []Strategy{BestFirst, Recursive, StrictImproving} {
		for _, maxLen := range []int{1, 2, 3} {
			sr := &Searcher{
				Config:    Config{MaxChainLength: maxLen, MaxEvaluateLimit: 500, Strategy: strat},
				Generator: tree(5),
				Evaluator: EvaluatorFunc(func(s *state.State, path []action.Pair) float64 { return float64(len(path)) }),
			}
			res, err := sr.Search(context.Background(), w)
			if err != nil {
				t.Fatal(err)
			}
			if got := len(res.Chain()); got > maxLen {
				t.Errorf("%s: chain length %d exceeds %d", strat, got, maxLen)
			}
		}
	}
}

func TestHoldFallback(t *testing.T) {
	w := testWorld(t)
	tests := []struct {
		name string
		gen  generator.Generator
		eval EvaluatorFunc
	}{
		{"no candidates", generator.Composite{}, byTargetX},
		{"nothing beats the current state", tree(3), func(s *state.State, path []action.Pair) float64 { return -float64(len(path)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, strat := range []Strategy{BestFirst, Recursive} {
				sr := &Searcher{Config: Config{MaxChainLength: 3, MaxEvaluateLimit: 100, Strategy: strat}, Generator: tt.gen, Evaluator: tt.eval}
				res, err := sr.Search(context.Background(), w)
				if err != nil {
					t.Fatal(err)
				}
				if !res.Fallback || len(res.Chain()) != 1 {
					t.Fatalf("%s: fallback=%v chain=%d", strat, res.Fallback, len(res.Chain()))
				}
				a := res.FirstAction()
				if a.Category != action.Hold || a.Duration != 1 || !a.Final {
					t.Errorf("%s: got %v final=%v", strat, a, a.Final)
				}
				if res.FirstState().SpendTime() != 1 {
					t.Errorf("%s: spend %d", strat, res.FirstState().SpendTime())
				}
				if a.TargetPoint != w.Ball.Pos {
					t.Errorf("%s: hold at %v, ball at %v", strat, a.TargetPoint, w.Ball.Pos)
				}
			}
		})
	}
}

func TestFinalActionsAreNotExtended(t *testing.T) {
	w := testWorld(t)
	gen := generator.Func(func(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
		a := action.NewShoot(s.SelfUnum(), geom.V(52.5, 0), 3, 5, 1, "shoot")
		return append(dst, action.Pair{Action: a, State: s.AdvanceTime(5)})
	})
	for _, strat := range []Strategy{BestFirst, Recursive} {
		sr := &Searcher{
			Config:    Config{MaxChainLength: 4, MaxEvaluateLimit: 100, Strategy: strat},
			Generator: gen,
			Evaluator: EvaluatorFunc(func(s *state.State, path []action.Pair) float64 { return float64(len(path)) }),
		}
		res, err := sr.Search(context.Background(), w)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Chain()) != 1 || res.Evaluated() != 2 {
			t.Errorf("%s: chain %d evaluated %d, want 1 and 2", strat, len(res.Chain()), res.Evaluated())
		}
	}
}

func TestDeterministic(t *testing.T) {
	w := testWorld(t)
	// Every chain of the same length ties; the first generated must win.
	flat := EvaluatorFunc(func(s *state.State, path []action.Pair) float64 { return math.Min(float64(len(path)), 1) })
	for _, strat := range []Strategy{BestFirst, Recursive} {
		var prev []action.Pair
		for range 3 {
			sr := &Searcher{Config: Config{MaxChainLength: 3, MaxEvaluateLimit: 60, Strategy: strat}, Generator: tree(4), Evaluator: flat}
			res, err := sr.Search(context.Background(), w)
			if err != nil {
				t.Fatal(err)
			}
			if res.FirstAction().TargetPoint.X != 0 {
				t.Errorf("%s: tie resolved to sibling %v", strat, res.FirstAction().TargetPoint.X)
			}
			if prev != nil && !sameChain(prev, res.Chain()) {
				t.Errorf("%s: chains differ between runs", strat)
			}
			prev = res.Chain()
		}
	}
}

func sameChain(a, b []action.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if *a[i].Action != *b[i].Action || a[i].State.SpendTime() != b[i].State.SpendTime() {
			return false
		}
	}
	return true
}

func TestSpendTimeIncreases(t *testing.T) {
	w := testWorld(t)
	sr := &Searcher{Config: Config{MaxChainLength: 4, MaxEvaluateLimit: Unlimited}, Generator: tree(2), Evaluator: EvaluatorFunc(byTargetX)}
	sr.OnEvaluate = func(n Node) {
		prev := 0
		for _, p := range n.Path {
			if p.State.SpendTime() < prev+1 {
				t.Fatalf("spend %d after %d", p.State.SpendTime(), prev)
			}
			prev = p.State.SpendTime()
		}
	}
	if _, err := sr.Search(context.Background(), w); err != nil {
		t.Fatal(err)
	}
}

func TestPrefersSlowerPass(t *testing.T) {
	w := testWorld(t)
	gen := generator.Func(func(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
		if len(path) > 0 {
			return dst
		}
		for _, speed := range []float64{2.7, 1.8} {
			a := action.NewPass(10, 9, geom.V(10, 0), speed, 6, 1, false, "directPass")
			dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(a.Duration, 9, a.TargetPoint)})
		}
		return dst
	})
	safer := EvaluatorFunc(func(s *state.State, path []action.Pair) float64 {
		if len(path) == 0 {
			return 0
		}
		return 10 - path[0].Action.FirstBallSpeed
	})
	for _, strat := range []Strategy{BestFirst, Recursive} {
		sr := &Searcher{Config: Config{MaxChainLength: 2, MaxEvaluateLimit: 100, Strategy: strat}, Generator: gen, Evaluator: safer}
		res, err := sr.Search(context.Background(), w)
		if err != nil {
			t.Fatal(err)
		}
		if got := res.FirstAction().FirstBallSpeed; got != 1.8 {
			t.Errorf("%s: chose speed %v", strat, got)
		}
		if res.FinalState().BallHolderUnum() != 9 {
			t.Errorf("%s: holder %d", strat, res.FinalState().BallHolderUnum())
		}
	}
}

func TestStrictImprovingPrunes(t *testing.T) {
	w := testWorld(t)
	// Only sibling 2 improves on its parent; its children still grow.
	eval := EvaluatorFunc(func(s *state.State, path []action.Pair) float64 {
		if len(path) == 0 {
			return 1
		}
		return byTargetX(s, path)
	})
	run := func(strat Strategy) int {
		sr := &Searcher{Config: Config{MaxChainLength: 2, MaxEvaluateLimit: Unlimited, Strategy: strat}, Generator: tree(3), Evaluator: eval}
		res, err := sr.Search(context.Background(), w)
		if err != nil {
			t.Fatal(err)
		}
		if res.Score() != 4 {
			t.Errorf("%s: score %v, want 4", strat, res.Score())
		}
		return res.Evaluated()
	}
	if all, strict := run(BestFirst), run(StrictImproving); strict >= all {
		t.Errorf("strict evaluated %d, best-first %d", strict, all)
	}
}

func TestCancelledContext(t *testing.T) {
	w := testWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sr := &Searcher{Config: DefaultConfig(), Generator: tree(2), Evaluator: EvaluatorFunc(byTargetX)}
	if _, err := sr.Search(ctx, w); err != context.Canceled {
		t.Errorf("got %v", err)
	}
}

func TestDeadline(t *testing.T) {
	w := testWorld(t)
	cfg := DefaultConfig()
	cfg.Deadline = time.Nanosecond
	sr := &Searcher{Config: cfg, Generator: tree(3), Evaluator: EvaluatorFunc(byTargetX)}
	res, err := sr.Search(context.Background(), w)
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimedOut || res.Evaluated() != 1 || !res.Fallback {
		t.Errorf("timedOut=%v evaluated=%d fallback=%v", res.TimedOut, res.Evaluated(), res.Fallback)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"best-first", "recursive", "strict-improving"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := ParseStrategy("dfs"); err == nil {
		t.Error("expected error for dfs")
	}
}

func TestHolderMemoizesPerCycle(t *testing.T) {
	w := testWorld(t)
	calls := 0
	sr := &Searcher{
		Config:    DefaultConfig(),
		Generator: tree(2),
		Evaluator: EvaluatorFunc(func(s *state.State, path []action.Pair) float64 {
			calls++
			return byTargetX(s, path)
		}),
	}
	var h Holder
	first, err := h.Get(context.Background(), sr, w)
	if err != nil {
		t.Fatal(err)
	}
	n := calls
	again, _ := h.Get(context.Background(), sr, w)
	if again != first || calls != n {
		t.Errorf("recomputed within a cycle")
	}

	next := *w
	next.Time.Cycle++
	if res, _ := h.Get(context.Background(), sr, &next); res == first || calls == n {
		t.Errorf("not recomputed for a new cycle")
	}
}

func BenchmarkSearch(b *testing.B) {
	w := worldtest.New(10).
		Ball(0.5, 0).BallVel(0.3, 0).
		Lines(30, -30, 30).
		Mate(10, 0, 0, worldtest.Kickable).
		Mate(9, 10.5, 0).
		Mate(7, 15, 12).
		Mate(11, 20, -10).
		Opp(3, 18, 3).
		Opp(5, 12, -8).
		Build(b)
	eval := EvaluatorFunc(func(s *state.State, path []action.Pair) float64 {
		return s.Ball().Pos.X - float64(s.SpendTime())*0.1
	})
	for _, strat := range []Strategy{BestFirst, Recursive} {
		b.Run(string(strat), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.Strategy = strat
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sr := &Searcher{Config: cfg, Generator: generator.Default(generator.DefaultOptions(), nil), Evaluator: eval}
				w.Time.Cycle = i
				if _, err := sr.Search(context.Background(), w); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
