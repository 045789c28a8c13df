package evaluator

import (
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world/worldtest"
)

func rootState(t *testing.T) *state.State {
	w := worldtest.New(10).
		Ball(0.5, 0).
		Mate(10, 0, 0, worldtest.Kickable).
		Mate(9, 10, 0).
		Mate(7, 40, 0).
		Opp(4, 5, 20).
		Build(t)
	return state.New(w)
}

func passTo(s *state.State, unum int, p geom.Vector) (*state.State, []action.Pair) {
	a := action.NewPass(s.SelfUnum(), unum, p, 2, 5, 1, false, "directPass")
	next := s.MoveBallAndHolder(5, unum, p)
	return next, []action.Pair{{Action: a, State: next}}
}

func TestSample(t *testing.T) {
	root := rootState(t)
	var e Sample

	base := e.Evaluate(root, nil)
	near, nearPath := passTo(root, 9, geom.V(10, 0))
	far, farPath := passTo(root, 7, geom.V(40, 0))

	tests := []struct {
		name string
		s    *state.State
		path []action.Pair
		min  float64
		max  float64
	}{
		{"root scores ball x", root, nil, 0.5, 0.5},
		{"forward pass scores higher", near, nearPath, base + 9, 10},
		{"shooting position bonus", far, farPath, shootBonus, shootBonus + 100},
		{"ball in goal", root.MoveBall(10, geom.V(52.5, 0)), nil, goalScore, goalScore},
		{"ball out of pitch", root.MoveBall(10, geom.V(0, 40)), nil, lostScore, lostScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(tt.s, tt.path)
			if got < tt.min || got > tt.max {
				t.Errorf("got %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestExpr(t *testing.T) {
	root := rootState(t)
	far, farPath := passTo(root, 7, geom.V(40, 0))

	e, err := NewExpr("BallX * 2 + (CanShoot ? 100 : 0) - Spend")
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Evaluate(root, nil); got != 1 {
		t.Errorf("root: got %v", got)
	}
	if got := e.Evaluate(far, farPath); got != 80+100-5 {
		t.Errorf("far: got %v", got)
	}

	cat, err := NewExpr(`Category == "pass" && !Final ? Length : -1`)
	if err != nil {
		t.Fatal(err)
	}
	if got := cat.Evaluate(far, farPath); got != 1 {
		t.Errorf("category: got %v", got)
	}
}

func TestExprCompileErrors(t *testing.T) {
	for _, src := range []string{"", "BallX +", "Unknown * 2", `"text"`} {
		if _, err := NewExpr(src); err == nil {
			t.Errorf("%q: expected error", src)
		}
	}
}

func TestFeatures(t *testing.T) {
	root := rootState(t)
	next, path := passTo(root, 9, geom.V(10, 0))

	buf := getFeatures()
	defer putFeatures(buf)
	f := *buf
	if len(f) != FeatureSize {
		t.Fatalf("len %d", len(f))
	}
	Features(f, next, path)

	sp := root.Server()
	if want := 10 / sp.PitchHalfLength; math.Abs(float64(f[0])-want) > 1e-6 {
		t.Errorf("ball x %v, want %v", f[0], want)
	}
	if f[5] != 0.25 {
		t.Errorf("length feature %v", f[5])
	}
	holder := mateOffset + 8*mateFeatures
	if f[holder+2] != 1 || f[holder+3] != 1 {
		t.Errorf("holder 9 not flagged: %v", f[holder:holder+mateFeatures])
	}
	self := mateOffset + 9*mateFeatures
	if f[self+3] != 0 {
		t.Error("self still flagged as holder")
	}
	opp := opponentOffset + 3*oppFeatures
	if f[opp+2] != 1 {
		t.Errorf("opponent 4 missing: %v", f[opp:opp+oppFeatures])
	}

	// Reused buffers are cleared.
	Features(f, root, nil)
	if f[holder+3] != 0 {
		t.Error("stale holder flag")
	}
}

func TestOnnxNeedsModel(t *testing.T) {
	for _, model := range []string{"", filepath.Join(t.TempDir(), "missing.onnx")} {
		if _, err := NewOnnx(model, OnnxConfig{}); errors.Cause(err) != ErrNoModel {
			t.Errorf("%q: got %v", model, err)
		}
	}
	_, closeFn, err := New(Config{Kind: KindOnnx}, nil)
	if errors.Cause(err) != ErrNoModel {
		t.Errorf("New: got %v", err)
	}
	if closeFn == nil || closeFn() != nil {
		t.Error("close func must be a no-op on failure")
	}
}

func TestOnnxCloseWaitsForRun(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var running, destroyedWhileRunning, destroyed atomic.Bool
	run := func(batch []float32, n int64) ([]float32, error) {
		running.Store(true)
		close(entered)
		<-release
		running.Store(false)
		return make([]float32, n), nil
	}
	destroy := func() error {
		destroyedWhileRunning.Store(running.Load())
		destroyed.Store(true)
		return nil
	}
	o := startOnnx("stub", OnnxConfig{BatchSize: 1, BatchTimeout: time.Millisecond}, run, destroy)

	s := rootState(t)
	go o.Evaluate(s, nil)
	<-entered

	closed := make(chan error, 1)
	go func() { closed <- o.Close() }()
	time.Sleep(20 * time.Millisecond)
	if destroyed.Load() {
		t.Fatal("session destroyed during a run")
	}
	close(release)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}
	if !destroyed.Load() || destroyedWhileRunning.Load() {
		t.Errorf("destroyed %v, while running %v", destroyed.Load(), destroyedWhileRunning.Load())
	}
	if o.Close() != nil {
		t.Error("second close")
	}
}

func TestNew(t *testing.T) {
	e, _, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(Sample); !ok {
		t.Errorf("default evaluator %T", e)
	}
	if _, _, err := New(Config{Kind: KindExpr, Expr: "BallX"}, nil); err != nil {
		t.Error(err)
	}
	if _, _, err := New(Config{Kind: "magic"}, nil); errors.Cause(err) != ErrUnknownKind {
		t.Errorf("got %v", err)
	}
	if _, err := ParseKind(" ONNX "); err != nil {
		t.Error(err)
	}
}

func TestCounting(t *testing.T) {
	root := rootState(t)
	c := &Counting{E: Sample{}}
	for range 3 {
		c.Evaluate(root, nil)
	}
	if c.Count() != 3 || c.Reset() != 3 || c.Count() != 0 {
		t.Errorf("count after reset %d", c.Count())
	}
	if c.Identity() != "sample" {
		t.Errorf("identity %q", c.Identity())
	}
}
