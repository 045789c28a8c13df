package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/behavior"
	"github.com/brensch/chainplan/config"
	"github.com/brensch/chainplan/trace"
	"github.com/brensch/chainplan/world"
	"github.com/brensch/chainplan/world/worldtest"
)

func attackWorld(t *testing.T, cycle int) *world.World {
	return worldtest.New(10).
		Cycle(cycle).
		Ball(30.5, 0).
		Mate(10, 30, 0, worldtest.Kickable).
		Mate(9, 38, 8).
		Mate(11, 36, -10).
		Opp(1, 50, 0, worldtest.Goalie).
		Opp(4, 40, -3).
		Build(t)
}

func defenceWorld(t *testing.T, cycle int) *world.World {
	return worldtest.New(4).
		Cycle(cycle).
		Ball(-38.5, 15).
		Mate(4, -39, 15, worldtest.Kickable).
		Mate(2, -36, -8).
		Mate(7, -20, 25).
		Opp(9, -37, 13).
		Opp(10, -40, 18).
		Build(t)
}

func quietConfig() config.Config {
	cfg := config.Default()
	cfg.Trace.Log = false
	cfg.Search.MaxEvaluateLimit = 100
	return cfg
}

func TestPlanCachesPerCycle(t *testing.T) {
	var sent []behavior.Command
	p, err := New(quietConfig(), behavior.SinkFunc(func(c behavior.Command) error {
		sent = append(sent, c)
		return nil
	}), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close()

	var events []trace.Event
	p.AddSink(trace.SinkFunc(func(e trace.Event) error {
		events = append(events, e)
		return nil
	}))

	ctx := context.Background()
	w := attackWorld(t, 100)
	first, err := p.Plan(ctx, w)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if first.Cached {
		t.Error("first plan reported cached")
	}
	if len(first.Commands) == 0 || len(sent) != len(first.Commands) {
		t.Errorf("commands = %v, sent %d", first.Commands, len(sent))
	}

	again, err := p.Plan(ctx, w)
	if err != nil {
		t.Fatalf("plan again: %v", err)
	}
	if !again.Cached || again.Result != first.Result {
		t.Error("same cycle was planned twice")
	}

	next, err := p.Plan(ctx, attackWorld(t, 101))
	if err != nil {
		t.Fatalf("plan next: %v", err)
	}
	if next.Cached || next.Result == first.Result {
		t.Error("new cycle reused the previous result")
	}

	wantKinds := []trace.Kind{trace.KindPlan, trace.KindCached, trace.KindPlan}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(events), len(wantKinds))
	}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("event %d kind = %s, want %s", i, events[i].Kind, k)
		}
		if events[i].Evaluated > 100 {
			t.Errorf("event %d evaluated %d nodes over the limit", i, events[i].Evaluated)
		}
	}
}

func TestPlanWritesParquet(t *testing.T) {
	cfg := quietConfig()
	cfg.Trace.ParquetDir = filepath.Join(t.TempDir(), "traces")
	p, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for c := 1; c <= 3; c++ {
		if _, err := p.Plan(context.Background(), attackWorld(t, c)); err != nil {
			t.Fatalf("plan %d: %v", c, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := filepath.Glob(filepath.Join(cfg.Trace.ParquetDir, "*.parquet"))
	if err != nil || len(files) != 1 {
		t.Fatalf("parquet files = %v (%v), want one", files, err)
	}
	events, err := trace.ReadParquet(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("read %d events, want 3", len(events))
	}
	if _, err := os.Stat(filepath.Join(cfg.Trace.ParquetDir, "tmp")); err == nil {
		entries, _ := os.ReadDir(filepath.Join(cfg.Trace.ParquetDir, "tmp"))
		if len(entries) != 0 {
			t.Errorf("left %d temporary files", len(entries))
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Search.MaxChainLength = 0
	if _, err := New(cfg, nil, nil); errors.Cause(err) != config.ErrInvalid {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestPlanCancelled(t *testing.T) {
	p, err := New(quietConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Plan(ctx, attackWorld(t, 5)); errors.Cause(err) != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResetBetweenSnapshotsSharingACycle(t *testing.T) {
	ctx := context.Background()
	fresh, err := New(quietConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	want, err := fresh.Plan(ctx, defenceWorld(t, 100))
	if err != nil {
		t.Fatal(err)
	}

	p, err := New(quietConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	attack, err := p.Plan(ctx, attackWorld(t, 100))
	if err != nil {
		t.Fatal(err)
	}
	p.Reset()
	got, err := p.Plan(ctx, defenceWorld(t, 100))
	if err != nil {
		t.Fatal(err)
	}
	if got.Cached || got.Result == attack.Result {
		t.Fatal("reset planner reused the previous snapshot's result")
	}
	g, w := trace.Summarize(got.Event), trace.Summarize(want.Event)
	if g.First != w.First || g.Target != w.Target || g.Score != w.Score || g.Length != w.Length {
		t.Errorf("after reset = %+v, fresh planner = %+v", g, w)
	}
}
