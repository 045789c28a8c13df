package behavior

import (
	"errors"
	"math"
	"testing"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/world"
	"github.com/brensch/chainplan/world/worldtest"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestCommands(t *testing.T) {
	kickable := worldtest.New(10).
		Ball(0.5, 0).
		Mate(10, 0, 0, worldtest.Kickable).
		Mate(9, 10, 5).
		Build(t)
	rate := kickable.SelfKickRate()

	tests := []struct {
		name  string
		w     *world.World
		a     *action.Action
		kinds []CommandKind
		power float64
		dir   float64
	}{
		{
			name:  "shoot",
			w:     kickable,
			a:     action.NewShoot(10, geom.V(52.5, 0), 2, 20, 1, "shoot"),
			kinds: []CommandKind{Kick},
			power: 2 / rate,
			dir:   0,
		},
		{
			name:  "shoot capped at max power",
			w:     kickable,
			a:     action.NewShoot(10, geom.V(52.5, 0), 3, 20, 1, "shoot"),
			kinds: []CommandKind{Kick},
			power: 100,
			dir:   0,
		},
		{
			name:  "pass says receiver",
			w:     kickable,
			a:     action.NewPass(10, 9, geom.V(0.5, 10), 1, 10, 1, false, "pass"),
			kinds: []CommandKind{Kick, Say},
			power: 1 / rate,
			dir:   90,
		},
		{
			name: "dribble without kick dashes",
			w:    kickable,
			a: func() *action.Action {
				a := action.NewDribble(10, geom.V(5, 0), 0, 0, 0, 3, "dash")
				a.FirstDashPower = 80
				return a
			}(),
			kinds: []CommandKind{Dash},
			power: 80,
		},
		{
			name:  "settled hold turns to goal",
			w:     worldtest.New(10).Ball(0.5, 0).Mate(10, 0, 0, worldtest.Kickable, worldtest.Body(90)).Build(t),
			a:     action.NewHold(10, geom.V(0.5, 0), 1),
			kinds: []CommandKind{Turn},
			dir:   -90,
		},
		{
			name:  "move dashes when facing",
			w:     kickable,
			a:     action.NewMove(10, geom.V(10, 0), 10),
			kinds: []CommandKind{Dash},
			power: 100,
		},
		{
			name:  "move turns first",
			w:     worldtest.New(10).Ball(5, 5).Mate(10, 0, 0, worldtest.Body(90)).Build(t),
			a:     action.NewMove(10, geom.V(10, 0), 10),
			kinds: []CommandKind{Turn},
			dir:   -90,
		},
		{
			name:  "unkickable shoot chases ball",
			w:     worldtest.New(10).Ball(5, 0).Mate(10, 0, 0).Build(t),
			a:     action.NewShoot(10, geom.V(52.5, 0), 2, 20, 1, "shoot"),
			kinds: []CommandKind{Dash},
			power: 100,
		},
		{
			name:  "no action",
			w:     kickable,
			a:     action.NewNoAction(10, 1),
			kinds: []CommandKind{None},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := Commands(tt.w, tt.a)
			if len(cmds) != len(tt.kinds) {
				t.Fatalf("commands = %v, want kinds %v", cmds, tt.kinds)
			}
			for i, k := range tt.kinds {
				if cmds[i].Kind != k {
					t.Fatalf("command %d = %s, want %s", i, cmds[i].Kind, k)
				}
			}
			c := cmds[0]
			if !near(c.Power, tt.power) {
				t.Errorf("power = %v, want %v", c.Power, tt.power)
			}
			if !near(c.Direction.Degree(), tt.dir) {
				t.Errorf("direction = %v, want %v", c.Direction.Degree(), tt.dir)
			}
		})
	}
}

func TestHoldStopsMovingBall(t *testing.T) {
	w := worldtest.New(10).
		Ball(0.5, 0).
		BallVel(1, 0).
		Mate(10, 0, 0, worldtest.Kickable).
		Build(t)
	cmds := Commands(w, action.NewHold(10, geom.V(0.5, 0), 1))
	if len(cmds) != 1 || cmds[0].Kind != Kick {
		t.Fatalf("commands = %v, want one kick", cmds)
	}
	if got := cmds[0].Direction.Abs(); !near(got, 180) {
		t.Errorf("direction = %v, want against the ball", got)
	}
	if want := 1 / w.SelfKickRate(); !near(cmds[0].Power, want) {
		t.Errorf("power = %v, want %v", cmds[0].Power, want)
	}
}

func TestTurnMomentClamped(t *testing.T) {
	w := worldtest.New(10).Mate(10, 0, 0).Build(t)
	sp := &w.Params.Server
	typ := w.Params.DefaultType()
	if got := turnMoment(typ, sp, 170, 1); got != sp.MaxMoment {
		t.Errorf("moment = %v, want clamp at %v", got, sp.MaxMoment)
	}
	if got := turnMoment(typ, sp, -170, 1); got != -sp.MaxMoment {
		t.Errorf("moment = %v, want clamp at %v", got, -sp.MaxMoment)
	}
	if got := turnMoment(typ, sp, 10, 0); got != 10 {
		t.Errorf("moment = %v, want 10 at rest", got)
	}
}

func TestExecuteSendsInOrder(t *testing.T) {
	w := worldtest.New(10).
		Ball(0.5, 0).
		Mate(10, 0, 0, worldtest.Kickable).
		Mate(9, 10, 5).
		Build(t)
	var got []CommandKind
	x := &Executor{Sink: SinkFunc(func(c Command) error {
		got = append(got, c.Kind)
		return nil
	})}
	if _, err := x.Execute(w, action.NewPass(10, 9, geom.V(10, 5), 1.5, 8, 1, false, "pass")); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(got) != 2 || got[0] != Kick || got[1] != Say {
		t.Errorf("sent %v, want kick then say", got)
	}

	boom := errors.New("closed")
	x.Sink = SinkFunc(func(Command) error { return boom })
	_, err := x.Execute(w, action.NewPass(10, 9, geom.V(10, 5), 1.5, 8, 1, false, "pass"))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped sink error", err)
	}
}

func TestExecuteWithoutSelf(t *testing.T) {
	w := worldtest.New(10).Mate(10, 0, 0).Build(t)
	w.SelfUnum = 3
	if _, err := (&Executor{}).Execute(w, action.NewNoAction(3, 1)); !errors.Is(err, world.ErrNoSelf) {
		t.Errorf("err = %v, want ErrNoSelf", err)
	}
}
