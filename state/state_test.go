package state

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/world"
	"github.com/brensch/chainplan/world/worldtest"
)

func TestNewPicksHolder(t *testing.T) {
	tests := []struct {
		name string
		b    *worldtest.Builder
		want int
	}{
		{
			name: "self nearest",
			b:    worldtest.New(9).Ball(0, 0).Mate(9, 0.5, 0).Mate(10, 3, 0),
			want: 9,
		},
		{
			name: "teammate closer",
			b:    worldtest.New(9).Ball(0, 0).Mate(9, 5, 0).Mate(10, 1, 0),
			want: 10,
		},
		{
			name: "stale teammate ignored",
			b:    worldtest.New(9).Ball(0, 0).Mate(9, 5, 0).Mate(10, 1, 0, worldtest.Count(9)),
			want: 9,
		},
		{
			name: "equal distance keeps self",
			b:    worldtest.New(9).Ball(0, 0).Mate(9, 2, 0).Mate(10, -2, 0),
			want: 9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.b.Build(t))
			if got := s.BallHolderUnum(); got != tt.want {
				t.Errorf("holder = %d, want %d", got, tt.want)
			}
			if s.SpendTime() != 0 {
				t.Errorf("root spend = %d", s.SpendTime())
			}
		})
	}
}

func rootState(t *testing.T) *State {
	w := worldtest.New(9).
		Ball(10, 0).
		Mate(9, 10, 0.5, worldtest.Kickable).
		Mate(10, 25, 5).
		Mate(4, -20, 0).
		Opp(2, 30, 0).
		Opp(3, 35, 3).
		Lines(35, -20, 30).
		Build(t)
	return New(w)
}

func TestDerivations(t *testing.T) {
	root := rootState(t)

	waited := root.AdvanceTime(2)
	if waited.SpendTime() != 2 || waited.BallHolderUnum() != 9 {
		t.Errorf("advance: spend %d holder %d", waited.SpendTime(), waited.BallHolderUnum())
	}
	if waited.Ball() != root.Ball() {
		t.Errorf("advance moved ball")
	}

	passed := waited.MoveBallAndHolder(5, 10, geom.V(27, 4))
	if passed.SpendTime() != 7 {
		t.Errorf("spend = %d, want 7", passed.SpendTime())
	}
	h := passed.BallHolder()
	if h == nil || h.Unum != 10 || h.Pos != geom.V(27, 4) {
		t.Fatalf("holder = %+v", h)
	}
	if h.Vel != (geom.Vector{}) {
		t.Errorf("receiver should be at rest: %v", h.Vel)
	}
	if passed.Ball().Vel != (geom.Vector{}) {
		t.Errorf("ball should be at rest: %v", passed.Ball().Vel)
	}
	if passed.OurOffenseLineX() != 27 {
		t.Errorf("offense line = %v", passed.OurOffenseLineX())
	}
	if root.Our(10).Pos != geom.V(25, 5) {
		t.Errorf("parent seat changed: %v", root.Our(10).Pos)
	}

	shot := passed.MoveBall(3, geom.V(52.5, 0))
	if shot.BallHolderUnum() != 10 || shot.SpendTime() != 10 {
		t.Errorf("ball only: holder %d spend %d", shot.BallHolderUnum(), shot.SpendTime())
	}
	if shot.OffsideLineX() != 52.5 {
		t.Errorf("offside line = %v, want ball x", shot.OffsideLineX())
	}
}

func TestLines(t *testing.T) {
	root := rootState(t)
	if root.OurOffenseLineX() != 25 {
		t.Errorf("offense line = %v", root.OurOffenseLineX())
	}
	if root.OurDefenseLineX() != -20 {
		t.Errorf("defense line = %v", root.OurDefenseLineX())
	}
	if root.OffsideLineX() != 35 || root.TheirDefenseLineX() != 30 {
		t.Errorf("offside %v their defense %v", root.OffsideLineX(), root.TheirDefenseLineX())
	}
	back := root.MoveBall(1, geom.V(-30, 0))
	if back.OurDefenseLineX() != -30 {
		t.Errorf("defense line should follow ball: %v", back.OurDefenseLineX())
	}
}

func TestInvalidSeats(t *testing.T) {
	root := rootState(t)
	if p := root.Our(12); p.Valid || p.Unum != world.UnknownUnum {
		t.Errorf("Our(12) = %+v", p)
	}
	if p := root.Our(7); p.Valid {
		t.Errorf("unobserved seat reported valid")
	}
	if root.Their(0) != nil {
		t.Errorf("Their(0) should be nil")
	}
	c := root.MoveBallAndHolder(1, 0, geom.V(1, 1))
	if c.BallHolderUnum() != world.UnknownUnum || c.BallHolder() != nil {
		t.Errorf("invalid holder kept: %d", c.BallHolderUnum())
	}
	if c.Ball().Pos != geom.V(1, 1) {
		t.Errorf("ball not moved")
	}
	if c := root.MoveBallAndHolder(1, 7, geom.V(2, 2)); c.BallHolderUnum() != world.UnknownUnum {
		t.Errorf("unobserved seat 7 became holder")
	}
}

func TestChildIsAtLeastOneStepLater(t *testing.T) {
	root := rootState(t)
	children := map[string]*State{
		"advance -3":    root.AdvanceTime(-3),
		"advance 0":     root.AdvanceTime(0),
		"move ball 0":   root.MoveBall(0, geom.V(52.5, 0)),
		"move holder 0": root.MoveBallAndHolder(0, 10, geom.V(25, 5)),
	}
	for name, c := range children {
		if c.SpendTime() != root.SpendTime()+1 {
			t.Errorf("%s: spend %d, want %d", name, c.SpendTime(), root.SpendTime()+1)
		}
	}
}

func TestLoggerIsInherited(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := worldtest.New(9).Ball(0, 0).Mate(9, 0, 0).Build(t)
	root := NewWithLogger(w, logger)
	child := root.MoveBall(2, geom.V(1, 0))
	if child.Logger() != logger {
		t.Fatal("child lost the root logger")
	}
	child.Our(12)
	if !strings.Contains(buf.String(), "invalid teammate seat") {
		t.Errorf("log = %q", buf.String())
	}
	if New(w).Logger() != slog.Default() {
		t.Error("New should log through the default logger")
	}
}

func TestOpponentsFromSelf(t *testing.T) {
	root := rootState(t)
	var order []int
	root.OpponentsFromSelf(func(p *Player) bool {
		order = append(order, p.Unum)
		return true
	})
	if len(order) != 2 || order[0] != 2 || order[1] != 3 {
		t.Errorf("order = %v", order)
	}
	o, d := root.OpponentNearestTo(geom.V(34, 3), 10)
	if o == nil || o.Unum != 3 || d != 1 {
		t.Errorf("nearest = %+v %v", o, d)
	}
}
