package analyzer

import (
	"math"
	"testing"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
	"github.com/brensch/chainplan/world/worldtest"
)

func TestVirtualDashDistance(t *testing.T) {
	ps := params.Default()
	p := &state.Player{Type: ps.DefaultType(), PosCount: 2, SeenPosCount: 5}
	want := 0.8 * ps.DefaultType().RealSpeedMax() * (math.Exp(-1.0/15) + math.Exp(-4.0/15))
	if got := VirtualDashDistance(p); math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
	p.PosCount = 0
	if got := VirtualDashDistance(p); got != 0 {
		t.Errorf("fresh player moved %v", got)
	}
}

func TestTurnCycle(t *testing.T) {
	ps := params.Default()
	sp, pt := &ps.Server, ps.DefaultType()
	tests := []struct {
		name     string
		speed    float64
		dist     float64
		angle    float64
		backDash bool
		want     int
	}{
		{"aligned", 0, 10, 0, false, 0},
		{"inside margin", 0, 10, 14, false, 0},
		{"quarter turn at rest", 0, 10, 90, false, 1},
		{"quarter turn moving", 1.0, 10, 90, false, 2},
		{"behind without back dash", 0, 3, 180, false, 1},
		{"behind with back dash", 0, 3, 180, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TurnCycle(sp, pt, 0, tt.speed, tt.dist, geom.Deg(tt.angle), 1, tt.backDash)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlayerReachCycle(t *testing.T) {
	ps := params.Default()
	sp, pt := &ps.Server, ps.DefaultType()
	p := &state.Player{Valid: true, Type: pt}

	r := Reach{DistThr: 1, BodyCountThr: 20, DefaultTurn: 1}
	if got, want := PlayerReachCycle(sp, p, geom.V(10, 0), r), pt.CyclesToReachDistance(10); got != want {
		t.Errorf("far target: got %d, want %d", got, want)
	}
	r.DistThr = pt.KickableArea()
	if got := PlayerReachCycle(sp, p, geom.V(1.5, 0), r); got != 2 {
		t.Errorf("near target: got %d, want 2", got)
	}
	if got := PlayerReachCycle(sp, p, geom.V(0.5, 0), r); got != 0 {
		t.Errorf("already there: got %d", got)
	}
	r.Penalty = 5
	if got := PlayerReachCycle(sp, p, geom.V(10, 0), r); got <= pt.CyclesToReachDistance(10) {
		t.Errorf("penalty ignored: %d", got)
	}
}

func TestSelfReachCycle(t *testing.T) {
	w := worldtest.New(7).Ball(20, 20).Mate(7, 0, 0).Build(t)
	n, st := SelfReachCycle(w, geom.V(5, 0), 0.5, 0, false)
	if n != 6 {
		t.Errorf("cycles = %d, want 6", n)
	}
	if st.Stamina >= w.Self().Stamina {
		t.Errorf("dashing should cost stamina: %v", st.Stamina)
	}
	if n, _ := SelfReachCycle(w, geom.V(60, 0), 0.5, 0, false); n != NeverReach {
		t.Errorf("unreachable target gave %d", n)
	}
}

func TestKickCount(t *testing.T) {
	kickable := worldtest.New(7).Ball(0.5, 0).Mate(7, 0, 0, worldtest.Kickable).Mate(8, 10, 0)
	tests := []struct {
		name   string
		w      *world.World
		kicker int
		speed  float64
		want   int
	}{
		{"set play", worldtest.New(7).Mode(world.FreeKick).Ball(0.5, 0).Mate(7, 0, 0).Build(t), 7, 3, 1},
		{"self one kick", kickable.Build(t), 7, 2.5, 1},
		{"self too fast", kickable.Build(t), 7, 2.9, 3},
		{"teammate fast", kickable.Build(t), 8, 2.6, 3},
		{"teammate medium", kickable.Build(t), 8, 2.0, 2},
		{"teammate slow", kickable.Build(t), 8, 1.2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KickCount(tt.w, tt.kicker, tt.speed, 0); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func opponents(t *testing.T, b *worldtest.Builder) []state.Player {
	return state.New(b.Build(t)).Opponents()
}

func TestCanShootFrom(t *testing.T) {
	sp := &params.Default().Server
	base := func() *worldtest.Builder { return worldtest.New(9).Ball(40, 0).Mate(9, 40, 0) }

	if !CanShootFrom(sp, true, geom.V(40, 0), nil, 10) {
		t.Errorf("empty goal should be open")
	}
	if CanShootFrom(sp, true, geom.V(30, 0), nil, 10) {
		t.Errorf("22.5m is out of range")
	}
	keeper := opponents(t, base().Opp(1, 51, 0, worldtest.Goalie))
	if !CanShootFrom(sp, true, geom.V(40, 0), keeper, 10) {
		t.Errorf("lone keeper leaves the corners open")
	}
	wall := opponents(t, base().
		Opp(1, 51, 0, worldtest.Goalie).
		Opp(2, 45, -4).
		Opp(3, 45, 4))
	if CanShootFrom(sp, true, geom.V(40, 0), wall, 10) || CanShootFrom(sp, false, geom.V(40, 0), wall, 10) {
		t.Errorf("wall should block the shot")
	}
	stale := opponents(t, base().
		Opp(1, 51, 0, worldtest.Goalie).
		Opp(2, 45, -4, worldtest.Count(20)).
		Opp(3, 45, 4, worldtest.Count(20)))
	if !CanShootFrom(sp, true, geom.V(40, 0), stale, 10) {
		t.Errorf("stale defenders should be ignored")
	}
}

func TestOpponentCanShootFrom(t *testing.T) {
	sp := &params.Default().Server
	ok, best := OpponentCanShootFrom(sp, geom.V(-40, 0), nil, 10, ShootThresholds{})
	if !ok || best != 180 {
		t.Errorf("open goal: %v %v", ok, best)
	}
	if ok, _ := OpponentCanShootFrom(sp, geom.V(20, 0), nil, 10, ShootThresholds{}); ok {
		t.Errorf("too far out")
	}
	mates := state.New(worldtest.New(2).Ball(-40, 0).
		Mate(2, -45, -4).Mate(3, -45, 4).Mate(1, -51, 0, worldtest.Goalie).Build(t)).OurPlayers()
	if ok, _ := OpponentCanShootFrom(sp, geom.V(-40, 0), mates, 10, ShootThresholds{Angle: 15, Detail: true}); ok {
		t.Errorf("covered goal reported open")
	}
}

func TestGoalPosts(t *testing.T) {
	sp := &params.Default().Server
	p := geom.V(0, 10)
	if got := TheirNearGoalPost(sp, p); got != geom.V(52.5, 7.01) {
		t.Errorf("their near = %v", got)
	}
	if got := OurFarGoalPost(sp, p); got != geom.V(-52.5, -7.01) {
		t.Errorf("our far = %v", got)
	}
	if got := DistFromOurNearGoalPost(sp, geom.V(-52.5, 0)); math.Abs(got-7.01) > 1e-9 {
		t.Errorf("dist = %v", got)
	}
}

func TestToBeFinalAction(t *testing.T) {
	tests := []struct {
		x, line float64
		want    bool
	}{
		{35, 20, false},
		{25, 20, true},
		{15, 20, false},
	}
	for _, tt := range tests {
		if got := ToBeFinalAction(geom.V(tt.x, 0), tt.line); got != tt.want {
			t.Errorf("x=%v line=%v: got %v", tt.x, tt.line, got)
		}
	}
}

func TestFieldBoundBallPos(t *testing.T) {
	w := worldtest.New(7).Ball(50, 0).BallVel(3, 0).Mate(7, 49, 0).Build(t)
	if got := FieldBoundBallPos(w, 10, 0.5); !got.Near(geom.V(52, 0), 1e-6) {
		t.Errorf("got %v", got)
	}
	w = worldtest.New(7).Ball(0, 0).BallVel(1, 0).Mate(7, 1, 0).Build(t)
	want := w.Params.Server.BallInertiaPoint(w.Ball.Pos, w.Ball.Vel, 5)
	if got := FieldBoundBallPos(w, 5, 0.5); !got.Near(want, 1e-9) {
		t.Errorf("in field: got %v want %v", got, want)
	}
}

func TestClipToField(t *testing.T) {
	sp := &params.Default().Server
	tests := []struct {
		name     string
		from, to geom.Vector
		want     geom.Vector
	}{
		{"inside", geom.V(-40, 5), geom.V(-30, 10), geom.V(-30, 10)},
		{"goal line first", geom.V(-40, 5), geom.V(-60, -40), geom.V(-52.5, -23.125)},
		{"touch line", geom.V(0, 30), geom.V(0, 40), geom.V(0, 34)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClipToField(sp, tt.from, tt.to, 0); !got.Near(tt.want, 1e-6) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if got := ClipToField(sp, geom.V(0, 30), geom.V(0, 40), 0.5); !got.Near(geom.V(0, 33.5), 1e-6) {
		t.Errorf("offset: got %v", got)
	}
}

func TestBallMovingToOurGoal(t *testing.T) {
	sp := &params.Default().Server
	if !BallMovingToOurGoal(sp, geom.V(-30, 0), geom.V(-1, 0), 0.5) {
		t.Errorf("straight at goal")
	}
	if BallMovingToOurGoal(sp, geom.V(-30, 0), geom.V(1, 0), 0.5) {
		t.Errorf("moving away")
	}
	if BallMovingToOurGoal(sp, geom.V(-30, 0), geom.V(-1, 1), 0.5) {
		t.Errorf("wide of the post")
	}
}

func TestBlocker(t *testing.T) {
	mates := state.New(worldtest.New(4).Ball(0, 0).
		Mate(4, -23, 0).Mate(5, -20, 10).Build(t)).OurPlayers()
	got := Blocker(mates, geom.V(-20, 0), geom.V(-40, 0))
	if got == nil || got.Unum != 4 {
		t.Errorf("blocker = %+v", got)
	}
	if Blocker(mates, geom.V(-20, 0), geom.V(-20, 40)) != nil {
		t.Errorf("nobody on that line")
	}
}

func TestPassCount(t *testing.T) {
	b := func() *worldtest.Builder {
		return worldtest.New(7).Ball(0, 0).
			Mate(7, -0.5, 0, worldtest.Kickable).
			Mate(8, 10, 0).
			Lines(30, -20, 25)
	}
	s := state.New(b().Build(t))
	if n := PassCount(s, SimplePassChecker{}, 2.5, -1); n != 1 {
		t.Errorf("open pass count = %d", n)
	}
	s = state.New(b().Opp(3, 10, 3).Build(t))
	if n := PassCount(s, SimplePassChecker{}, 2.5, -1); n != 0 {
		t.Errorf("marked receiver count = %d", n)
	}
	s = state.New(b().Mate(9, 0, 12).Build(t))
	if n := PassCount(s, SimplePassChecker{}, 2.5, 1); n != 1 {
		t.Errorf("limited count = %d", n)
	}
}

func TestEstimateIntercept(t *testing.T) {
	w := worldtest.New(7).Ball(0, 0).
		Mate(7, 0.5, 0).
		Mate(8, 5, 0).
		Opp(3, 10, 0).
		Build(t)
	got := EstimateIntercept(state.New(w))
	if !got.Known || got.Self != 0 {
		t.Errorf("self = %d", got.Self)
	}
	if got.FastestTeammate != 8 || got.Teammate <= 0 || got.Opponent <= got.Teammate {
		t.Errorf("intercept = %+v", got)
	}
}
