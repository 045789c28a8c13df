package generator

import (
	"log/slog"
	"math"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// SelfPass kicks the ball well ahead and runs onto it. Longer runs are
// allowed the further up the field the ball is.
type SelfPass struct {
	Logger *slog.Logger
	cache  CycleCache[[]*action.Action]
}

func NewSelfPass() *SelfPass { return &SelfPass{} }

func (g *SelfPass) Identity() string { return "self_pass" }

func (g *SelfPass) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if len(path) != 0 {
		return dst
	}
	for _, a := range g.Courses(s, w) {
		dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(a.Duration, a.Target, a.TargetPoint)})
	}
	return dst
}

// Courses returns this cycle's self passes, nearest to their goal first.
func (g *SelfPass) Courses(s *state.State, w *world.World) []*action.Action {
	return g.cache.Get(w.Time, func() []*action.Action {
		if (w.Mode != world.PlayOn && !w.Mode.IsPenaltyKick()) || !w.SelfKickable() {
			return nil
		}
		b := selfPassBuilder{s: s, w: w}
		b.createCourses()
		action.SortByDistance(b.courses, w.Params.Server.TheirGoal())
		logger(g.Logger).Debug("self pass courses", "cycle", w.Time.Cycle, "courses", len(b.courses), "checked", b.count)
		return b.courses
	})
}

type selfPassBuilder struct {
	s       *state.State
	w       *world.World
	count   int
	courses []*action.Action
}

func selfPassMaxDash(ballX float64) int {
	switch {
	case ballX < -20:
		return 6
	case ballX < 0:
		return 7
	case ballX < 10:
		return 13
	case ballX < 20:
		return 15
	}
	return 20
}

func (b *selfPassBuilder) createCourses() {
	const (
		angleDivs = 60
		angleStep = 360.0 / angleDivs
		minDash   = 5
		perAngle  = 10
	)
	sp := &b.w.Params.Server
	self := b.w.Self()
	t := b.w.Type(self)
	ball := b.w.Ball.Pos
	maxDash := selfPassMaxDash(ball.X)
	maxTurn := t.EffectiveTurn(sp.MaxMoment, self.Vel.Len()*t.PlayerDecay)
	ourGoal := sp.OurGoal()

	for a := 0; a < angleDivs; a++ {
		add := angleStep * float64(a)
		nTurn := 0
		if a != 0 {
			if geom.Deg(add).Abs() > maxTurn {
				continue
			}
			nTurn = 1
		}
		dashAngle := self.Body.Add(add)
		if ball.X < sp.TheirPenaltyAreaLineX()+5 && dashAngle.Abs() > 85 {
			continue
		}

		cache := b.selfCache(dashAngle, nTurn, maxDash)
		nDash := len(cache) - nTurn
		if nDash < minDash {
			continue
		}

		count := 0
		dec := 2
		for ; nDash >= minDash; nDash -= dec {
			b.count++
			if nDash <= 10 {
				dec = 1
			}
			receive := cache[nTurn+nDash-1]
			if receive.Dist2(ourGoal) < 18*18 {
				continue
			}
			if !b.canKick(nTurn, nDash, receive) || !b.safe(nTurn, nDash, receive) {
				continue
			}
			speed := sp.FirstBallSpeed(ball.Dist(receive), 1+nTurn+nDash)
			act := action.NewDribble(self.Unum, receive, speed, 1, nTurn, nDash, "selfPass")
			act.Index = b.count
			b.courses = append(b.courses, act)
			if count++; count >= perAngle {
				break
			}
		}
	}
}

// selfCache holds the agent's position after each turn and dash that
// follows the kick. Dashing stops when stamina runs low or the agent
// would leave the usable field.
func (b *selfPassBuilder) selfCache(dashAngle geom.Angle, nTurn, nDash int) []geom.Vector {
	sp := &b.w.Params.Server
	self := b.w.Self()
	t := b.w.Type(self)
	stamina := selfStamina(b.w)
	thr := sp.RecoverDecThr() + 350

	pos, vel := self.Pos.Add(self.Vel), self.Vel.Scale(t.PlayerDecay)
	stamina.SimulateWait(sp, t)
	var out []geom.Vector
	for i := 0; i < nTurn; i++ {
		pos = pos.Add(vel)
		vel = vel.Scale(t.PlayerDecay)
		stamina.SimulateWait(sp, t)
		out = append(out, pos)
	}
	for i := 0; i < nDash; i++ {
		if stamina.Stamina < thr {
			break
		}
		power := math.Min(sp.MaxDashPower, math.Max(0, stamina.Stamina-thr))
		vel = vel.Add(geom.Polar(power*t.DashPowerRate*stamina.Effort, dashAngle))
		pos = pos.Add(vel)
		if pos.X > sp.PitchHalfLength-2.5 {
			break
		}
		if pos.AbsY() > sp.PitchHalfWidth-3 &&
			((pos.Y > 0 && dashAngle.Degree() > 0) || (pos.Y < 0 && dashAngle.Degree() < 0)) {
			break
		}
		vel = vel.Scale(t.PlayerDecay)
		stamina.SimulateDash(sp, t, power)
		out = append(out, pos)
	}
	return out
}

// canKick checks the kick itself: reachable in one kick, not into our
// own body, and out of every opponent's next-cycle reach.
func (b *selfPassBuilder) canKick(nTurn, nDash int, receive geom.Vector) bool {
	sp := &b.w.Params.Server
	self := b.w.Self()
	t := b.w.Type(self)
	ball := b.w.Ball.Pos
	angle := receive.Sub(ball).Dir()
	speed := sp.FirstBallSpeed(ball.Dist(receive), 1+nTurn+nDash)

	if sp.MaxKickVelocity(angle, b.w.SelfKickRate(), b.w.Ball.Vel).Len2() < speed*speed {
		return false
	}
	ballNext := ball.Add(receive.Sub(ball).WithLen(speed))
	if self.Pos.Add(self.Vel).Dist2(ballNext) < math.Pow(t.PlayerSize+sp.BallSize+0.1, 2) {
		return false
	}

	for o := range b.s.OpponentsFromSelf {
		ot := o.Type
		next := o.Pos.Add(o.Vel)
		control := controlArea(sp, o, ballNext)
		if ballNext.Dist2(next) < math.Pow(control+0.1, 2) {
			return false
		}
		dash := sp.MaxDashPower * ot.DashPowerRate * ot.EffortMax
		if o.BodyCount <= 1 {
			next = next.Add(geom.Polar(dash, o.Body))
		} else {
			next = next.Add(o.Vel.WithLen(dash))
		}
		if ballNext.Dist2(next) < control*control {
			return false
		}
	}
	return true
}

func (b *selfPassBuilder) safe(nTurn, nDash int, receive geom.Vector) bool {
	sp := &b.w.Params.Server
	ball := b.w.Ball.Pos
	selfStep := 1 + nTurn + nDash
	angle := receive.Sub(ball).Dir()
	inPenalty := receive.X > sp.TheirPenaltyAreaLineX() && receive.AbsY() < sp.PenaltyAreaHalfWidth

	for o := range b.s.OpponentsFromSelf {
		pos, vel := seenPosVel(o)
		rel := pos.Sub(ball).Rotate(-angle)
		if rel.X < -4 {
			continue
		}
		t := o.Type
		control := t.KickableArea()
		if o.Goalie && inPenalty {
			control = sp.CatchableArea()
		}
		at := t.InertiaPoint(pos, vel, selfStep)
		dist := at.Dist(receive)
		if dist > t.RealSpeedMax()*float64(selfStep+o.PosCount)+control {
			continue
		}
		if dist-control < 0.001 {
			return false
		}
		nDashO := t.CyclesToReachDistance(dist - control - 0.2 - o.DistFromSelf*0.01)
		nTurnO := 0
		if o.BodyCount <= 1 {
			nTurnO = analyzer.TurnCycle(sp, t, o.Body, vel.Len(), dist, receive.Sub(at).Dir(), control, false)
		}
		nStep := nTurnO + nDashO
		if nTurnO > 0 {
			nStep++
		}

		bonus := 0
		if receive.X < 27 {
			bonus++
		}
		if o.Tackling {
			bonus = -5
		}
		if rel.X > 0.8 {
			bonus += 1 + clampInt(o.PosCount-1, 0, 8)
		} else {
			penalty := 0
			if receive.X > b.w.OffsideLineX || receive.X > 35 {
				penalty = 1
			}
			bonus = clampInt(o.PosCount-penalty, 0, 3)
		}
		if nStep-bonus <= selfStep {
			return false
		}
	}
	return true
}
