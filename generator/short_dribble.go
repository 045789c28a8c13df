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

// ShortDribble builds kick-turn-dash dribbles of a few cycles in sixteen
// directions, plus dash-only dribbles when the ball already runs along
// the body direction.
type ShortDribble struct {
	Logger *slog.Logger
	cache  CycleCache[[]*action.Action]

	queuedTime world.Time
	queued     *action.Action
}

func NewShortDribble() *ShortDribble { return &ShortDribble{} }

func (g *ShortDribble) Identity() string { return "short_dribble" }

// SetQueued makes a previously chosen dribble available as a candidate
// again during cycle t.
func (g *ShortDribble) SetQueued(t world.Time, a *action.Action) {
	g.queuedTime, g.queued = t, a
}

func (g *ShortDribble) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if len(path) != 0 || (w.Mode != world.PlayOn && !w.Mode.IsPenaltyKick()) {
		return dst
	}
	for _, a := range g.Courses(s, w) {
		dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(a.Duration+3, a.Target, a.TargetPoint)})
	}
	return dst
}

// Courses returns this cycle's dribbles, nearest to their goal first.
func (g *ShortDribble) Courses(s *state.State, w *world.World) []*action.Action {
	return g.cache.Get(w.Time, func() []*action.Action {
		if w.Mode != world.PlayOn && !w.Mode.IsPenaltyKick() {
			return nil
		}
		d := dribbleBuilder{s: s, w: w}
		if g.queued != nil && g.queuedTime == w.Time {
			d.courses = append(d.courses, g.queued)
		}
		if !w.SelfKickable() {
			return d.courses
		}
		d.createCourses()
		action.SortByDistance(d.courses, w.Params.Server.TheirGoal())
		logger(g.Logger).Debug("short dribble courses", "cycle", w.Time.Cycle, "courses", len(d.courses), "checked", d.count)
		return d.courses
	})
}

type dribbleBuilder struct {
	s       *state.State
	w       *world.World
	count   int
	courses []*action.Action
}

func (d *dribbleBuilder) createCourses() {
	const (
		angleDivs = 16
		angleStep = 360.0 / angleDivs
	)
	sp := &d.w.Params.Server
	self := d.w.Self()
	t := d.w.Type(self)
	firstSpeed := self.Vel.Len()

	for a := 0; a < angleDivs; a++ {
		dashAngle := self.Body.Add(angleStep * float64(a))
		if self.Pos.X < 16 && dashAngle.Abs() > 100 {
			continue
		}
		if self.Pos.X < -36 && self.Pos.AbsY() < 20 && dashAngle.Abs() > 45 {
			continue
		}

		nTurn := 0
		speed := firstSpeed * t.PlayerDecay // the first cycle is the kick
		dirDiff := geom.Deg(angleStep * float64(a)).Abs()
		for dirDiff > 10 {
			dirDiff = math.Max(0, dirDiff-t.EffectiveTurn(sp.MaxMoment, speed))
			speed *= t.PlayerDecay
			nTurn++
		}
		if nTurn >= 3 {
			continue
		}
		if a == 0 {
			d.simulateDashes()
		}
		if angleStep*float64(a) < 180 {
			dashAngle = dashAngle.Add(-dirDiff)
		} else {
			dashAngle = dashAngle.Add(dirDiff)
		}
		d.simulateKickTurnsDashes(dashAngle, nTurn)
	}
}

// simulateDashes keeps the ball in front of the body with dashes only.
func (d *dribbleBuilder) simulateDashes() {
	oppReach := intercept(d.s, d.w).Opponent
	if oppReach <= 1 {
		return
	}
	sp := &d.w.Params.Server
	self := d.w.Self()
	t := d.w.Type(self)
	maxX, maxY := sp.PitchHalfLength-0.5, sp.PitchHalfWidth-0.5
	kickable := t.KickableArea()
	dashAngle := self.Body
	unit := geom.Polar(1, dashAngle)

	firstSelf, firstBall := self.Pos, d.w.Ball.Pos
	selfPos, selfVel := firstSelf, self.Vel
	ballPos, ballVel := firstBall, d.w.Ball.Vel
	stamina := selfStamina(d.w)

	for nDash := 1; nDash <= 20 && nDash < oppReach; nDash++ {
		ballPos = ballPos.Add(ballVel)
		if ballPos.AbsX() > maxX || ballPos.AbsY() > maxY {
			break
		}
		selfPos = selfPos.Add(selfVel)
		rel := ballPos.Sub(selfPos).Rotate(-dashAngle)
		if rel.X < -kickable || rel.AbsY() > kickable {
			break
		}

		noise := math.Min(0.1, firstSelf.Dist(selfPos)*sp.PlayerRand) +
			math.Min(0.1, firstBall.Dist(ballPos)*sp.BallRand)
		reach := kickable - noise - 0.15
		power := stamina.SafetyDashPower(sp, sp.MaxDashPower)
		maxAccel := power * t.DashPowerRate * stamina.Effort
		if rel.Len2() > math.Pow(maxAccel+reach, 2) {
			break
		}
		if geom.DistToSegment(ballPos, selfPos, selfPos.Add(unit.Scale(maxAccel))) > reach {
			break
		}

		accel := -1.0
		minAccel := math.Min(0.3, maxAccel-0.001)
		for l := maxAccel; l > minAccel; l -= 0.05 {
			dist := selfPos.Add(unit.Scale(l)).Dist(ballPos)
			if dist < reach && dist > t.PlayerSize+sp.BallSize+0.2-0.1*float64(nDash) {
				accel = l
				break
			}
		}
		if accel < 0 {
			break
		}

		dashPower := accel / (t.DashPowerRate * stamina.Effort)
		selfPos = selfPos.Add(unit.Scale(accel))
		selfVel = selfVel.Add(unit.Scale(accel)).Scale(t.PlayerDecay)
		stamina.SimulateDash(sp, t, dashPower)
		ballVel = ballVel.Scale(sp.BallDecay)

		a := action.NewDribble(self.Unum, ballPos, d.w.Ball.Vel.Len(), 0, 0, nDash, "shortDribbleAdvance")
		a.Index = d.count
		a.FirstDashPower = dashPower
		d.courses = append(d.courses, a)
	}
}

// selfCache holds the agent's position after the kick, each turn and
// each dash.
func (d *dribbleBuilder) selfCache(dashAngle geom.Angle, nTurn, nDash int) []geom.Vector {
	sp := &d.w.Params.Server
	self := d.w.Self()
	t := d.w.Type(self)
	stamina := selfStamina(d.w)

	pos, vel := self.Pos.Add(self.Vel), self.Vel.Scale(t.PlayerDecay)
	out := []geom.Vector{pos}
	for i := 0; i < nTurn; i++ {
		pos = pos.Add(vel)
		vel = vel.Scale(t.PlayerDecay)
		out = append(out, pos)
	}
	stamina.SimulateWaits(sp, t, 1+nTurn)

	unit := geom.Polar(1, dashAngle)
	for i := 0; i < nDash; i++ {
		power := math.Min(math.Max(0, stamina.Stamina-sp.RecoverDecThr()-300), sp.MaxDashPower)
		vel = vel.Add(unit.Scale(power * t.DashPowerRate * stamina.Effort))
		pos = pos.Add(vel)
		vel = vel.Scale(t.PlayerDecay)
		stamina.SimulateDash(sp, t, power)
		out = append(out, pos)
	}
	return out
}

func (d *dribbleBuilder) simulateKickTurnsDashes(dashAngle geom.Angle, nTurn int) {
	const (
		maxDash = 4
		minDash = 2
	)
	sp := &d.w.Params.Server
	self := d.w.Self()
	t := d.w.Type(self)
	cache := d.selfCache(dashAngle, nTurn, maxDash)
	trapRel := geom.Polar(t.PlayerSize+t.KickableMargin*0.2+sp.BallSize, dashAngle)
	maxX, maxY := sp.PitchHalfLength-1, sp.PitchHalfWidth-1
	firstBall, ballVel := d.w.Ball.Pos, d.w.Ball.Vel
	kickRate := d.w.SelfKickRate()

	for nDash := maxDash; nDash >= minDash; nDash-- {
		trap := cache[nTurn+nDash].Add(trapRel)
		d.count++
		if trap.AbsX() > maxX || trap.AbsY() > maxY {
			continue
		}
		term := (1 - math.Pow(sp.BallDecay, float64(1+nTurn+nDash))) / (1 - sp.BallDecay)
		firstVel := trap.Sub(firstBall).Scale(1 / term)
		kickAccel := firstVel.Sub(ballVel)
		if kickRate <= 0 || kickAccel.Len()/kickRate > sp.MaxPower ||
			kickAccel.Len2() > sp.BallAccelMax*sp.BallAccelMax ||
			firstVel.Len2() > sp.BallSpeedMax*sp.BallSpeedMax {
			continue
		}
		if firstBall.Add(firstVel).Dist2(cache[0]) < math.Pow(t.PlayerSize+sp.BallSize+0.1, 2) {
			continue
		}
		if !d.safe(trap, 1+nTurn+nDash) {
			continue
		}
		a := action.NewDribble(self.Unum, trap, firstVel.Len(), 1, nTurn, nDash, "shortDribble")
		a.Index = d.count
		d.courses = append(d.courses, a)
	}
}

// safe reports whether no nearby opponent reaches trap within step cycles.
func (d *dribbleBuilder) safe(trap geom.Vector, step int) bool {
	sp := &d.w.Params.Server
	first := d.w.Ball.Pos
	moveAngle := trap.Sub(first).Dir()

	for o := range d.s.OpponentsFromSelf {
		if o.DistFromSelf > 20 {
			break
		}
		t := o.Type
		control := controlArea(sp, o, trap)
		at := o.InertiaPoint(step)
		rel := o.Pos.Sub(first).Rotate(-moveAngle)
		if rel.X < -4 {
			continue
		}
		dist := at.Dist(trap)
		if dist-control < 0.001 {
			return false
		}
		nDash := t.CyclesToReachDistance(dist - control*0.5 - 0.2)
		nTurn := 1
		if o.BodyCount <= 1 {
			nTurn = analyzer.TurnCycle(sp, t, o.Body, o.Vel.Len(), dist, trap.Sub(at).Dir(), control, true)
		}
		nStep := nTurn + nDash
		if nTurn > 0 {
			nStep++
		}

		bonus := 0
		if trap.X < 30 {
			bonus++
		}
		if trap.X < 0 {
			bonus++
		}
		if o.Tackling {
			bonus = -5
		}
		if rel.X > 0.5 {
			bonus += clampInt(o.PosCount, 0, 8)
		} else {
			bonus += clampInt(o.PosCount, 0, 4)
		}
		if nStep-bonus <= step {
			return false
		}
	}
	return true
}
