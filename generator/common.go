package generator

import (
	"math"

	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// passer is who kicks first and where the ball will be when they do.
type passer struct {
	p     *state.Player
	first geom.Vector
}

func intercept(s *state.State, w *world.World) world.Intercept {
	if w.Intercept.Known {
		return w.Intercept
	}
	return analyzer.EstimateIntercept(s)
}

// findPasser resolves the first kicker: self when it controls the ball,
// otherwise whichever of self and the fastest teammate gets there within
// two cycles, unless the opponent clearly wins the ball. A teammate
// passer further than maxFromSelf from self is ignored.
func findPasser(s *state.State, w *world.World, maxFromSelf float64) (passer, bool) {
	if w.Time.Stopped > 0 || w.Mode.IsPenaltyKick() {
		return passer{}, false
	}
	self := s.Self()
	if !self.Valid {
		return passer{}, false
	}
	if w.SelfKickable() {
		return passer{p: self, first: w.Ball.Pos}, true
	}

	ic := intercept(s, w)
	ours := min(ic.Self, ic.Teammate)
	if ic.Opponent < min(ours-4, int(math.Round(float64(ours)*0.9))) {
		return passer{}, false
	}

	sp := &w.Params.Server
	var pa passer
	switch {
	case ic.Self <= ic.Teammate:
		if ic.Self > 2 {
			return passer{}, false
		}
		pa = passer{p: self, first: sp.BallInertiaPoint(w.Ball.Pos, w.Ball.Vel, ic.Self)}
	default:
		if ic.Teammate > 2 || ic.FastestTeammate == world.UnknownUnum {
			return passer{}, false
		}
		mate := s.Our(ic.FastestTeammate)
		if !mate.Valid {
			return passer{}, false
		}
		pa = passer{p: mate, first: sp.BallInertiaPoint(w.Ball.Pos, w.Ball.Vel, ic.Teammate)}
	}
	if !pa.p.Self && pa.first.Dist2(self.Pos) > maxFromSelf*maxFromSelf {
		return passer{}, false
	}
	return pa, true
}

// maxFirstSpeed is the fastest kick available: anything in play, one kick
// from a stationary ball otherwise.
func maxFirstSpeed(w *world.World) float64 {
	sp := &w.Params.Server
	switch {
	case w.Mode == world.PlayOn:
		return sp.BallSpeedMax
	case w.SelfKickable():
		return w.SelfKickRate() * sp.MaxPower
	}
	return sp.KickPowerRate * sp.MaxPower
}

// ballMoveStep is the number of cycles a ball kicked at speed needs to
// cover dist, or -1 when it stops short.
func ballMoveStep(sp *params.Server, speed, dist float64) int {
	n := geom.LengthGeomSeries(speed, dist, sp.BallDecay)
	if n < 0 {
		return -1
	}
	return int(math.Ceil(n))
}

func inertiaFinalDistance(sp *params.Server, speed float64) float64 {
	return geom.SumInfGeomSeries(speed, sp.BallDecay)
}

// seenPosVel prefers the last directly seen values when they are at
// least as fresh as the estimates.
func seenPosVel(p *state.Player) (geom.Vector, geom.Vector) {
	pos, vel := p.Pos, p.Vel
	if p.SeenPosCount <= p.PosCount {
		pos = p.SeenPos
	}
	if p.SeenVelCount <= p.VelCount {
		vel = p.SeenVel
	}
	return pos, vel
}

// receiver is the per-cycle record of a pass target.
type receiver struct {
	p           *state.Player
	pos         geom.Vector
	vel         geom.Vector
	inertia     geom.Vector
	speed       float64
	penaltyDist float64
	penaltyStep int
	fromBall    geom.Angle
}

func newReceiver(p *state.Player, firstBall geom.Vector) receiver {
	pos, vel := seenPosVel(p)
	pen := analyzer.VirtualDashDistance(p)
	return receiver{
		p:           p,
		pos:         pos,
		vel:         vel,
		inertia:     p.Type.InertiaFinalPoint(pos, vel),
		speed:       vel.Len(),
		penaltyDist: pen,
		penaltyStep: p.Type.CyclesToReachDistance(pen),
		fromBall:    p.Pos.Sub(firstBall).Dir(),
	}
}

// opponent is the per-cycle record of a possible interceptor.
type opponent struct {
	p     *state.Player
	pos   geom.Vector
	vel   geom.Vector
	speed float64
	bonus float64
}

func newOpponent(p *state.Player) opponent {
	pos, vel := seenPosVel(p)
	return opponent{
		p:     p,
		pos:   pos,
		vel:   vel,
		speed: vel.Len(),
		bonus: analyzer.VirtualDashDistance(p),
	}
}

// minReachCycle is a lower bound on the cycles a player at pos needs to
// meet a ball leaving first along dir, or -1 when the player is behind
// the ball.
func minReachCycle(pos geom.Vector, speedMax float64, first geom.Vector, dir geom.Angle) int {
	rel := pos.Sub(first).Rotate(-dir)
	if rel.X < -1 {
		return -1
	}
	return max(1, int(math.Floor(rel.AbsY()/speedMax)))
}

// selfStamina is the agent's stamina at full effort.
func selfStamina(w *world.World) params.Stamina {
	self := w.Self()
	return params.Stamina{Stamina: self.Stamina, Effort: w.Type(self).EffortMax}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// controlArea is the opponent's reach for a ball at p: the catch radius
// for a goalie inside their penalty area, the kickable radius otherwise.
func controlArea(sp *params.Server, o *state.Player, p geom.Vector) float64 {
	if o.Goalie && p.X > sp.TheirPenaltyAreaLineX() && p.AbsY() < sp.PenaltyAreaHalfWidth {
		return sp.CatchableArea()
	}
	return o.Type.KickableArea()
}
