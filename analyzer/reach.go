// Package analyzer is the stateless kinematic toolkit shared by the
// generators: how long players need to turn and run somewhere, how many
// kicks a ball speed costs, and whether a shot or pass course is open.
package analyzer

import (
	"math"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// NeverReach is returned when a target cannot be reached in the horizon.
const NeverReach = 1000

// VirtualDashDistance is how far a player may have moved unseen: a
// damped sum over the cycles since it was last observed.
func VirtualDashDistance(p *state.Player) float64 {
	n := min(10, p.SeenPosCount, p.PosCount)
	speed := p.Type.RealSpeedMax() * 0.8
	d := 0.0
	for i := 1; i <= n; i++ {
		d += speed * math.Exp(-float64(i*i)/15)
	}
	return d
}

// TurnCycle is the number of turns a player moving at speed needs before
// a target at targetDist/targetAngle is within the margin that distThr
// subtends. With backDash, close targets behind the player count as
// reachable by dashing backwards.
func TurnCycle(sp *params.Server, t *params.PlayerType, body geom.Angle, speed, targetDist float64,
	targetAngle geom.Angle, distThr float64, backDash bool) int {
	diff := targetAngle.Diff(body)
	if backDash && targetDist < 5 && diff > 90 && sp.MinDashPower < -sp.MaxDashPower+1 {
		diff = math.Abs(diff - 180)
	}

	margin := 180.0
	if distThr < targetDist {
		margin = math.Max(15, geom.AsinDeg(distThr/targetDist))
	}

	n := 0
	for diff > margin {
		diff -= t.EffectiveTurn(sp.MaxMoment, speed)
		speed *= t.PlayerDecay
		n++
	}
	return n
}

// SelfReachCycle simulates the agent turning and dashing with its real
// stamina towards target and returns the first cycle it is within
// distThr, plus the stamina left at that point. It gives up after 30
// cycles and returns NeverReach.
func SelfReachCycle(w *world.World, target geom.Vector, distThr float64, wait int, saveRecovery bool) (int, params.Stamina) {
	self := w.Self()
	if self == nil {
		return NeverReach, params.Stamina{}
	}
	sp := &w.Params.Server
	t := w.Type(self)
	first := params.Stamina{Stamina: self.Stamina, Effort: t.EffortMax}

	if t.InertiaPoint(self.Pos, self.Vel, wait).Dist2(target) < distThr*distThr {
		return 0, first
	}

	firstSpeed := self.Vel.Len() * math.Pow(t.PlayerDecay, float64(wait))
	if wait > 0 {
		first.SimulateWaits(sp, t, wait)
	}

	for cycle := max(0, wait); cycle < 30; cycle++ {
		pos := t.InertiaPoint(self.Pos, self.Vel, cycle)
		dist := pos.Dist(target)
		if dist < distThr {
			return cycle, first
		}
		dashDist := dist - distThr*0.5
		if dashDist > t.RealSpeedMax()*float64(cycle-wait) {
			continue
		}

		nTurn := TurnCycle(sp, t, self.Body, firstSpeed, dist, target.Sub(pos).Dir(), distThr, false)
		if wait+nTurn >= cycle {
			continue
		}
		stamina := first
		stamina.SimulateWaits(sp, t, nTurn)

		if wait+nTurn+t.CyclesToReachDistance(dashDist) > cycle {
			continue
		}

		speed := firstSpeed * math.Pow(t.PlayerDecay, float64(nTurn))
		reach := 0.0
		nDash := 0
		for wait+nTurn+nDash < cycle {
			power := math.Min(sp.MaxDashPower, stamina.Stamina)
			if saveRecovery && stamina.Stamina-power < sp.RecoverDecThr() {
				power = math.Max(0, stamina.Stamina-sp.RecoverDecThr())
				if power < 1 {
					break
				}
			}
			speed = math.Min(speed+power*t.DashPowerRate*stamina.Effort, t.PlayerSpeedMax)
			reach += speed
			speed *= t.PlayerDecay
			stamina.SimulateDash(sp, t, power)
			nDash++
			if reach >= dashDist {
				break
			}
		}
		if reach >= dashDist {
			return wait + nTurn + nDash, stamina
		}
	}
	return NeverReach, first
}

// Reach configures PlayerReachCycle.
type Reach struct {
	// DistThr is the radius around the target that counts as arrived.
	DistThr float64
	// Penalty is added to the distance to cover, e.g. for stale
	// observations or a receiver that must arrive first.
	Penalty float64
	// When the body direction is older than BodyCountThr cycles,
	// DefaultTurn turns are assumed instead of estimating them.
	BodyCountThr int
	DefaultTurn  int
	Wait         int
	BackDash     bool
}

// maxDetailedCycle bounds the per-cycle check in PlayerReachCycle; beyond
// it the closed-form estimate from the inertia final point is used.
const maxDetailedCycle = 6

// PlayerReachCycle estimates the cycles player p needs to get within
// r.DistThr of target.
func PlayerReachCycle(sp *params.Server, p *state.Player, target geom.Vector, r Reach) int {
	t := p.Type
	pos, vel := p.Pos, p.Vel
	if p.SeenPosCount <= p.PosCount {
		pos = p.SeenPos
	}
	if p.SeenVelCount <= p.VelCount {
		vel = p.SeenVel
	}
	speed := vel.Len() * math.Pow(t.PlayerDecay, float64(r.Wait))

	turns := func(dist float64, from geom.Vector) int {
		if p.BodyCount > r.BodyCountThr {
			return r.DefaultTurn
		}
		return TurnCycle(sp, t, p.Body, speed, dist, target.Sub(from).Dir(), r.DistThr, r.BackDash)
	}

	final := t.InertiaFinalPoint(pos, vel)
	finalDist := final.Dist(target)
	estimate := r.Wait + turns(finalDist, final) + t.CyclesToReachDistance(finalDist+r.Penalty)
	if estimate > maxDetailedCycle {
		return estimate
	}

	for cycle := max(0, r.Wait); cycle <= maxDetailedCycle; cycle++ {
		at := t.InertiaPoint(pos, vel, cycle)
		dist := at.Dist(target) + r.Penalty
		if dist < r.DistThr {
			return cycle
		}
		dashDist := dist - r.DistThr*0.5
		if dashDist < 0.001 {
			return cycle
		}
		if dashDist > t.RealSpeedMax()*float64(cycle-r.Wait) {
			continue
		}
		nDash := t.CyclesToReachDistance(dashDist)
		if r.Wait+nDash > cycle {
			continue
		}
		if r.Wait+turns(dist, at)+nDash <= cycle {
			return cycle
		}
	}
	return estimate
}

// KickCount estimates the kicks needed to send the ball off at speed
// along dir. Outside normal play the ball is stationary and a single kick
// is assumed.
func KickCount(w *world.World, kicker int, speed float64, dir geom.Angle) int {
	if w.Mode != world.PlayOn && !w.Mode.IsPenaltyKick() {
		return 1
	}
	if kicker == w.SelfUnum && w.SelfKickable() {
		v := w.Params.Server.MaxKickVelocity(dir, w.SelfKickRate(), w.Ball.Vel)
		if v.Len2() >= speed*speed {
			return 1
		}
	}
	switch {
	case speed > 2.5:
		return 3
	case speed > 1.5:
		return 2
	}
	return 1
}
