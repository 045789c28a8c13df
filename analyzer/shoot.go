package analyzer

import (
	"math"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
)

// occluder is a player seen from a shooting position: the direction to
// where it will stop and the half angle its control area covers.
type occluder struct {
	angle geom.Angle
	hide  float64
}

func newOccluder(sp *params.Server, p *state.Player, from geom.Vector) occluder {
	at := p.InertiaFinalPoint()
	control := p.Type.KickableArea()
	if p.Goalie {
		control = sp.CatchAreaLength
	}
	return occluder{
		angle: at.Sub(from).Dir(),
		hide:  geom.AsinDeg(math.Min(control/at.Dist(from), 1)),
	}
}

// widestClearance samples count+1 directions from start, rotating by sign
// each step, and returns the best over samples of the smallest gap to any
// occluder once each occluder is widened by hideScale of its hide angle.
// Sampling of a direction stops as soon as its gap drops under stopBelow.
func widestClearance(start geom.Angle, width, sign float64, occ []occluder, hideScale, stopBelow float64) float64 {
	step := math.Max(2, width/10)
	best := 0.0
	for a := 0.0; a < width+0.001; a += step {
		dir := start.Add(sign * a)
		gap := 180.0
		for _, o := range occ {
			d := o.angle.Diff(dir) - o.hide*hideScale
			if d < gap {
				gap = d
				if gap < stopBelow {
					break
				}
			}
		}
		best = math.Max(best, gap)
	}
	return best
}

// CanShootFrom reports whether a shot from pos into their goal has a
// clear course. The acting player (self) needs a wider course than a
// teammate a chain merely passes to.
func CanShootFrom(sp *params.Server, self bool, pos geom.Vector, opponents []state.Player, validCountThr int) bool {
	const distThr = 17.0
	threshold := 15.0
	hideScale := 0.5
	if self {
		threshold = 20
		hideScale = 1
	}
	if sp.TheirGoal().Dist2(pos) > distThr*distThr {
		return false
	}

	minus := geom.V(sp.PitchHalfLength, -sp.GoalHalfWidth+0.5)
	plus := geom.V(sp.PitchHalfLength, sp.GoalHalfWidth-0.5)
	minusAngle := minus.Sub(pos).Dir()
	width := plus.Sub(pos).Dir().Diff(minusAngle)

	occ := make([]occluder, 0, len(opponents))
	for i := range opponents {
		o := &opponents[i]
		if o.PosCount > validCountThr || o.Pos.Dist2(pos) > 20*20 {
			continue
		}
		occ = append(occ, newOccluder(sp, o, pos))
	}
	return widestClearance(minusAngle, width, 1, occ, hideScale, threshold) >= threshold
}

// ShootThresholds tunes OpponentCanShootFrom. Zero fields take the
// defaults 40, 12 and 40.
type ShootThresholds struct {
	Dist         float64
	Angle        float64
	TeammateDist float64
	// Detail keeps sampling a direction after it is known to be blocked,
	// so the returned clearance is exact.
	Detail bool
}

// OpponentCanShootFrom is the mirror of CanShootFrom for an opponent
// shooting at our goal past our teammates. It also returns the widest
// clearance found.
func OpponentCanShootFrom(sp *params.Server, pos geom.Vector, teammates []state.Player, validCountThr int, th ShootThresholds) (bool, float64) {
	distThr := th.Dist
	if distThr <= 0 {
		distThr = 40
	}
	angleThr := th.Angle
	if angleThr <= 0 {
		angleThr = 12
	}
	mateThr := th.TeammateDist
	if mateThr <= 0 {
		mateThr = 40
	}

	if DistFromOurNearGoalPost(sp, pos) > distThr {
		return false, 0
	}

	occ := make([]occluder, 0, len(teammates))
	for i := range teammates {
		t := &teammates[i]
		if !t.Valid || t.PosCount > validCountThr || t.Pos.Dist2(pos) > mateThr*mateThr {
			continue
		}
		occ = append(occ, newOccluder(sp, t, pos))
	}

	minus := geom.V(-sp.PitchHalfLength, -sp.GoalHalfWidth+0.5)
	plus := geom.V(-sp.PitchHalfLength, sp.GoalHalfWidth-0.5)
	minusAngle := minus.Sub(pos).Dir()
	width := plus.Sub(pos).Dir().Diff(minusAngle)

	stop := angleThr
	if th.Detail {
		stop = math.Inf(-1)
	}
	best := widestClearance(minusAngle, width, -1, occ, 0.5, stop)
	return best >= angleThr, best
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// OurNearGoalPost is our goal post on the same side as p.
func OurNearGoalPost(sp *params.Server, p geom.Vector) geom.Vector {
	return geom.V(-sp.PitchHalfLength, sign(p.Y)*sp.GoalHalfWidth)
}

func OurFarGoalPost(sp *params.Server, p geom.Vector) geom.Vector {
	return geom.V(-sp.PitchHalfLength, -sign(p.Y)*sp.GoalHalfWidth)
}

func TheirNearGoalPost(sp *params.Server, p geom.Vector) geom.Vector {
	return geom.V(sp.PitchHalfLength, sign(p.Y)*sp.GoalHalfWidth)
}

func TheirFarGoalPost(sp *params.Server, p geom.Vector) geom.Vector {
	return geom.V(sp.PitchHalfLength, -sign(p.Y)*sp.GoalHalfWidth)
}

func DistFromOurNearGoalPost(sp *params.Server, p geom.Vector) float64 {
	return math.Min(p.Dist(geom.V(-sp.PitchHalfLength, -sp.GoalHalfWidth)),
		p.Dist(geom.V(-sp.PitchHalfLength, sp.GoalHalfWidth)))
}

func DistFromTheirNearGoalPost(sp *params.Server, p geom.Vector) float64 {
	return math.Min(p.Dist(geom.V(sp.PitchHalfLength, -sp.GoalHalfWidth)),
		p.Dist(geom.V(sp.PitchHalfLength, sp.GoalHalfWidth)))
}
