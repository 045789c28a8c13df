package analyzer

import (
	"math"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// lineCrossPoint clips the ball path from-to at the field line p1-p2,
// backed off towards from by offset.
func lineCrossPoint(from, to, p1, p2 geom.Vector, offset float64) geom.Vector {
	c, ok := geom.SegmentIntersection(from, to, p1, p2)
	if !ok {
		return to
	}
	if to.Sub(from).Len() <= 1e-6 {
		return c
	}
	return c.Add(geom.Polar(offset, from.Sub(to).Dir()))
}

// FieldBoundBallPos is where the ball will be in step cycles, stopped at
// the touch and goal lines.
func FieldBoundBallPos(w *world.World, step int, backOffset float64) geom.Vector {
	sp := &w.Params.Server
	cur := w.Ball.Pos
	pred := sp.BallInertiaPoint(cur, w.Ball.Vel, step)
	l, h := sp.PitchHalfLength, sp.PitchHalfWidth

	if !sp.InPitch(cur, 0) && !sp.InPitch(pred, 0) {
		return geom.V(math.Max(-l, math.Min(l, cur.X)), math.Max(-h, math.Min(h, cur.Y)))
	}

	return ClipToField(sp, cur, pred, backOffset)
}

// ClipToField stops the path from-to at the touch and goal lines, backed
// off towards from by backOffset. The result is always on the field.
func ClipToField(sp *params.Server, from, to geom.Vector, backOffset float64) geom.Vector {
	l, h := sp.PitchHalfLength, sp.PitchHalfWidth
	c1, c2, c3, c4 := geom.V(l, h), geom.V(l, -h), geom.V(-l, -h), geom.V(-l, h)
	p := lineCrossPoint(from, to, c1, c2, backOffset)
	p = lineCrossPoint(from, p, c2, c3, backOffset)
	p = lineCrossPoint(from, p, c3, c4, backOffset)
	p = lineCrossPoint(from, p, c4, c1, backOffset)
	return geom.V(math.Max(-l, math.Min(l, p.X)), math.Max(-h, math.Min(h, p.Y)))
}

// DistNearestToPoint is the distance from point to the nearest non-ghost
// player whose position count is at most countThr (-1 disables the
// count check). With no candidate it returns a large sentinel.
func DistNearestToPoint(point geom.Vector, players []state.Player, countThr int) float64 {
	best := 65535.0
	for i := range players {
		p := &players[i]
		if !p.Valid || p.Ghost {
			continue
		}
		if countThr != -1 && p.PosCount > countThr {
			continue
		}
		best = math.Min(best, p.Pos.Dist2(point))
	}
	return math.Sqrt(best)
}

// ToBeFinalAction reports whether an action leaving the ball at ballPos
// should end the chain: beyond their defense line, but not yet close
// enough to goal that a follow-up shot is worth searching for.
func ToBeFinalAction(ballPos geom.Vector, theirDefenseLineX float64) bool {
	if ballPos.X > 30 {
		return false
	}
	return ballPos.X > theirDefenseLineX
}

// FinalFor applies ToBeFinalAction to a predicted state.
func FinalFor(s *state.State) bool {
	return ToBeFinalAction(s.Ball().Pos, s.TheirDefenseLineX())
}

// DefaultBlockBase is the point an attacking opponent is assumed to head
// for when looking for a blocker.
func DefaultBlockBase(sp *params.Server) geom.Vector {
	return geom.V(-sp.PitchHalfLength*0.6+sp.OurPenaltyAreaLineX()*0.4, 0)
}

// Blocker returns a teammate already standing between the opponent at
// opp and base, or nil.
func Blocker(teammates []state.Player, opp, base geom.Vector) *state.Player {
	attack := base.Sub(opp).Dir()
	for i := range teammates {
		t := &teammates[i]
		if !t.Valid || t.Goalie || t.Ghost || t.PosCount >= 5 {
			continue
		}
		d2 := opp.Dist2(t.Pos)
		if d2 < 1 || d2 > 16 {
			continue
		}
		if t.Pos.Sub(opp).Dir().Diff(attack) < 15 {
			return t
		}
	}
	return nil
}

// BallMovingToOurGoal reports whether the ball's heading passes between
// our posts, widened by postBuffer.
func BallMovingToOurGoal(sp *params.Server, pos, vel geom.Vector, postBuffer float64) bool {
	plus := geom.V(-sp.PitchHalfLength, sp.GoalHalfWidth+postBuffer)
	minus := geom.V(-sp.PitchHalfLength, -sp.GoalHalfWidth-postBuffer)
	heading := vel.Dir()
	return plus.Sub(pos).Dir().Sub(heading).Degree() < 0 &&
		minus.Sub(pos).Dir().Sub(heading).Degree() > 0
}

// interceptHorizon bounds the ball trajectory EstimateIntercept follows.
const interceptHorizon = 50

// EstimateIntercept fills the interception summary for hosts that do not
// provide one: the first cycle each side can reach the moving ball.
func EstimateIntercept(s *state.State) world.Intercept {
	w := s.World()
	sp := s.Server()
	ball := s.Ball()
	res := world.Intercept{
		Known:           true,
		Self:            NeverReach,
		Teammate:        NeverReach,
		Opponent:        NeverReach,
		FastestTeammate: world.UnknownUnum,
	}

	reachable := func(p *state.Player) int {
		r := Reach{DistThr: p.Type.KickableArea(), BodyCountThr: 10, DefaultTurn: 1}
		if p.Goalie && p.Side == state.Theirs {
			r.DistThr = sp.CatchableArea()
		}
		for step := 0; step <= interceptHorizon; step++ {
			pt := sp.BallInertiaPoint(ball.Pos, ball.Vel, step)
			if PlayerReachCycle(sp, p, pt, r) <= step {
				return step
			}
		}
		return NeverReach
	}

	if self := w.Self(); self != nil {
		kickable := w.Type(self).KickableArea()
		for step := 0; step <= interceptHorizon; step++ {
			pt := sp.BallInertiaPoint(ball.Pos, ball.Vel, step)
			if n, _ := SelfReachCycle(w, pt, kickable, 0, false); n <= step {
				res.Self = step
				break
			}
		}
	}
	for _, p := range s.OurPlayers() {
		if !p.Valid || p.Self || p.Ghost {
			continue
		}
		if n := reachable(&p); n < res.Teammate {
			res.Teammate = n
			res.FastestTeammate = p.Unum
		}
	}
	for _, p := range s.Opponents() {
		if p.Ghost {
			continue
		}
		res.Opponent = min(res.Opponent, reachable(&p))
	}
	return res
}
