package analyzer

import (
	"log/slog"
	"math"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
)

// PassChecker decides whether a pass from one teammate to another is safe
// enough to consider.
type PassChecker interface {
	Check(s *state.State, from, to *state.Player, receive geom.Vector, speed float64) bool
}

// SimplePassChecker is a cheap geometric pass filter: it rejects passes
// that are too short, too long, offside or into danger, and otherwise
// requires the pass course cone to be wide enough for the ball speed.
type SimplePassChecker struct{}

const (
	passValidTeammateCount = 8
	passValidOpponentCount = 20
	passNearDist           = 4.0
	passFarDist            = 35.0
	passMinSpeed           = 1.5
	passReferenceSpeed     = 2.5
	passCone               = 14.5
	backPassCone           = 17.5
	goaliePassCone         = 17.5
	chancePassCone         = 14.5
)

func (SimplePassChecker) Check(s *state.State, from, to *state.Player, receive geom.Vector, speed float64) bool {
	sp := s.Server()
	if from.Unum == to.Unum || speed < passMinSpeed {
		return false
	}
	if from.Ghost || to.Ghost || from.PosCount > passValidTeammateCount || to.PosCount > passValidTeammateCount {
		return false
	}

	fromPos := from.Pos
	if from.Self {
		fromPos = s.Ball().Pos
	}
	dist := fromPos.Dist(receive)
	if dist <= passNearDist || dist >= passFarDist {
		return false
	}
	if to.Pos.X >= s.OffsideLineX() {
		return false
	}
	if receive.X <= sp.OurPenaltyAreaLineX()+3 && receive.AbsY() <= sp.PenaltyAreaHalfWidth+3 {
		return false
	}
	if receive.AbsX() >= sp.PitchHalfLength || receive.AbsY() >= sp.PitchHalfWidth {
		return false
	}
	if to.Goalie {
		if receive.X < sp.OurPenaltyAreaLineX()+1 && receive.AbsY() < sp.PenaltyAreaHalfWidth+1 {
			return false
		}
		if receive.X > s.OurDefenseLineX()-3 {
			return false
		}
	}

	receiverMove := to.Pos.Dist(receive)
	passAngle := receive.Sub(fromPos).Dir()
	ignore := dist + 6
	if receive.X >= 25 {
		ignore = dist + 2
	}

	cone := 360.0
	ok := true
	s.OpponentsFromSelf(func(o *state.Player) bool {
		if o.PosCount > passValidOpponentCount {
			return true
		}
		if o.Pos.Dist2(receive) < 5*5 {
			ok = false
			return false
		}
		at := o.InertiaFinalPoint()
		d2 := fromPos.Dist2(at)
		if d2 > ignore*ignore {
			return true
		}
		if at.Dist(receive) < receiverMove*0.85 {
			ok = false
			return false
		}
		diff := at.Sub(fromPos).Dir().Diff(passAngle)
		if from.Self {
			hide := geom.AsinDeg(math.Min(o.Type.KickableArea()/math.Sqrt(d2), 1))
			diff = math.Max(diff-hide, 0)
		}
		cone = math.Min(cone, diff)
		return true
	})
	if !ok {
		return false
	}

	threshold := passCone
	if to.Pos.X-2 <= from.Pos.X {
		threshold = backPassCone
	}
	if from.Pos.X >= 25 && to.Pos.X >= 25 {
		threshold = chancePassCone
	}
	if from.Goalie {
		threshold = goaliePassCone
	}
	threshold *= passReferenceSpeed / speed
	return cone > threshold
}

// PassCount counts the teammates the current holder could pass to at
// speed. A non-negative limit stops counting early.
func PassCount(s *state.State, check PassChecker, speed float64, limit int) int {
	from := s.BallHolder()
	if from == nil {
		slog.Error("pass count without a ball holder", "cycle", s.Cycle())
		return 0
	}
	n := 0
	for i := range s.OurPlayers() {
		to := &s.OurPlayers()[i]
		if !to.Valid || to.Unum == from.Unum {
			continue
		}
		if check.Check(s, from, to, to.Pos, speed) {
			n++
			if limit >= 0 && n >= limit {
				return limit
			}
		}
	}
	return n
}
