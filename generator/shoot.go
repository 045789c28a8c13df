package generator

import (
	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

const shootValidCount = 10

// Shoot appends a final shot at the centre of their goal when the holder
// has a clear enough cone. It is intended for later chain positions.
type Shoot struct{}

func (Shoot) Identity() string { return "shoot" }

func (Shoot) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	h := s.BallHolder()
	if h == nil || h.Ghost || h.PosCount > shootValidCount {
		return dst
	}
	sp := s.Server()
	if !analyzer.CanShootFrom(sp, h.Unum == s.SelfUnum(), h.Pos, s.Opponents(), shootValidCount) {
		return dst
	}
	goal := sp.TheirGoal()
	spend := max(1, int(h.Pos.Dist(goal)/1.5))
	a := action.NewShoot(h.Unum, goal, sp.BallSpeedMax, spend, 1, "shoot")
	return append(dst, action.Pair{Action: a, State: s.MoveBall(spend, goal)})
}
