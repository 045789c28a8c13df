package evaluator

import (
	"math"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/state"
)

const (
	goalScore  = 1.0e7
	shootBonus = 1.0e6
	// lostScore ranks a chain that loses the ball below everything else
	// while staying finite.
	lostScore = -math.MaxFloat64 / 2
)

// Sample rewards ball progress towards their goal, with large bonuses
// for a scored goal and for a holder in shooting position.
type Sample struct{}

func (Sample) Identity() string { return "sample" }

func (Sample) Evaluate(s *state.State, path []action.Pair) float64 {
	sp := s.Server()
	ball := s.Ball().Pos

	if ball.X >= sp.PitchHalfLength && ball.AbsY() < sp.GoalHalfWidth+2 {
		return goalScore
	}
	if ball.AbsX() > sp.PitchHalfLength || ball.AbsY() > sp.PitchHalfWidth {
		return lostScore
	}
	holder := s.BallHolder()
	if holder == nil {
		return lostScore
	}

	point := ball.X
	point += math.Max(0, 40-sp.TheirGoal().Dist(ball))

	if analyzer.CanShootFrom(sp, holder.Unum == s.SelfUnum(), holder.Pos, s.Opponents(), state.ValidPlayerThreshold) {
		point += shootBonus
	}
	return point
}
