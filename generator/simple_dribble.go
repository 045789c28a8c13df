package generator

import (
	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// SimpleDribble moves the holder a short way in eight directions. It
// never extends an empty chain.
type SimpleDribble struct {
	counter cycleCounter
}

func NewSimpleDribble() *SimpleDribble { return &SimpleDribble{} }

func (g *SimpleDribble) Identity() string { return "simple_dribble" }

func (g *SimpleDribble) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	const (
		angleDivs = 8
		angleStep = 360.0 / angleDivs
		distDivs  = 3
		distStep  = 1.75
		bonusStep = 2
	)
	if len(path) == 0 {
		return dst
	}
	h := s.BallHolder()
	if h == nil {
		return dst
	}
	sp := s.Server()
	maxX, maxY := sp.PitchHalfLength-1, sp.PitchHalfWidth-1
	t := h.Type

	for a := 0; a < angleDivs; a++ {
		angle := geom.Deg(angleStep * float64(a))
		if h.Pos.X < 16 && angle.Abs() > 100 {
			continue
		}
		if h.Pos.X < -36 && h.Pos.AbsY() < 20 && angle.Abs() > 45 {
			continue
		}
		unit := geom.Polar(1, angle)
		for d := 1; d <= distDivs; d++ {
			move := distStep * float64(d)
			target := h.Pos.Add(unit.Scale(move))
			if target.AbsX() > maxX || target.AbsY() > maxY {
				continue
			}
			// kick and turn, then dash
			reach := 2 + t.CyclesToReachDistance(move-t.KickableArea()*0.5)

			blocked := false
			for _, o := range s.Opponents() {
				oStep := 1 + o.Type.CyclesToReachDistance(o.Pos.Dist(target)-t.KickableArea())
				if oStep-bonusStep <= reach {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}

			speed := sp.FirstBallSpeed(s.Ball().Pos.Dist(target), reach)
			act := action.NewDribble(h.Unum, target, speed, 1, 1, reach-2, "simpleDribble")
			act.Index = g.counter.next(w.Time)
			dst = append(dst, action.Pair{Action: act, State: s.MoveBallAndHolder(reach, h.Unum, target)})
		}
	}
	return dst
}
