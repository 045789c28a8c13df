package generator

import (
	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// DirectPass is the cheap pass enumerator used deeper in a chain: one
// pass to each teammate's current position, screened by a PassChecker.
// Players who already held the ball earlier in the chain are skipped.
type DirectPass struct {
	Check   analyzer.PassChecker
	counter cycleCounter
}

func NewDirectPass() *DirectPass { return &DirectPass{Check: analyzer.SimplePassChecker{}} }

func (g *DirectPass) Identity() string { return "direct_pass" }

func passSpeedFor(dist float64) float64 {
	switch {
	case dist >= 20:
		return 2.5
	case dist >= 8:
		return 2.0
	case dist >= 5:
		return 1.8
	}
	return 1.5
}

// previousHolders marks every seat that held the ball along path,
// starting with whoever controls it now.
func previousHolders(s *state.State, w *world.World, path []action.Pair) [world.MaxUnum + 1]bool {
	var held [world.MaxUnum + 1]bool
	if len(path) == 0 {
		return held
	}
	ic := intercept(s, w)
	first := w.SelfUnum
	if ic.Teammate < ic.Self {
		first = ic.FastestTeammate
	}
	if first >= 1 && first <= world.MaxUnum {
		held[first] = true
	}
	for _, p := range path[:len(path)-1] {
		if u := p.State.BallHolderUnum(); u >= 1 && u <= world.MaxUnum {
			held[u] = true
		}
	}
	return held
}

func (g *DirectPass) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	const validCount = 10
	h := s.BallHolder()
	if h == nil {
		return dst
	}
	held := previousHolders(s, w, path)
	sp := s.Server()
	for i := range s.OurPlayers() {
		p := &s.OurPlayers()[i]
		if !p.Valid || held[p.Unum] || p.Unum == h.Unum {
			continue
		}
		if p.PosCount > validCount || p.Ghost || p.Tackling {
			continue
		}
		dist := p.Pos.Dist(h.Pos)
		speed := passSpeedFor(dist)
		if !g.Check.Check(s, h, p, p.Pos, speed) {
			continue
		}
		const kick = 2
		n := geom.LengthGeomSeries(speed, dist, sp.BallDecay)
		if n < 0 {
			continue
		}
		spend := int(n) + kick
		a := action.NewPass(h.Unum, p.Unum, p.Pos, speed, spend, kick, false, "directPass")
		a.Index = g.counter.next(w.Time)
		dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(spend, p.Unum, p.Pos)})
	}
	return dst
}
