// Package state holds the predicted state: an immutable snapshot of the
// ball and players at some point along a candidate action chain.
//
// The root is built from the live world; every child is derived from its
// parent by exactly one of AdvanceTime, MoveBallAndHolder or MoveBall.
package state

import (
	"log/slog"
	"math"
	"sort"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/world"
)

// ValidPlayerThreshold is the largest position count for which a player
// is still trusted as a ball holder or evaluation input.
const ValidPlayerThreshold = 8

// Ball is the predicted ball.
type Ball struct {
	Pos geom.Vector
	Vel geom.Vector
}

// State is a predicted snapshot. The zero value is not usable; build one
// with New or NewWithLogger.
type State struct {
	world  *world.World
	log    *slog.Logger
	spend  int
	holder int
	self   int
	ball   Ball

	// ours is indexed by unum-1 and always has world.MaxUnum entries.
	ours   []Player
	theirs []Player
	// fromSelf holds indexes into theirs ordered by distance to self.
	fromSelf []int

	defenseLineX float64
	offenseLineX float64
}

// New builds the root state from the live world, logging through the
// default logger.
func New(w *world.World) *State {
	return NewWithLogger(w, nil)
}

// NewWithLogger is New with an explicit logger shared by every state
// derived from the root. A nil logger means slog.Default().
func NewWithLogger(w *world.World, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		world:  w,
		log:    logger,
		holder: world.UnknownUnum,
		self:   w.SelfUnum,
		ball:   Ball{Pos: w.Ball.Pos, Vel: w.Ball.Vel},
		ours:   make([]Player, world.MaxUnum),
	}
	for i := range s.ours {
		s.ours[i] = Player{Unum: i + 1, Side: Ours, Type: w.Params.DefaultType()}
	}
	for i := range w.Teammates {
		p := &w.Teammates[i]
		if p.Unum < 1 || p.Unum > world.MaxUnum {
			s.log.Error("teammate with invalid seat ignored", "unum", p.Unum)
			continue
		}
		s.ours[p.Unum-1] = fromWorld(w, p, Ours)
	}
	s.theirs = make([]Player, 0, len(w.Opponents))
	for i := range w.Opponents {
		s.theirs = append(s.theirs, fromWorld(w, &w.Opponents[i], Theirs))
	}
	s.fromSelf = make([]int, len(s.theirs))
	for i := range s.fromSelf {
		s.fromSelf[i] = i
	}
	sort.SliceStable(s.fromSelf, func(i, j int) bool {
		return s.theirs[s.fromSelf[i]].DistFromSelf < s.theirs[s.fromSelf[j]].DistFromSelf
	})

	s.holder = s.initialHolder()
	s.offenseLineX = -w.Params.Server.PitchHalfLength
	for i := range s.ours {
		if s.ours[i].Valid && s.ours[i].Pos.X > s.offenseLineX {
			s.offenseLineX = s.ours[i].Pos.X
		}
	}
	s.updateLines()
	return s
}

// initialHolder picks the trusted teammate nearest to the ball when it is
// closer than self, and self otherwise.
func (s *State) initialHolder() int {
	self := s.Self()
	if !self.Valid {
		s.log.Error("self missing from predicted state", "unum", s.self)
		return world.UnknownUnum
	}
	best := world.UnknownUnum
	bestDist2 := math.Inf(1)
	for i := range s.ours {
		p := &s.ours[i]
		if !p.Valid || p.Self || p.PosCount > ValidPlayerThreshold {
			continue
		}
		if d2 := p.Pos.Dist2(s.ball.Pos); d2 < bestDist2 {
			best, bestDist2 = p.Unum, d2
		}
	}
	if best != world.UnknownUnum && bestDist2 < self.Pos.Dist2(s.ball.Pos) {
		return best
	}
	return self.Unum
}

func (s *State) updateLines() {
	s.defenseLineX = math.Min(s.world.OurDefenseLineX, s.ball.Pos.X)
}

// derive copies s one or more steps later. Every child is at least one
// step after its parent.
func (s *State) derive(steps int) *State {
	if steps < 1 {
		s.log.Error("non-positive step count in state derivation", "steps", steps)
		steps = 1
	}
	c := *s
	c.spend = s.spend + steps
	return &c
}

// AdvanceTime returns a child where only time has passed.
func (s *State) AdvanceTime(steps int) *State {
	return s.derive(steps)
}

// MoveBallAndHolder returns a child where the ball rests at pos under the
// control of teammate holder, who has moved there. An invalid or
// unobserved holder leaves the child without a holder.
func (s *State) MoveBallAndHolder(steps, holder int, pos geom.Vector) *State {
	c := s.derive(steps)
	c.ball = Ball{Pos: pos}
	if holder < 1 || holder > world.MaxUnum || !s.ours[holder-1].Valid {
		s.log.Error("invalid ball holder in state derivation", "unum", holder)
		c.holder = world.UnknownUnum
		c.updateLines()
		return c
	}
	c.holder = holder
	c.ours = make([]Player, len(s.ours))
	copy(c.ours, s.ours)
	c.ours[holder-1] = c.ours[holder-1].movedTo(pos, pos)
	c.offenseLineX = math.Max(s.offenseLineX, pos.X)
	c.updateLines()
	return c
}

// MoveBall returns a child where the ball rests at pos and the holder is
// unchanged.
func (s *State) MoveBall(steps int, pos geom.Vector) *State {
	c := s.derive(steps)
	c.ball = Ball{Pos: pos}
	c.updateLines()
	return c
}

// SpendTime is the number of cycles elapsed since the root state.
func (s *State) SpendTime() int { return s.spend }

func (s *State) Ball() Ball { return s.ball }
func (s *State) BallHolderUnum() int { return s.holder }
func (s *State) SelfUnum() int { return s.self }
func (s *State) World() *world.World { return s.world }
func (s *State) Logger() *slog.Logger { return s.log }
func (s *State) Server() *params.Server { return &s.world.Params.Server }
func (s *State) Mode() world.GameMode { return s.world.Mode }
func (s *State) Cycle() int { return s.world.Time.Cycle }

// BallHolder returns the holder, or nil when unknown.
func (s *State) BallHolder() *Player {
	if s.holder == world.UnknownUnum {
		return nil
	}
	p := &s.ours[s.holder-1]
	if !p.Valid {
		return nil
	}
	return p
}

// Self returns the agent's own seat. A missing self yields an invalid
// placeholder.
func (s *State) Self() *Player {
	return s.Our(s.self)
}

var unknownPlayer = Player{Unum: world.UnknownUnum}

// Our returns teammate unum. Invalid seats are logged and answered with
// an invalid placeholder so one bad lookup never aborts planning.
func (s *State) Our(unum int) *Player {
	if unum < 1 || unum > world.MaxUnum {
		s.log.Error("invalid teammate seat", "unum", unum)
		p := unknownPlayer
		return &p
	}
	return &s.ours[unum-1]
}

// Their returns opponent unum, or nil when not observed.
func (s *State) Their(unum int) *Player {
	if unum < 1 || unum > world.MaxUnum {
		s.log.Error("invalid opponent seat", "unum", unum)
		return nil
	}
	for i := range s.theirs {
		if s.theirs[i].Unum == unum {
			return &s.theirs[i]
		}
	}
	return nil
}

// OurPlayers returns all eleven teammate seats, invalid ones included.
// Callers must not modify the slice.
func (s *State) OurPlayers() []Player { return s.ours }

// Opponents returns the observed opponents. Callers must not modify the
// slice.
func (s *State) Opponents() []Player { return s.theirs }

// OpponentsFromSelf iterates opponents nearest to self first.
func (s *State) OpponentsFromSelf(yield func(*Player) bool) {
	for _, i := range s.fromSelf {
		if !yield(&s.theirs[i]) {
			return
		}
	}
}

// OpponentGoalie is their goalie when observed.
func (s *State) OpponentGoalie() *Player {
	for i := range s.theirs {
		if s.theirs[i].Goalie {
			return &s.theirs[i]
		}
	}
	return nil
}

// OurGoalie is our goalie when known.
func (s *State) OurGoalie() *Player {
	for i := range s.ours {
		if s.ours[i].Valid && s.ours[i].Goalie {
			return &s.ours[i]
		}
	}
	return nil
}

// OpponentNearestTo returns the opponent nearest to point among those
// with position count <= countThr, and its distance.
func (s *State) OpponentNearestTo(point geom.Vector, countThr int) (*Player, float64) {
	var best *Player
	bestDist2 := math.Inf(1)
	for i := range s.theirs {
		o := &s.theirs[i]
		if o.PosCount > countThr {
			continue
		}
		if d2 := o.Pos.Dist2(point); d2 < bestDist2 {
			best, bestDist2 = o, d2
		}
	}
	return best, math.Sqrt(bestDist2)
}

// OffsideLineX is the live offside line, pushed forward by the ball.
func (s *State) OffsideLineX() float64 {
	return math.Max(s.world.OffsideLineX, s.ball.Pos.X)
}

func (s *State) OurDefenseLineX() float64 { return s.defenseLineX }
func (s *State) OurOffenseLineX() float64 { return s.offenseLineX }
func (s *State) TheirDefenseLineX() float64 { return s.world.TheirDefenseLineX }

func (s *State) DirCount(a geom.Angle) int { return s.world.DirCount(a) }
func (s *State) DirRangeCount(a geom.Angle, width float64) int {
	return s.world.DirRangeCount(a, width)
}

// LogValue keeps state logging compact.
func (s *State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("spend", s.spend),
		slog.Int("holder", s.holder),
		slog.String("ball", s.ball.Pos.String()),
	)
}
