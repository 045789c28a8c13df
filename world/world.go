// Package world is the read-only live world-model snapshot the planner
// consumes once per decision cycle. It is filled by the host agent (or
// loaded from a scenario file) and never mutated by the planner.
package world

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
)

// Unum bounds. Seats are 1..MaxUnum; UnknownUnum marks "no player".
const (
	MaxUnum     = 11
	UnknownUnum = -1
)

var ErrNoSelf = errors.New("world: self player not found")

// Time is the simulator clock. Stopped counts cycles spent in a stopped
// play mode at the same Cycle.
type Time struct {
	Cycle   int `yaml:"cycle"`
	Stopped int `yaml:"stopped"`
}

// Ball is the ball as seen by the agent.
type Ball struct {
	Pos      geom.Vector `yaml:"pos"`
	Vel      geom.Vector `yaml:"vel"`
	PosCount int         `yaml:"pos_count"`
	VelCount int         `yaml:"vel_count"`
}

// Player is one player observation. The *Count fields are the number of
// cycles since the value was last observed; 0 means seen this cycle.
type Player struct {
	Unum        int     `yaml:"unum"`
	Type        int     `yaml:"type"`
	Goalie      bool    `yaml:"goalie"`
	Ghost       bool    `yaml:"ghost"`
	Tackling    bool    `yaml:"tackling"`
	Kickable    bool    `yaml:"kickable"`
	Frozen      bool    `yaml:"frozen"`
	PassRequest bool    `yaml:"pass_request"`
	Stamina     float64 `yaml:"stamina"`

	Pos          geom.Vector `yaml:"pos"`
	SeenPos      geom.Vector `yaml:"seen_pos"`
	Vel          geom.Vector `yaml:"vel"`
	SeenVel      geom.Vector `yaml:"seen_vel"`
	Body         geom.Angle  `yaml:"body"`
	Face         geom.Angle  `yaml:"face"`
	PosCount     int         `yaml:"pos_count"`
	SeenPosCount int         `yaml:"seen_pos_count"`
	VelCount     int         `yaml:"vel_count"`
	SeenVelCount int         `yaml:"seen_vel_count"`
	BodyCount    int         `yaml:"body_count"`
}

// Intercept summarizes the host's interception table: the fewest cycles
// for self, the fastest teammate and the fastest opponent to reach the ball.
type Intercept struct {
	Known           bool `yaml:"known"`
	Self            int  `yaml:"self"`
	Teammate        int  `yaml:"teammate"`
	Opponent        int  `yaml:"opponent"`
	FastestTeammate int  `yaml:"fastest_teammate"`
}

// ViewSectors is the number of 5 degree direction buckets in ViewCounts.
const ViewSectors = 72

// World is one decision-cycle snapshot. Teammates includes self.
type World struct {
	Time      Time      `yaml:"time"`
	Mode      GameMode  `yaml:"mode"`
	SelfUnum  int       `yaml:"self"`
	Ball      Ball      `yaml:"ball"`
	Teammates []Player  `yaml:"teammates"`
	Opponents []Player  `yaml:"opponents"`
	Intercept Intercept `yaml:"intercept"`

	OffsideLineX      float64 `yaml:"offside_line_x"`
	OurDefenseLineX   float64 `yaml:"our_defense_line_x"`
	TheirDefenseLineX float64 `yaml:"their_defense_line_x"`

	// ViewCounts[i] is the number of cycles since the sector starting at
	// -180 + 5*i degrees was last seen.
	ViewCounts [ViewSectors]int `yaml:"view_counts"`

	Params *params.Set `yaml:"-"`
}

// Prepare fills derived fields and checks the snapshot is usable. It must
// be called once after the snapshot is assembled.
func (w *World) Prepare(ps *params.Set) error {
	if ps == nil {
		ps = params.Default()
	}
	w.Params = ps
	for i := range w.Teammates {
		fillSeen(&w.Teammates[i])
	}
	for i := range w.Opponents {
		fillSeen(&w.Opponents[i])
	}
	sort.SliceStable(w.Teammates, func(i, j int) bool { return w.Teammates[i].Unum < w.Teammates[j].Unum })
	sort.SliceStable(w.Opponents, func(i, j int) bool { return w.Opponents[i].Unum < w.Opponents[j].Unum })

	self := w.Self()
	if self == nil {
		return errors.Wrapf(ErrNoSelf, "unum %d", w.SelfUnum)
	}
	if self.Stamina <= 0 {
		self.Stamina = ps.Server.StaminaMax
	}
	if w.OffsideLineX == 0 && w.OurDefenseLineX == 0 && w.TheirDefenseLineX == 0 {
		w.computeLines()
	}
	return nil
}

func fillSeen(p *Player) {
	if p.SeenPos == (geom.Vector{}) && p.SeenPosCount == 0 {
		p.SeenPos = p.Pos
		p.SeenPosCount = p.PosCount
	}
	if p.SeenVel == (geom.Vector{}) && p.SeenVelCount == 0 {
		p.SeenVel = p.Vel
		p.SeenVelCount = p.VelCount
	}
}

// computeLines derives the defense and offside lines from player positions:
// the offside line is the second-deepest opponent (or the ball, whichever is
// further forward) and never behind the halfway line.
func (w *World) computeLines() {
	xs := make([]float64, 0, len(w.Opponents))
	for _, o := range w.Opponents {
		xs = append(xs, o.Pos.X)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(xs)))
	second := 0.0
	if len(xs) >= 2 {
		second = xs[1]
	} else if len(xs) == 1 {
		second = xs[0]
	}
	w.TheirDefenseLineX = second
	w.OffsideLineX = max(0, second, w.Ball.Pos.X)

	w.OurDefenseLineX = 0
	for _, t := range w.Teammates {
		if t.Goalie {
			continue
		}
		if t.Pos.X < w.OurDefenseLineX {
			w.OurDefenseLineX = t.Pos.X
		}
	}
}

// Self returns the agent's own player, or nil when missing.
func (w *World) Self() *Player {
	return find(w.Teammates, w.SelfUnum)
}

// Teammate returns our player with unum, or nil.
func (w *World) Teammate(unum int) *Player {
	return find(w.Teammates, unum)
}

// Opponent returns their player with unum, or nil.
func (w *World) Opponent(unum int) *Player {
	return find(w.Opponents, unum)
}

// OpponentGoalie returns the opposing goalie when known.
func (w *World) OpponentGoalie() *Player {
	for i := range w.Opponents {
		if w.Opponents[i].Goalie {
			return &w.Opponents[i]
		}
	}
	return nil
}

func find(ps []Player, unum int) *Player {
	if unum < 1 || unum > MaxUnum {
		return nil
	}
	for i := range ps {
		if ps[i].Unum == unum {
			return &ps[i]
		}
	}
	return nil
}

// Type returns the movement model for p.
func (w *World) Type(p *Player) *params.PlayerType {
	if p == nil {
		return w.Params.DefaultType()
	}
	return w.Params.Type(p.Type)
}

// SelfKickable reports whether the agent currently controls the ball.
func (w *World) SelfKickable() bool {
	s := w.Self()
	return s != nil && s.Kickable && !s.Frozen
}

// SelfKickRate is the agent's current kick power rate.
func (w *World) SelfKickRate() float64 {
	s := w.Self()
	if s == nil {
		return 0
	}
	t := w.Type(s)
	rel := w.Ball.Pos.Sub(s.Pos)
	return t.KickRate(rel.Len(), rel.Dir().Diff(s.Body))
}

// DirCount is the number of cycles since direction a was last seen.
func (w *World) DirCount(a geom.Angle) int {
	return w.ViewCounts[sector(a)]
}

// DirRangeCount returns the largest count over the sectors within
// width/2 of a.
func (w *World) DirRangeCount(a geom.Angle, width float64) int {
	maxCount := 0
	for d := -width / 2; d <= width/2+0.001; d += 5 {
		if c := w.ViewCounts[sector(a.Add(d))]; c > maxCount {
			maxCount = c
		}
	}
	return maxCount
}

func sector(a geom.Angle) int {
	i := int((a.Degree() + 180) / 5)
	if i < 0 {
		i = 0
	}
	if i >= ViewSectors {
		i = ViewSectors - 1
	}
	return i
}

// PlayOn reports whether normal play is running.
func (w *World) PlayOn() bool {
	return w.Mode == PlayOn
}

// LogValue keeps snapshot logging compact.
func (w *World) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cycle", w.Time.Cycle),
		slog.String("mode", w.Mode.String()),
		slog.Int("self", w.SelfUnum),
		slog.String("ball", w.Ball.Pos.String()),
	)
}
