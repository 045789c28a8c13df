// Package worldtest builds small world snapshots for tests.
package worldtest

import (
	"testing"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/world"
)

// Builder assembles a snapshot. Self must be added with Mate.
type Builder struct {
	w world.World
}

// New starts a play-on snapshot seen from seat self.
func New(self int) *Builder {
	return &Builder{w: world.World{SelfUnum: self, Mode: world.PlayOn, Time: world.Time{Cycle: 100}}}
}

func (b *Builder) Ball(x, y float64) *Builder {
	b.w.Ball.Pos = geom.V(x, y)
	return b
}

func (b *Builder) BallVel(x, y float64) *Builder {
	b.w.Ball.Vel = geom.V(x, y)
	return b
}

func (b *Builder) Mode(m world.GameMode) *Builder {
	b.w.Mode = m
	return b
}

func (b *Builder) Cycle(c int) *Builder {
	b.w.Time.Cycle = c
	return b
}

// Lines pins the three x lines instead of deriving them from positions.
func (b *Builder) Lines(offside, ourDefense, theirDefense float64) *Builder {
	b.w.OffsideLineX = offside
	b.w.OurDefenseLineX = ourDefense
	b.w.TheirDefenseLineX = theirDefense
	return b
}

func (b *Builder) Intercept(self, mate, opp int) *Builder {
	b.w.Intercept = world.Intercept{Known: true, Self: self, Teammate: mate, Opponent: opp}
	return b
}

// ViewCount sets every view sector to n.
func (b *Builder) ViewCount(n int) *Builder {
	for i := range b.w.ViewCounts {
		b.w.ViewCounts[i] = n
	}
	return b
}

// Mod changes one field of a player.
type Mod func(*world.Player)

func Kickable(p *world.Player) { p.Kickable = true }
func Goalie(p *world.Player) { p.Goalie = true }
func Ghost(p *world.Player) { p.Ghost = true }
func Tackling(p *world.Player) { p.Tackling = true }

func Count(n int) Mod {
	return func(p *world.Player) { p.PosCount, p.SeenPosCount = n, n }
}

func Body(deg float64) Mod {
	return func(p *world.Player) { p.Body = geom.Deg(deg) }
}

func Vel(x, y float64) Mod {
	return func(p *world.Player) { p.Vel = geom.V(x, y) }
}

func (b *Builder) Mate(unum int, x, y float64, mods ...Mod) *Builder {
	b.w.Teammates = append(b.w.Teammates, player(unum, x, y, mods))
	return b
}

func (b *Builder) Opp(unum int, x, y float64, mods ...Mod) *Builder {
	b.w.Opponents = append(b.w.Opponents, player(unum, x, y, mods))
	return b
}

func player(unum int, x, y float64, mods []Mod) world.Player {
	p := world.Player{Unum: unum, Pos: geom.V(x, y)}
	for _, m := range mods {
		m(&p)
	}
	return p
}

// Build prepares the snapshot with default parameters.
func (b *Builder) Build(t testing.TB) *world.World {
	t.Helper()
	w := b.w
	w.Teammates = append([]world.Player(nil), b.w.Teammates...)
	w.Opponents = append([]world.Player(nil), b.w.Opponents...)
	if err := w.Prepare(params.Default()); err != nil {
		t.Fatalf("prepare world: %v", err)
	}
	return &w
}
