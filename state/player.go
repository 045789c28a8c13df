package state

import (
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/world"
)

// Side tells teammates from opponents.
type Side int

const (
	Ours Side = iota
	Theirs
)

// Player is one seat of a predicted state. Players are values: a derived
// state copies the seats it changes and shares the rest.
type Player struct {
	Valid    bool
	Self     bool
	Side     Side
	Unum     int
	Goalie   bool
	Ghost    bool
	Tackling bool
	Kickable bool

	Type *params.PlayerType

	Pos          geom.Vector
	PosCount     int
	SeenPos      geom.Vector
	SeenPosCount int
	Vel          geom.Vector
	VelCount     int
	SeenVel      geom.Vector
	SeenVelCount int
	Body         geom.Angle
	BodyCount    int
	Face         geom.Angle
	Stamina      float64
	PassRequest  bool

	DistFromBall  float64
	AngleFromBall geom.Angle
	DistFromSelf  float64
	AngleFromSelf geom.Angle
}

func fromWorld(w *world.World, p *world.Player, side Side) Player {
	out := Player{
		Valid:        true,
		Self:         side == Ours && p.Unum == w.SelfUnum,
		Side:         side,
		Unum:         p.Unum,
		Goalie:       p.Goalie,
		Ghost:        p.Ghost,
		Tackling:     p.Tackling,
		Kickable:     p.Kickable,
		Type:         w.Type(p),
		Pos:          p.Pos,
		PosCount:     p.PosCount,
		SeenPos:      p.SeenPos,
		SeenPosCount: p.SeenPosCount,
		Vel:          p.Vel,
		VelCount:     p.VelCount,
		SeenVel:      p.SeenVel,
		SeenVelCount: p.SeenVelCount,
		Body:         p.Body,
		BodyCount:    p.BodyCount,
		Face:         p.Face,
		Stamina:      p.Stamina,
		PassRequest:  p.PassRequest,
	}
	rel := p.Pos.Sub(w.Ball.Pos)
	out.DistFromBall = rel.Len()
	out.AngleFromBall = rel.Dir()
	if self := w.Self(); self != nil {
		rel = p.Pos.Sub(self.Pos)
		out.DistFromSelf = rel.Len()
		out.AngleFromSelf = rel.Dir()
	}
	return out
}

// movedTo is p relocated to pos and at rest, as a receiver is after
// trapping the ball.
func (p Player) movedTo(pos, ball geom.Vector) Player {
	p.Pos = pos
	p.SeenPos = pos
	p.Vel = geom.Vector{}
	p.SeenVel = geom.Vector{}
	rel := pos.Sub(ball)
	p.DistFromBall = rel.Len()
	p.AngleFromBall = rel.Dir()
	return p
}

// InertiaPoint is where p drifts to in n cycles without dashing.
func (p *Player) InertiaPoint(n int) geom.Vector {
	return p.Type.InertiaPoint(p.Pos, p.Vel, n)
}

// InertiaFinalPoint is where p stops without dashing.
func (p *Player) InertiaFinalPoint() geom.Vector {
	return p.Type.InertiaFinalPoint(p.Pos, p.Vel)
}
