// Package behavior turns the first action of a chosen chain into the
// primitive commands the agent sends this cycle.
package behavior

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/world"
)

type CommandKind int

const (
	None CommandKind = iota
	Kick
	Turn
	Dash
	Say
)

var kindNames = [...]string{"none", "kick", "turn", "dash", "say"}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("command(%d)", int(k))
	}
	return kindNames[k]
}

// Command is one primitive command. Direction is relative to the body.
type Command struct {
	Kind      CommandKind
	Power     float64
	Direction geom.Angle
	Message   string
}

func (c Command) String() string {
	switch c.Kind {
	case Kick, Dash:
		return fmt.Sprintf("(%s %.2f %.2f)", c.Kind, c.Power, c.Direction.Degree())
	case Turn:
		return fmt.Sprintf("(turn %.2f)", c.Direction.Degree())
	case Say:
		return fmt.Sprintf("(say %q)", c.Message)
	}
	return "(none)"
}

// Sink accepts one primitive command at a time.
type Sink interface {
	Send(c Command) error
}

type SinkFunc func(c Command) error

func (f SinkFunc) Send(c Command) error { return f(c) }

// Executor maps actions to commands and hands them to Sink.
type Executor struct {
	Sink   Sink
	Logger *slog.Logger
}

// settledSpeed is the ball speed below which a held ball needs no kick.
const settledSpeed = 0.1

// turnThreshold is the largest body/target angle a Move dashes without
// turning first.
const turnThreshold = 10.0

// Execute converts a to commands for the current cycle and sends them in
// order. It returns the commands sent.
func (x *Executor) Execute(w *world.World, a *action.Action) ([]Command, error) {
	self := w.Self()
	if self == nil {
		return nil, errors.Wrapf(world.ErrNoSelf, "unum %d", w.SelfUnum)
	}
	cmds := Commands(w, a)
	for _, c := range cmds {
		if x.Sink == nil {
			break
		}
		if err := x.Sink.Send(c); err != nil {
			return cmds, errors.Wrapf(err, "send %s", c)
		}
	}
	log := x.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Debug("executed", "cycle", w.Time.Cycle, "action", a, "commands", len(cmds))
	return cmds, nil
}

// Commands is the pure mapping used by Execute.
func Commands(w *world.World, a *action.Action) []Command {
	self := w.Self()
	if self == nil || a == nil {
		return []Command{{Kind: None}}
	}
	switch a.Category {
	case action.Pass:
		kick := chase(w)
		if w.SelfKickable() {
			kick = kickTowards(w, a.TargetPoint, a.FirstBallSpeed)
		}
		return []Command{kick, {
			Kind:    Say,
			Message: fmt.Sprintf("pass %d %.1f %.1f", a.Target, a.TargetPoint.X, a.TargetPoint.Y),
		}}
	case action.Shoot, action.Clear:
		if !w.SelfKickable() {
			return []Command{chase(w)}
		}
		return []Command{kickTowards(w, a.TargetPoint, a.FirstBallSpeed)}
	case action.Dribble:
		if a.KickCount == 0 {
			return []Command{{Kind: Dash, Power: a.FirstDashPower, Direction: a.FirstDashAngle}}
		}
		if !w.SelfKickable() {
			return []Command{chase(w)}
		}
		return []Command{kickTowards(w, a.TargetPoint, a.FirstBallSpeed)}
	case action.Hold:
		return []Command{hold(w)}
	case action.Move:
		return []Command{moveTowards(w, a.TargetPoint)}
	}
	return []Command{{Kind: None}}
}

// kickTowards kicks so that the ball leaves towards target at speed.
func kickTowards(w *world.World, target geom.Vector, speed float64) Command {
	self := w.Self()
	dir := target.Sub(w.Ball.Pos).Dir()
	want := geom.Polar(speed, dir)
	return kickFor(w, want.Sub(w.Ball.Vel), self.Body)
}

// kickFor is the kick adding accel to the ball velocity, or the closest
// the agent can do at maximum power.
func kickFor(w *world.World, accel geom.Vector, body geom.Angle) Command {
	sp := &w.Params.Server
	rate := w.SelfKickRate()
	if rate <= 0 {
		return Command{Kind: None}
	}
	power := math.Min(accel.Len()/rate, sp.MaxPower)
	return Command{Kind: Kick, Power: power, Direction: accel.Dir().Sub(body)}
}

// hold stops a moving ball at the feet, or turns to face their goal once
// the ball is settled.
func hold(w *world.World) Command {
	self := w.Self()
	if !w.SelfKickable() {
		return chase(w)
	}
	if w.Ball.Vel.Len() > settledSpeed {
		return kickFor(w, w.Ball.Vel.Scale(-1), self.Body)
	}
	return turnTo(w, w.Params.Server.TheirGoal())
}

func chase(w *world.World) Command {
	return moveTowards(w, w.Params.Server.BallInertiaPoint(w.Ball.Pos, w.Ball.Vel, 1))
}

func moveTowards(w *world.World, target geom.Vector) Command {
	self := w.Self()
	rel := target.Sub(self.Pos)
	if rel.Len() < w.Type(self).KickableArea()*0.5 {
		return Command{Kind: None}
	}
	if rel.Dir().Diff(self.Body) > turnThreshold {
		return turnTo(w, target)
	}
	return Command{Kind: Dash, Power: w.Params.Server.MaxDashPower}
}

// turnTo is the turn command aligning the body with target, with the
// moment scaled up for the agent's current speed.
func turnTo(w *world.World, target geom.Vector) Command {
	self := w.Self()
	t := w.Type(self)
	sp := &w.Params.Server
	diff := target.Sub(self.Pos).Dir().Sub(self.Body).Degree()
	moment := turnMoment(t, sp, diff, self.Vel.Len())
	return Command{Kind: Turn, Direction: geom.Deg(moment)}
}

func turnMoment(t *params.PlayerType, sp *params.Server, diff, speed float64) float64 {
	m := diff * (1 + t.InertiaMoment*speed)
	return math.Max(-sp.MaxMoment, math.Min(sp.MaxMoment, m))
}
