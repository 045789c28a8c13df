package generator

import (
	"log/slog"
	"math"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// outOfPitch offsets reach steps at which the ball leaves the field
// before any opponent gets it.
const outOfPitch = 1000

// Clear kicks the ball away in the direction that keeps it from the
// opponents longest. It yields the best clear and, when that needs more
// than one kick, also the best single-kick clear.
type Clear struct {
	Logger *slog.Logger
	cache  CycleCache[[]*action.Action]
}

func NewClear() *Clear { return &Clear{} }

func (g *Clear) Identity() string { return "clear" }

func (g *Clear) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if len(path) != 0 {
		return dst
	}
	for _, a := range g.Courses(s, w) {
		dst = append(dst, action.Pair{Action: a, State: s.MoveBall(a.Duration, a.TargetPoint)})
	}
	return dst
}

func (g *Clear) Courses(s *state.State, w *world.World) []*action.Action {
	return g.cache.Get(w.Time, func() []*action.Action {
		if !w.SelfKickable() || w.Time.Stopped > 0 ||
			w.Mode == world.KickOff || w.Mode == world.CornerKick || w.Mode.IsPenaltyKick() {
			return nil
		}
		courses, count := createClears(s, w)
		logger(g.Logger).Debug("clear courses", "cycle", w.Time.Cycle, "courses", len(courses), "checked", count)
		return courses
	})
}

type clearChoice struct {
	reach int
	speed float64
	angle geom.Angle
	kick  int
}

func createClears(s *state.State, w *world.World) ([]*action.Action, int) {
	const speedStep = 0.3
	sp := &w.Params.Server
	ball := w.Ball.Pos
	minFirst := math.Min(sp.BallSpeedMax-speedStep*5, w.Params.DefaultType().PlayerSpeedMax+0.5)

	minAngle := math.Max(-110, geom.V(-sp.PitchHalfLength, -sp.PitchHalfWidth).Sub(ball).Dir().Degree())
	maxAngle := math.Min(110, geom.V(-sp.PitchHalfLength, sp.PitchHalfWidth).Sub(ball).Dir().Degree())
	step := math.Max(1, (maxAngle-minAngle)/90)

	best := clearChoice{speed: -1}
	oneKick := clearChoice{speed: -1}
	count := 0
	for a := minAngle; a < maxAngle+0.001; a += step {
		angle := geom.Deg(a)
		if w.DirRangeCount(angle, 30) >= 20 {
			continue
		}
		speed := sp.MaxKickVelocity(angle, w.SelfKickRate(), w.Ball.Vel).Len()
		kick := 1
		if speed < minFirst {
			speed, kick = minFirst, 2
		}
		speed -= speedStep
		for loop := true; loop; {
			count++
			speed += speedStep
			if speed > sp.BallSpeedMax {
				loop = false
				speed = sp.BallSpeedMax
			}
			reach := clearOpponentsReachStep(s, ball, speed, angle)
			if reach > best.reach {
				best = clearChoice{reach: reach, speed: speed, angle: angle, kick: kick}
			}
			if kick == 1 && reach > oneKick.reach {
				oneKick = clearChoice{reach: reach, speed: speed, angle: angle, kick: 1}
			}
			if w.Mode != world.PlayOn {
				break
			}
			kick = 2
			if speed > 2.5 {
				kick = 3
			}
		}
	}

	if best.speed <= 0 {
		return nil, count
	}
	self := w.SelfUnum
	out := []*action.Action{best.action(sp, ball, self)}
	if best.kick > 1 && oneKick.speed > 0 {
		out = append(out, oneKick.action(sp, ball, self))
	}
	return out, count
}

// clearLineOffset keeps a clear that leaves the field targeted just
// inside the line it crosses.
const clearLineOffset = 0.5

func (c clearChoice) action(sp *params.Server, ball geom.Vector, unum int) *action.Action {
	steps := c.reach
	if steps > outOfPitch {
		steps -= outOfPitch
	}
	target := ball.Add(geom.Polar(geom.InertiaNStepDistance(c.speed, steps, sp.BallDecay), c.angle))
	target = analyzer.ClipToField(sp, ball, target, clearLineOffset)
	return action.NewClear(unum, target, c.speed, steps, c.kick)
}

// clearOpponentsReachStep is the earliest step any opponent reaches the
// ball, or outOfPitch plus the step the ball leaves the field first.
func clearOpponentsReachStep(s *state.State, first geom.Vector, speed float64, angle geom.Angle) int {
	vel := geom.Polar(speed, angle)
	minStep := 50
	outStep := -1
	for i := range s.Opponents() {
		step := clearOpponentReachStep(s, &s.Opponents()[i], first, vel, angle, minStep)
		if step > outOfPitch {
			outStep = step - outOfPitch
			minStep = min(minStep, outStep)
		} else if step < minStep {
			outStep = -1
			minStep = step
		}
	}
	if outStep > 0 {
		return outOfPitch + outStep
	}
	return minStep
}

func clearOpponentReachStep(s *state.State, o *state.Player, first, vel geom.Vector, angle geom.Angle, maxCycle int) int {
	sp := s.Server()
	t := o.Type
	kickable := t.KickableArea()
	minCycle := minReachCycle(o.Pos, t.RealSpeedMax(), first, angle)
	if minCycle < 0 {
		minCycle = 10
	}
	for cycle := minCycle; cycle <= maxCycle; cycle++ {
		ball := geom.InertiaNStepPoint(first, vel, cycle, sp.BallDecay)
		if ball.AbsX() > sp.PitchHalfLength || ball.AbsY() > sp.PitchHalfWidth {
			return outOfPitch + cycle
		}
		at := o.InertiaPoint(cycle)
		dist := at.Dist(ball)
		if dist-kickable-0.15 < 0.001 {
			return cycle
		}
		dash := dist
		if cycle > 1 {
			dash -= kickable + 0.5
		}
		if dash > t.RealSpeedMax()*float64(cycle) {
			continue
		}
		nDash := t.CyclesToReachDistance(dash)
		if nDash > cycle {
			continue
		}
		nTurn := 0
		if o.BodyCount <= 1 {
			nTurn = analyzer.TurnCycle(sp, t, o.Body, o.Vel.Len(), dist, ball.Sub(at).Dir(), kickable, true)
		}
		nStep := nTurn + nDash
		if nTurn > 0 {
			nStep++
		}
		if o.Tackling {
			nStep += 5
		}
		nStep -= min(3, o.PosCount)
		if nStep <= cycle {
			return cycle
		}
	}
	return outOfPitch
}
