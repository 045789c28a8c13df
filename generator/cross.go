package generator

import (
	"log/slog"
	"math"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

// Cross builds passes into the goal area when the ball is near their goal.
// Only the course with the widest opponent clearance is kept per receiver.
type Cross struct {
	Logger *slog.Logger
	cache  CycleCache[[]*action.Action]
}

func NewCross() *Cross { return &Cross{} }

func (g *Cross) Identity() string { return "cross" }

func (g *Cross) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if len(path) != 0 {
		return dst
	}
	for _, a := range g.Courses(s, w) {
		if !s.Our(a.Target).Valid {
			continue
		}
		dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(a.Duration, a.Target, a.TargetPoint)})
	}
	return dst
}

// Courses returns this cycle's cross courses. s must be the root state.
func (g *Cross) Courses(s *state.State, w *world.World) []*action.Action {
	return g.cache.Get(w.Time, func() []*action.Action {
		c := crossBuilder{s: s, w: w}
		c.generate()
		logger(g.Logger).Debug("cross courses", "cycle", w.Time.Cycle, "courses", len(c.courses), "checked", c.count)
		return c.courses
	})
}

type crossBuilder struct {
	s         *state.State
	w         *world.World
	passer    passer
	receivers []*state.Player
	opponents []*state.Player
	count     int
	courses   []*action.Action
}

func (c *crossBuilder) generate() {
	pa, ok := findPasser(c.s, c.w, 20)
	if !ok {
		return
	}
	c.passer = pa
	sp := &c.w.Params.Server
	goal := sp.TheirGoal()
	if goal.Dist(pa.first) > 35 {
		return
	}

	minDist := c.w.Params.DefaultType().KickableArea() * 2.2
	maxDist := geom.InertiaNStepDistance(sp.BallSpeedMax, 9, sp.BallDecay)
	for i := range c.s.OurPlayers() {
		p := &c.s.OurPlayers()[i]
		if !p.Valid || p.Unum == pa.p.Unum {
			continue
		}
		if pa.p.Self {
			if p.Ghost || p.PosCount >= 4 || p.Pos.X > c.w.OffsideLineX {
				continue
			}
		} else if !p.Self {
			continue
		}
		if p.Pos.Dist2(goal) > 16*16 {
			continue
		}
		d2 := p.Pos.Dist2(pa.first)
		if d2 < minDist*minDist || d2 > maxDist*maxDist {
			continue
		}
		c.receivers = append(c.receivers, p)
	}
	if len(c.receivers) == 0 {
		return
	}

	goalAngle := goal.Sub(pa.first).Dir()
	for i := range c.s.Opponents() {
		o := &c.s.Opponents()[i]
		if o.Pos.Sub(pa.first).Dir().Diff(goalAngle) > 90 || o.Pos.Dist2(pa.first) > 20*20 {
			continue
		}
		c.opponents = append(c.opponents, o)
	}

	for _, r := range c.receivers {
		c.createCross(r)
	}
}

func (c *crossBuilder) createCross(r *state.Player) {
	const (
		minStep   = 2
		maxStep   = 12
		angleStep = 3.0
		distStep  = 0.9
	)
	sp := &c.w.Params.Server
	first := c.passer.first
	minFirst := sp.BallSpeedMax * 0.67
	maxFirst := maxFirstSpeed(c.w)
	minRecv := c.w.Params.DefaultType().PlayerSpeedMax

	recvPos := r.InertiaFinalPoint()
	recvDist := first.Dist(recvPos)
	recvAngle := recvPos.Sub(first).Dir()

	bestWidth := -1.0
	var best *action.Action
	for a := -2; a <= 2; a++ {
		angle := recvAngle.Add(angleStep * float64(a))
		for d := 0; d < 5; d++ {
			sub := distStep * float64(d)
			dist := recvDist - sub
			receive := first.Add(geom.Polar(dist, angle))
			if receive.X > sp.PitchHalfLength-0.5 || receive.AbsY() > sp.PitchHalfWidth-3 {
				continue
			}
			recvStep := r.Type.CyclesToReachDistance(sub) + 1
			for step := max(minStep, recvStep); step <= maxStep; step++ {
				c.count++
				speed := sp.FirstBallSpeed(dist, step)
				if speed < minFirst {
					break
				}
				if speed > maxFirst {
					continue
				}
				if speed*math.Pow(sp.BallDecay, float64(step)) < minRecv {
					break
				}
				kick := analyzer.KickCount(c.w, c.passer.p.Unum, speed, angle)
				if !c.safe(recvDist, receive, speed, angle, step+kick-1) {
					break
				}
				if width := c.minAngleWidth(dist, angle); width > bestWidth {
					best = action.NewPass(c.passer.p.Unum, r.Unum, receive, speed, step+kick, kick, false, "cross")
					best.Index = c.count
					bestWidth = width
				}
				break
			}
		}
	}
	if best != nil {
		c.courses = append(c.courses, best)
	}
}

// safe reports whether no opponent can reach the ball before maxCycle.
func (c *crossBuilder) safe(recvDist float64, receive geom.Vector, speed float64, angle geom.Angle, maxCycle int) bool {
	const controlBuf = 0.15
	sp := &c.w.Params.Server
	first := c.passer.first
	vel := receive.Sub(first).WithLen(speed)

	for _, o := range c.opponents {
		t := o.Type
		control := t.KickableArea()
		if o.Goalie {
			control = sp.CatchableArea()
		}
		pos := o.InertiaFinalPoint()
		if pos.Dist(first) > recvDist+1 {
			continue
		}
		minCycle := minReachCycle(pos, t.RealSpeedMax(), first, angle)
		for cycle := max(1, minCycle); cycle <= maxCycle; cycle++ {
			ball := geom.InertiaNStepPoint(first, vel, cycle, sp.BallDecay)
			dist := pos.Dist(ball)
			if dist-control-controlBuf < 0.001 {
				return false
			}
			dash := dist
			if cycle > 1 {
				dash -= control * 0.6
			}
			if dash > t.RealSpeedMax()*float64(cycle) {
				continue
			}
			nDash := t.CyclesToReachDistance(dash * 1.05)
			if nDash > cycle {
				continue
			}
			nTurn := 2
			if o.BodyCount < 3 {
				nTurn = analyzer.TurnCycle(sp, t, o.Body, o.Vel.Len(), dist, ball.Sub(pos).Dir(), control, true)
			}
			nStep := nTurn + nDash + 1
			if o.Tackling {
				nStep += 5
			}
			if nStep <= cycle {
				return false
			}
		}
	}
	return true
}

func (c *crossBuilder) minAngleWidth(dist float64, angle geom.Angle) float64 {
	width := 180.0
	for _, o := range c.opponents {
		if o.Ghost || c.passer.first.Dist(o.Pos) > dist+1 {
			continue
		}
		width = math.Min(width, o.Pos.Sub(c.passer.first).Dir().Diff(angle))
	}
	return width
}
