package generator

import (
	"log/slog"
	"math"
	"sort"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/params"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

type passKind byte

const (
	directPass  passKind = 'D'
	leadingPass passKind = 'L'
	throughPass passKind = 'T'
)

// StrictPass builds direct, leading and through passes from the current
// ball holder, each checked against every opponent's interception time.
// Courses are computed once per cycle; chains only start with them.
type StrictPass struct {
	Logger *slog.Logger
	cache  CycleCache[[]*action.Action]
}

func NewStrictPass() *StrictPass { return &StrictPass{} }

func (g *StrictPass) Identity() string { return "strict_pass" }

func (g *StrictPass) Generate(dst []action.Pair, s *state.State, w *world.World, path []action.Pair) []action.Pair {
	if len(path) != 0 {
		return dst
	}
	for _, a := range g.Courses(s, w) {
		if a.Target < 1 || a.Target > world.MaxUnum || !s.Our(a.Target).Valid {
			continue
		}
		dst = append(dst, action.Pair{Action: a, State: s.MoveBallAndHolder(a.Duration, a.Target, a.TargetPoint)})
	}
	return dst
}

// Courses returns this cycle's pass courses, nearest to their goal first.
// s must be the root state built from w.
func (g *StrictPass) Courses(s *state.State, w *world.World) []*action.Action {
	return g.cache.Get(w.Time, func() []*action.Action {
		b := newPassBuilder(s, w)
		if b == nil {
			return nil
		}
		b.createAll()
		action.SortByDistance(b.courses, w.Params.Server.TheirGoal())
		logger(g.Logger).Debug("strict pass courses",
			"cycle", w.Time.Cycle, "passer", b.passer.p.Unum,
			"courses", len(b.courses), "checked", b.count)
		return b.courses
	})
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

type passBuilder struct {
	s         *state.State
	w         *world.World
	sp        *params.Server
	def       *params.PlayerType
	passer    passer
	receivers []receiver
	opponents []opponent
	kind      passKind
	final     bool
	count     int
	courses   []*action.Action
}

func newPassBuilder(s *state.State, w *world.World) *passBuilder {
	pa, ok := findPasser(s, w, 30)
	if !ok {
		return nil
	}
	b := &passBuilder{
		s:      s,
		w:      w,
		sp:     &w.Params.Server,
		def:    w.Params.DefaultType(),
		passer: pa,
		final:  analyzer.ToBeFinalAction(w.Ball.Pos, w.TheirDefenseLineX),
	}
	b.updateReceivers()
	if len(b.receivers) == 0 {
		return nil
	}
	for i := range s.Opponents() {
		b.opponents = append(b.opponents, newOpponent(&s.Opponents()[i]))
	}
	return b
}

func (b *passBuilder) updateReceivers() {
	const maxDist = 40.0
	selfPasser := b.passer.p.Self
	for i := range b.s.OurPlayers() {
		p := &b.s.OurPlayers()[i]
		if !p.Valid || p.Unum == b.passer.p.Unum {
			continue
		}
		if selfPasser {
			if p.PosCount > 10 || p.Tackling || p.Pos.X > b.w.OffsideLineX {
				continue
			}
			if p.Goalie && p.Pos.X < b.sp.OurPenaltyAreaLineX()+15 {
				continue
			}
		} else if !p.Self {
			continue
		}
		if p.Pos.Dist2(b.passer.first) > maxDist*maxDist {
			continue
		}
		b.receivers = append(b.receivers, newReceiver(p, b.passer.first))
	}
	goal := b.sp.TheirGoal()
	sortStable(b.receivers, func(r receiver) float64 { return r.pos.Dist2(goal) })
}

func (b *passBuilder) createAll() {
	b.kind = directPass
	for i := range b.receivers {
		b.createDirect(&b.receivers[i])
	}
	b.kind = leadingPass
	for i := range b.receivers {
		b.createLeading(&b.receivers[i])
	}
	b.kind = throughPass
	for i := range b.receivers {
		b.createThrough(&b.receivers[i])
	}
}

func (b *passBuilder) goalKickDanger(p geom.Vector) bool {
	return b.w.Mode == world.GoalKick &&
		p.X < b.sp.OurPenaltyAreaLineX()+1 && p.AbsY() < b.sp.PenaltyAreaHalfWidth+1
}

func (b *passBuilder) maxReceiveSpeed(t *params.PlayerType, minStep int, dashFactor float64) float64 {
	return math.Min(b.sp.BallSpeedMax*math.Pow(b.sp.BallDecay, float64(minStep)),
		t.KickableArea()+t.MaxDashAccel()*dashFactor)
}

func (b *passBuilder) createDirect(r *receiver) {
	const minStep = 3
	sp := b.sp
	if r.pos.X > sp.PitchHalfLength-1.5 || r.pos.X < -sp.PitchHalfLength+5 || r.pos.AbsY() > sp.PitchHalfWidth-1.5 {
		return
	}
	if r.pos.X < b.passer.first.X+1 && r.pos.Dist2(sp.OurGoal()) < 18*18 {
		return
	}

	receive := r.inertia
	dist := b.passer.first.Dist(receive)
	if dist < b.def.KickableArea()*2.2 || dist > 0.8*inertiaFinalDistance(sp, sp.BallSpeedMax) {
		return
	}
	if b.goalKickDanger(receive) {
		return
	}

	start := max(minStep, ballMoveStep(sp, sp.BallSpeedMax, dist), r.penaltyStep)
	b.createCommon(r, receive, start, start+2,
		b.def.RealSpeedMax(), maxFirstSpeed(b.w),
		r.p.Type.RealSpeedMax(), b.maxReceiveSpeed(r.p.Type, minStep, 1.8),
		dist, receive.Sub(b.passer.first).Dir(), "strictDirect")
}

func (b *passBuilder) createLeading(r *receiver) {
	const (
		minStep   = 4
		angleDivs = 24
		angleStep = 360.0 / angleDivs
		distDivs  = 4
		distStep  = 1.1
	)
	sp := b.sp
	maxDist := 0.8 * inertiaFinalDistance(sp, sp.BallSpeedMax)
	maxRecv := b.maxReceiveSpeed(r.p.Type, minStep, 1.5)

	for d := 1; d <= distDivs; d++ {
		move := distStep * float64(d)
		aStep := 1
		if move*2*math.Pi/angleDivs < 0.6 {
			aStep = 2
		}
		for a := 0; a < angleDivs; a += aStep {
			b.count++
			receive := r.inertia.Add(geom.Polar(move, r.fromBall.Add(angleStep*float64(a))))
			linePenalty := int(math.Floor(distToLine(r.pos, b.passer.first, receive) * 0.3))

			if receive.X > sp.PitchHalfLength-3 || receive.X < -sp.PitchHalfLength+5 || receive.AbsY() > sp.PitchHalfWidth-3 {
				continue
			}
			if receive.X < b.passer.first.X && receive.Dist2(sp.OurGoal()) < 16*16 {
				continue
			}
			if b.goalKickDanger(receive) {
				return
			}
			dist := b.passer.first.Dist(receive)
			if dist < 3 || dist > maxDist {
				continue
			}
			if b.nearestReceiver(receive) != r.p.Unum {
				continue
			}

			recvStep := b.receiverReachStep(r, receive, true) + linePenalty
			start := max(minStep, ballMoveStep(sp, sp.BallSpeedMax, dist), recvStep)
			b.createCommon(r, receive, start, start+3,
				b.def.RealSpeedMax(), maxFirstSpeed(b.w),
				0.001, maxRecv,
				dist, receive.Sub(b.passer.first).Dir(), "strictLead")
		}
	}
}

func (b *passBuilder) createThrough(r *receiver) {
	const (
		minStep   = 6
		angleDivs = 14
		minAngle  = -40.0
		maxAngle  = 40.0
		angleStep = (maxAngle - minAngle) / angleDivs
		minMove   = 6.0
		maxMove   = 30.0 + 0.001
		moveStep  = 2.0
	)
	sp := b.sp
	first := b.passer.first
	minX := math.Min(math.Min(math.Max(10, first.X+10), b.w.OffsideLineX-10), sp.TheirPenaltyAreaLineX()-5)
	if r.pos.X < minX-maxMove || r.pos.X < 1 {
		return
	}
	maxDist := 0.9 * inertiaFinalDistance(sp, sp.BallSpeedMax)
	maxRecv := b.maxReceiveSpeed(r.p.Type, minStep, 1.5)
	velAngle := r.vel.Dir()
	requestAngle := sp.TheirGoal().Sub(r.inertia).Dir()

	for a := 0; a <= angleDivs; a++ {
		angle := geom.Deg(minAngle + angleStep*float64(a))
		unit := geom.Polar(1, angle)
		for move := minMove; move < maxMove; move += moveStep {
			b.count++
			receive := r.inertia.Add(unit.Scale(move))
			if receive.X < minX {
				continue
			}
			if receive.X > sp.PitchHalfLength-1.5 || receive.AbsY() > sp.PitchHalfWidth-1.5 {
				break
			}
			dist := first.Dist(receive)
			if dist < 5 || dist > maxDist {
				continue
			}
			if b.nearestReceiver(receive) != r.p.Unum {
				break
			}

			ballAngle := receive.Sub(first).Dir()
			start := b.receiverReachStep(r, receive, false)
			switch {
			case r.p.PassRequest && requestAngle.Diff(angle) < 20:
			case r.speed > 0.2 && velAngle.Diff(angle) < 15:
			default:
				start++
				if (receive.X > sp.PitchHalfLength-5 || receive.AbsY() > sp.PitchHalfWidth-5) &&
					ballAngle.Abs() > 30 && start >= 10 {
					start++
				}
			}
			start = max(minStep, ballMoveStep(sp, sp.BallSpeedMax, dist), start)
			b.createCommon(r, receive, start, start+3,
				1.4, maxFirstSpeed(b.w),
				0.001, maxRecv,
				dist, ballAngle, "strictThrough")
		}
	}
}

// createCommon tries receive steps from minStep to maxStep and keeps the
// first one no opponent can intercept.
func (b *passBuilder) createCommon(r *receiver, receive geom.Vector, minStep, maxStep int,
	minFirst, maxFirst, minRecv, maxRecv, dist float64, angle geom.Angle, desc string) {
	sp := b.sp
	for step := minStep; step <= maxStep; step++ {
		b.count++
		speed := sp.FirstBallSpeed(dist, step)
		if speed < minFirst {
			break
		}
		if speed > maxFirst {
			continue
		}
		recvSpeed := speed * math.Pow(sp.BallDecay, float64(step))
		if recvSpeed < minRecv {
			break
		}
		if recvSpeed > maxRecv {
			continue
		}

		kick := analyzer.KickCount(b.w, b.passer.p.Unum, speed, angle)
		oStep, opp := b.opponentsReachStep(speed, angle, receive, step+kick-1+5)

		failed := false
		if b.kind == throughPass {
			failed = oStep <= step
			if receive.X > 30 && step >= 15 && (opp == nil || !opp.Goalie) && oStep >= step {
				if r.p.Body.Diff(receive.Sub(r.pos).Dir()) < 15 {
					failed = false
				}
			}
		} else {
			failed = oStep <= step+kick-1
		}
		if failed {
			break
		}

		a := action.NewPass(b.passer.p.Unum, r.p.Unum, receive, speed, step+kick, kick, b.final, desc)
		a.Index = b.count
		b.courses = append(b.courses, a)
		break
	}
}

func (b *passBuilder) nearestReceiver(p geom.Vector) int {
	unum := world.UnknownUnum
	best := math.MaxFloat64
	for i := range b.receivers {
		if d2 := b.receivers[i].pos.Dist2(p); d2 < best {
			best, unum = d2, b.receivers[i].p.Unum
		}
	}
	return unum
}

func (b *passBuilder) receiverReachStep(r *receiver, p geom.Vector, usePenalty bool) int {
	t := r.p.Type
	dist := r.inertia.Dist(p)
	nTurn := 1
	if r.p.BodyCount <= 0 {
		nTurn = analyzer.TurnCycle(b.sp, t, r.p.Body, r.speed, dist, p.Sub(r.inertia).Dir(), t.KickableArea(), false)
	}
	dash := dist
	if usePenalty {
		dash += r.penaltyDist
	}
	if b.kind == leadingPass {
		dash *= 1.05
		dashAngle := p.Sub(r.pos).Dir()
		if dashAngle.Abs() > 90 || r.p.BodyCount > 1 || dashAngle.Diff(r.p.Body) > 30 {
			nTurn++
		}
	}
	nDash := t.CyclesToReachDistance(dash)
	if nTurn == 0 {
		return nDash
	}
	// one extra cycle for observation delay
	return nTurn + nDash + 1
}

func (b *passBuilder) opponentsReachStep(speed float64, angle geom.Angle, receive geom.Vector, maxCycle int) (int, *state.Player) {
	vel := geom.Polar(speed, angle)
	best := analyzer.NeverReach
	bonus := -10000.0
	var fastest *state.Player
	for i := range b.opponents {
		o := &b.opponents[i]
		step := b.opponentReachStep(o, vel, angle, receive, min(maxCycle, best))
		if step < best || (step == best && o.bonus > bonus) {
			best, bonus, fastest = step, o.bonus, o.p
		}
	}
	return best, fastest
}

func (b *passBuilder) opponentReachStep(o *opponent, vel geom.Vector, angle geom.Angle, receive geom.Vector, maxCycle int) int {
	const controlBuf = 0.15
	sp := b.sp
	t := o.p.Type
	first := b.passer.first

	minCycle := minReachCycle(o.pos, t.RealSpeedMax(), first, angle)
	if minCycle < 0 {
		return analyzer.NeverReach
	}
	noBonus := b.kind == throughPass && vel.X > 2 && (receive.X > b.w.OffsideLineX || receive.X > 30)
	penaltyArea := sp.TheirPenaltyArea()

	for cycle := max(1, minCycle); cycle <= maxCycle; cycle++ {
		ball := geom.InertiaNStepPoint(first, vel, cycle, sp.BallDecay)
		control := t.KickableArea()
		if o.p.Goalie && penaltyArea.Contains(ball) {
			control = sp.CatchableArea()
		}
		at := t.InertiaPoint(o.pos, o.vel, cycle)
		dist := at.Dist(ball)
		dash := dist
		if !noBonus {
			dash -= o.bonus
		}
		if dash-control-controlBuf < 0.001 {
			return cycle
		}
		switch {
		case noBonus:
			dash -= control
		case receive.X < 25:
			dash -= control + 0.5
		default:
			dash -= control + 0.2
		}

		if dash > t.RealSpeedMax()*float64(cycle+min(o.p.PosCount, 5)) {
			continue
		}
		nDash := t.CyclesToReachDistance(dash)
		if nDash > cycle+o.p.PosCount {
			continue
		}
		nTurn := 0
		if o.p.BodyCount <= 1 {
			nTurn = analyzer.TurnCycle(sp, t, o.p.Body, o.speed, dist, ball.Sub(at).Dir(), control, true)
		}
		nStep := nDash
		if nTurn > 0 {
			nStep = nTurn + nDash + 1
		}
		bonusStep := 0
		if o.p.Tackling {
			bonusStep = -5
		}
		if nStep-bonusStep <= cycle {
			return cycle
		}
	}
	return analyzer.NeverReach
}

func distToLine(p, a, b geom.Vector) float64 {
	d := b.Sub(a)
	l := d.Len()
	if l < 1e-9 {
		return p.Dist(a)
	}
	return math.Abs(d.X*(p.Y-a.Y)-d.Y*(p.X-a.X)) / l
}

func sortStable[T any](xs []T, key func(T) float64) {
	sort.SliceStable(xs, func(i, j int) bool { return key(xs[i]) < key(xs[j]) })
}
