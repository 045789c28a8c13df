package evaluator

import (
	"log/slog"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/brensch/chainplan/action"
	"github.com/brensch/chainplan/analyzer"
	"github.com/brensch/chainplan/state"
)

// Env is what a score formula can read. Names are the field names, e.g.
// "BallX + (CanShoot ? 1000 : 0) - Spend * 0.5".
type Env struct {
	BallX     float64
	BallY     float64
	GoalDist  float64
	Spend     int
	Length    int
	Holder    int
	HolderX   float64
	HolderY   float64
	SelfHold  bool
	CanShoot  bool
	InPitch   bool
	OffsideX  float64
	OppDist   float64
	Category  string
	FirstKick float64
	Final     bool
}

// NewEnv fills the formula environment for s.
func NewEnv(s *state.State, path []action.Pair) Env {
	sp := s.Server()
	ball := s.Ball().Pos
	env := Env{
		BallX:    ball.X,
		BallY:    ball.Y,
		GoalDist: sp.TheirGoal().Dist(ball),
		Spend:    s.SpendTime(),
		Length:   len(path),
		Holder:   s.BallHolderUnum(),
		InPitch:  sp.InPitch(ball, 0),
		OffsideX: s.OffsideLineX(),
		OppDist:  analyzer.DistNearestToPoint(ball, s.Opponents(), state.ValidPlayerThreshold),
	}
	if h := s.BallHolder(); h != nil {
		env.HolderX, env.HolderY = h.Pos.X, h.Pos.Y
		env.SelfHold = h.Unum == s.SelfUnum()
		env.CanShoot = analyzer.CanShootFrom(sp, env.SelfHold, h.Pos, s.Opponents(), state.ValidPlayerThreshold)
	}
	if len(path) > 0 {
		first := path[0].Action
		env.Category = first.Category.String()
		env.FirstKick = first.FirstBallSpeed
		env.Final = path[len(path)-1].Action.Final
	}
	return env
}

// Expr scores states with a formula compiled once.
type Expr struct {
	Logger *slog.Logger

	src     string
	program *vm.Program
}

func NewExpr(src string) (*Expr, error) {
	if src == "" {
		return nil, errors.New("evaluator: empty expression")
	}
	prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsFloat64())
	if err != nil {
		return nil, errors.Wrapf(err, "compile score expression %q", src)
	}
	return &Expr{src: src, program: prog}, nil
}

func (e *Expr) Identity() string { return "expr(" + e.src + ")" }

// Evaluate runs the formula. A runtime failure scores the chain as lost.
func (e *Expr) Evaluate(s *state.State, path []action.Pair) float64 {
	out, err := vm.Run(e.program, NewEnv(s, path))
	if err != nil {
		logger(e.Logger).Warn("score expression error", "expr", e.src, "error", err)
		return lostScore
	}
	v, ok := out.(float64)
	if !ok || math.IsNaN(v) {
		return lostScore
	}
	return v
}
