// Package action describes one candidate cooperative action and the
// predicted state it leads to.
package action

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/brensch/chainplan/geom"
	"github.com/brensch/chainplan/state"
	"github.com/brensch/chainplan/world"
)

type Category int

const (
	Hold Category = iota
	Dribble
	Pass
	Shoot
	Clear
	Move
	NoAction
)

var categoryNames = [...]string{"hold", "dribble", "pass", "shoot", "clear", "move", "no_action"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	for i, n := range categoryNames {
		if n == string(b) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action category %q", b)
}

// Action is one candidate. It is built by a generator and never modified
// afterwards, except for Index which the search assigns once.
type Action struct {
	Category    Category
	Index       int
	Actor       int
	Target      int
	TargetPoint geom.Vector

	FirstBallSpeed  float64
	FirstTurnMoment float64
	FirstDashPower  float64
	FirstDashAngle  geom.Angle

	Duration  int
	KickCount int
	TurnCount int
	DashCount int

	// Final forbids extending a chain past this action.
	Final       bool
	Description string
}

func NewHold(unum int, pos geom.Vector, duration int) *Action {
	return &Action{
		Category:    Hold,
		Actor:       unum,
		Target:      world.UnknownUnum,
		TargetPoint: pos,
		Duration:    duration,
		Description: "hold",
	}
}

func NewDribble(unum int, target geom.Vector, speed float64, kick, turn, dash int, desc string) *Action {
	return &Action{
		Category:       Dribble,
		Actor:          unum,
		Target:         unum,
		TargetPoint:    target,
		FirstBallSpeed: speed,
		Duration:       kick + turn + dash,
		KickCount:      kick,
		TurnCount:      turn,
		DashCount:      dash,
		Description:    desc,
	}
}

func NewPass(passer, receiver int, target geom.Vector, speed float64, duration, kick int, final bool, desc string) *Action {
	return &Action{
		Category:       Pass,
		Actor:          passer,
		Target:         receiver,
		TargetPoint:    target,
		FirstBallSpeed: speed,
		Duration:       duration,
		KickCount:      kick,
		Final:          final,
		Description:    desc,
	}
}

// NewShoot is always final.
func NewShoot(unum int, target geom.Vector, speed float64, duration, kick int, desc string) *Action {
	return &Action{
		Category:       Shoot,
		Actor:          unum,
		Target:         world.UnknownUnum,
		TargetPoint:    target,
		FirstBallSpeed: speed,
		Duration:       duration,
		KickCount:      kick,
		Final:          true,
		Description:    desc,
	}
}

func NewClear(unum int, target geom.Vector, speed float64, duration, kick int) *Action {
	return &Action{
		Category:       Clear,
		Actor:          unum,
		Target:         world.UnknownUnum,
		TargetPoint:    target,
		FirstBallSpeed: speed,
		Duration:       duration,
		KickCount:      kick,
		Description:    "clear",
	}
}

func NewMove(unum int, target geom.Vector, duration int) *Action {
	return &Action{
		Category:    Move,
		Actor:       unum,
		Target:      world.UnknownUnum,
		TargetPoint: target,
		Duration:    duration,
		Description: "move",
	}
}

func NewNoAction(unum int, duration int) *Action {
	return &Action{
		Category:    NoAction,
		Actor:       unum,
		Target:      world.UnknownUnum,
		Duration:    duration,
		Description: "no_action",
	}
}

func (a *Action) String() string {
	return fmt.Sprintf("%s[%d] %d->%d %v speed=%.2f dur=%d kick=%d",
		a.Category, a.Index, a.Actor, a.Target, a.TargetPoint, a.FirstBallSpeed, a.Duration, a.KickCount)
}

func (a *Action) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("category", a.Category.String()),
		slog.Int("actor", a.Actor),
		slog.Int("target", a.Target),
		slog.String("point", a.TargetPoint.String()),
		slog.Float64("speed", a.FirstBallSpeed),
		slog.Int("duration", a.Duration),
		slog.String("desc", a.Description),
	)
}

// SortByDistance orders actions by the distance of their target point to
// p. Equal distances keep their original order.
func SortByDistance(actions []*Action, p geom.Vector) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].TargetPoint.Dist2(p) < actions[j].TargetPoint.Dist2(p)
	})
}

// Pair is one link of a chain: the action and the state it produces.
type Pair struct {
	Action *Action
	State  *state.State
}
