package world

import (
	"strings"

	"github.com/pkg/errors"
)

// GameMode is the referee play mode from our point of view.
type GameMode int

const (
	PlayOn GameMode = iota
	BeforeKickOff
	KickOff
	KickIn
	FreeKick
	IndFreeKick
	CornerKick
	GoalKick
	PenaltyKick
	AfterGoal
	OtherMode
)

var modeNames = [...]string{
	PlayOn:        "play_on",
	BeforeKickOff: "before_kick_off",
	KickOff:       "kick_off",
	KickIn:        "kick_in",
	FreeKick:      "free_kick",
	IndFreeKick:   "indirect_free_kick",
	CornerKick:    "corner_kick",
	GoalKick:      "goal_kick",
	PenaltyKick:   "penalty_kick",
	AfterGoal:     "after_goal",
	OtherMode:     "other",
}

func (m GameMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "other"
	}
	return modeNames[m]
}

func (m GameMode) IsPenaltyKick() bool { return m == PenaltyKick }

// ParseGameMode accepts the names produced by String.
func ParseGameMode(s string) (GameMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return GameMode(i), nil
		}
	}
	return OtherMode, errors.Errorf("unknown game mode %q", s)
}

func (m GameMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *GameMode) UnmarshalText(b []byte) error {
	v, err := ParseGameMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
