package params

import (
	"math"
	"sort"

	"github.com/brensch/chainplan/geom"
)

const dashTableSize = 50

// PlayerType is one heterogeneous player type. Derived values are filled
// by Init and must not be edited afterwards.
type PlayerType struct {
	ID             int     `yaml:"id"`
	PlayerSpeedMax float64 `yaml:"player_speed_max"`
	PlayerDecay    float64 `yaml:"player_decay"`
	InertiaMoment  float64 `yaml:"inertia_moment"`
	DashPowerRate  float64 `yaml:"dash_power_rate"`
	PlayerSize     float64 `yaml:"player_size"`
	KickableMargin float64 `yaml:"kickable_margin"`
	KickRand       float64 `yaml:"kick_rand"`
	EffortMax      float64 `yaml:"effort_max"`
	StaminaIncMax  float64 `yaml:"stamina_inc_max"`

	ballSize      float64
	maxDashPower  float64
	kickPowerRate float64
	realSpeedMax  float64
	dashTable     []float64
}

// DefaultPlayerType returns the type-0 player initialized against sp.
func DefaultPlayerType(sp *Server) PlayerType {
	t := PlayerType{
		ID:             0,
		PlayerSpeedMax: 1.05,
		PlayerDecay:    0.4,
		InertiaMoment:  5.0,
		DashPowerRate:  0.006,
		PlayerSize:     0.3,
		KickableMargin: 0.7,
		KickRand:       0.1,
		EffortMax:      1.0,
		StaminaIncMax:  45,
	}
	t.Init(sp)
	return t
}

// Init computes the derived movement model. It is idempotent.
func (t *PlayerType) Init(sp *Server) {
	t.ballSize = sp.BallSize
	t.maxDashPower = sp.MaxDashPower
	t.kickPowerRate = sp.KickPowerRate

	accel := t.MaxDashAccel()
	t.realSpeedMax = math.Min(t.PlayerSpeedMax, accel/(1-t.PlayerDecay))

	t.dashTable = make([]float64, dashTableSize)
	speed, dist := 0.0, 0.0
	for i := range t.dashTable {
		speed += accel
		if speed > t.PlayerSpeedMax {
			speed = t.PlayerSpeedMax
		}
		dist += speed
		t.dashTable[i] = dist
		speed *= t.PlayerDecay
	}
}

func (t *PlayerType) KickableArea() float64 { return t.PlayerSize + t.KickableMargin + t.ballSize }
func (t *PlayerType) RealSpeedMax() float64 { return t.realSpeedMax }

// MaxDashAccel is the acceleration of a full-power forward dash at
// maximum effort.
func (t *PlayerType) MaxDashAccel() float64 {
	return t.maxDashPower * t.DashPowerRate * t.EffortMax
}

// CyclesToReachDistance is the number of full-power dashes from rest
// needed to cover dist.
func (t *PlayerType) CyclesToReachDistance(dist float64) int {
	if dist <= 0.001 {
		return 0
	}
	if len(t.dashTable) == 0 {
		return int(math.Ceil(dist / math.Max(t.PlayerSpeedMax, 0.01)))
	}
	idx := sort.SearchFloat64s(t.dashTable, dist)
	if idx < len(t.dashTable) {
		return idx + 1
	}
	rest := dist - t.dashTable[len(t.dashTable)-1]
	return len(t.dashTable) + int(math.Ceil(rest/t.realSpeedMax))
}

// EffectiveTurn is the body rotation actually achieved by a turn command
// of the given moment while moving at speed.
func (t *PlayerType) EffectiveTurn(moment, speed float64) float64 {
	return moment / (1 + t.InertiaMoment*speed)
}

// KickRate is the kick power rate for a ball at dist from the player's
// centre and dirDiff degrees away from its body direction.
func (t *PlayerType) KickRate(dist, dirDiff float64) float64 {
	return t.kickPowerRate * (1 - 0.25*math.Abs(dirDiff)/180 -
		0.25*(dist-t.ballSize-t.PlayerSize)/t.KickableMargin)
}

func (t *PlayerType) InertiaPoint(pos, vel geom.Vector, n int) geom.Vector {
	return geom.InertiaNStepPoint(pos, vel, n, t.PlayerDecay)
}

func (t *PlayerType) InertiaFinalPoint(pos, vel geom.Vector) geom.Vector {
	return geom.InertiaFinalPoint(pos, vel, t.PlayerDecay)
}
