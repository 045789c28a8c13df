// Package params holds the simulator constants the planner reasons with:
// field geometry, ball physics and the per-player-type movement model.
package params

import (
	"math"

	"github.com/brensch/chainplan/geom"
)

// Server mirrors the subset of the soccer server parameters used by the
// planner. Values are in simulator units (metres, cycles).
type Server struct {
	PitchHalfLength      float64 `yaml:"pitch_half_length"`
	PitchHalfWidth       float64 `yaml:"pitch_half_width"`
	GoalHalfWidth        float64 `yaml:"goal_half_width"`
	PenaltyAreaLength    float64 `yaml:"penalty_area_length"`
	PenaltyAreaHalfWidth float64 `yaml:"penalty_area_half_width"`

	BallSpeedMax float64 `yaml:"ball_speed_max"`
	BallDecay    float64 `yaml:"ball_decay"`
	BallAccelMax float64 `yaml:"ball_accel_max"`
	BallSize     float64 `yaml:"ball_size"`
	BallRand     float64 `yaml:"ball_rand"`
	PlayerRand   float64 `yaml:"player_rand"`

	MaxPower      float64 `yaml:"max_power"`
	MinDashPower  float64 `yaml:"min_dash_power"`
	MaxDashPower  float64 `yaml:"max_dash_power"`
	MaxMoment     float64 `yaml:"max_moment"`
	KickPowerRate float64 `yaml:"kick_power_rate"`

	CatchAreaLength float64 `yaml:"catch_area_length"`
	CatchAreaWidth  float64 `yaml:"catch_area_width"`

	StaminaMax        float64 `yaml:"stamina_max"`
	RecoverDecThrRate float64 `yaml:"recover_dec_thr"`
	EffortDecThrRate  float64 `yaml:"effort_dec_thr"`
	EffortDec         float64 `yaml:"effort_dec"`
	EffortMin         float64 `yaml:"effort_min"`
	EffortIncThrRate  float64 `yaml:"effort_inc_thr"`
	EffortInc         float64 `yaml:"effort_inc"`
}

// DefaultServer returns the standard rcssserver values.
func DefaultServer() Server {
	return Server{
		PitchHalfLength:      52.5,
		PitchHalfWidth:       34.0,
		GoalHalfWidth:        7.01,
		PenaltyAreaLength:    16.5,
		PenaltyAreaHalfWidth: 20.16,

		BallSpeedMax: 3.0,
		BallDecay:    0.94,
		BallAccelMax: 2.7,
		BallSize:     0.085,
		BallRand:     0.05,
		PlayerRand:   0.1,

		MaxPower:      100,
		MinDashPower:  -100,
		MaxDashPower:  100,
		MaxMoment:     180,
		KickPowerRate: 0.027,

		CatchAreaLength: 1.2,
		CatchAreaWidth:  1.0,

		StaminaMax:        8000,
		RecoverDecThrRate: 0.3,
		EffortDecThrRate:  0.3,
		EffortDec:         0.005,
		EffortMin:         0.6,
		EffortIncThrRate:  0.6,
		EffortInc:         0.01,
	}
}

func (s *Server) OurPenaltyAreaLineX() float64 { return -s.PitchHalfLength + s.PenaltyAreaLength }
func (s *Server) TheirPenaltyAreaLineX() float64 { return s.PitchHalfLength - s.PenaltyAreaLength }
func (s *Server) OurGoal() geom.Vector { return geom.V(-s.PitchHalfLength, 0) }
func (s *Server) TheirGoal() geom.Vector { return geom.V(s.PitchHalfLength, 0) }
func (s *Server) RecoverDecThr() float64 { return s.StaminaMax * s.RecoverDecThrRate }
func (s *Server) EffortDecThr() float64 { return s.StaminaMax * s.EffortDecThrRate }

// CatchableArea is the goalie's effective control radius: the half
// diagonal of the catch rectangle.
func (s *Server) CatchableArea() float64 {
	return math.Hypot(s.CatchAreaLength, s.CatchAreaWidth*0.5)
}

// TheirPenaltyArea is the opponent penalty area as a rectangle.
func (s *Server) TheirPenaltyArea() geom.Rect {
	return geom.Rect{
		Min:    geom.V(s.TheirPenaltyAreaLineX(), -s.PenaltyAreaHalfWidth),
		Width:  s.PenaltyAreaLength,
		Height: s.PenaltyAreaHalfWidth * 2,
	}
}

// InOurPenaltyArea reports whether p lies in our penalty area.
func (s *Server) InOurPenaltyArea(p geom.Vector) bool {
	return p.X <= s.OurPenaltyAreaLineX() && p.X >= -s.PitchHalfLength && p.AbsY() <= s.PenaltyAreaHalfWidth
}

// InPitch reports whether p lies on the field, shrunk by margin.
func (s *Server) InPitch(p geom.Vector, margin float64) bool {
	return p.AbsX() <= s.PitchHalfLength-margin && p.AbsY() <= s.PitchHalfWidth-margin
}

// FirstBallSpeed is the kick speed that moves the ball dist in exactly
// steps cycles.
func (s *Server) FirstBallSpeed(dist float64, steps int) float64 {
	return geom.FirstTermGeomSeries(dist, s.BallDecay, steps)
}

// BallInertiaPoint is where the ball rests after n free cycles.
func (s *Server) BallInertiaPoint(pos, vel geom.Vector, n int) geom.Vector {
	return geom.InertiaNStepPoint(pos, vel, n, s.BallDecay)
}

// MaxKickVelocity is the fastest ball velocity along dir reachable with a
// single kick, given the kicker's kick rate and the current ball
// velocity. The zero vector means dir cannot be reached in one kick.
func (s *Server) MaxKickVelocity(dir geom.Angle, kickRate float64, ballVel geom.Vector) geom.Vector {
	maxAccel := math.Min(s.MaxPower*kickRate, s.BallAccelMax)
	u := geom.Polar(1, dir)

	// |t*u - ballVel| = maxAccel, solved for the farthest t >= 0.
	b := u.Inner(ballVel)
	disc := b*b - ballVel.Len2() + maxAccel*maxAccel
	if disc < 0 {
		return geom.Vector{}
	}
	t := b + math.Sqrt(disc)
	if t <= 0 {
		return geom.Vector{}
	}
	if t > s.BallSpeedMax {
		t = s.BallSpeedMax
	}
	return u.Scale(t)
}
