package params

import "math"

// Stamina is a player's stamina state, advanced one cycle at a time.
// Recovery is treated as constant over the short horizons the planner
// simulates.
type Stamina struct {
	Stamina float64
	Effort  float64
}

// FullStamina is the state of a rested player of type t.
func FullStamina(sp *Server, t *PlayerType) Stamina {
	return Stamina{Stamina: sp.StaminaMax, Effort: t.EffortMax}
}

// SimulateWait advances one cycle without dashing.
func (m *Stamina) SimulateWait(sp *Server, t *PlayerType) {
	if m.Stamina <= sp.EffortDecThr() && m.Effort > sp.EffortMin {
		m.Effort = math.Max(sp.EffortMin, m.Effort-sp.EffortDec)
	}
	if m.Stamina >= sp.StaminaMax*sp.EffortIncThrRate {
		m.Effort = math.Min(t.EffortMax, m.Effort+sp.EffortInc)
	}
	m.Stamina = math.Min(sp.StaminaMax, m.Stamina+t.StaminaIncMax)
}

// SimulateWaits advances n idle cycles.
func (m *Stamina) SimulateWaits(sp *Server, t *PlayerType, n int) {
	for i := 0; i < n; i++ {
		m.SimulateWait(sp, t)
	}
}

// SimulateDash advances one cycle with a dash of the given power.
// Backward dashes cost double.
func (m *Stamina) SimulateDash(sp *Server, t *PlayerType, power float64) {
	cost := power
	if power < 0 {
		cost = -2 * power
	}
	m.Stamina = math.Max(0, m.Stamina-cost)
	m.SimulateWait(sp, t)
}

// SafetyDashPower caps power so a dash never takes stamina below the
// recovery decrement threshold.
func (m *Stamina) SafetyDashPower(sp *Server, power float64) float64 {
	required := power
	if power < 0 {
		required = -2 * power
	}
	out := math.Min(required, math.Max(0, m.Stamina-sp.RecoverDecThr()-1))
	if power < 0 {
		out *= -0.5
	}
	return out
}
