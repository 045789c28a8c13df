package geom

import "math"

// Angle is a direction in degrees, normalized to [-180, 180).
type Angle float64

// Deg normalizes d into an Angle.
func Deg(d float64) Angle {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	if d < -180 || d >= 180 {
		d = math.Mod(d+180, 360)
		if d < 0 {
			d += 360
		}
		d -= 180
	}
	return Angle(d)
}

func (a Angle) Degree() float64 { return float64(a) }
func (a Angle) Radian() float64 { return float64(a) * math.Pi / 180 }
func (a Angle) Abs() float64 { return math.Abs(float64(a)) }
func (a Angle) Cos() float64 { return math.Cos(a.Radian()) }
func (a Angle) Sin() float64 { return math.Sin(a.Radian()) }

// Add returns a+d normalized.
func (a Angle) Add(d float64) Angle { return Deg(float64(a) + d) }

// Sub is the signed difference a-b normalized to [-180, 180).
func (a Angle) Sub(b Angle) Angle { return Deg(float64(a) - float64(b)) }

// Diff is the absolute angular distance between a and b, in [0, 180].
func (a Angle) Diff(b Angle) float64 { return a.Sub(b).Abs() }

// AsinDeg is asin in degrees with the argument clamped to [-1, 1].
func AsinDeg(x float64) float64 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return math.Asin(x) * 180 / math.Pi
}
