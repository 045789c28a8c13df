package geom

import "math"

// The ball loses a constant fraction of its speed every step, so the
// distance covered in n steps is a geometric series in the decay rate.

// FirstTermGeomSeries returns the first term of a geometric series with
// ratio r whose first n terms sum to sum. It is the first ball speed that
// covers sum in exactly n steps.
func FirstTermGeomSeries(sum, r float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	if math.Abs(1-r) < 1e-9 {
		return sum / float64(n)
	}
	return sum * (1 - r) / (1 - math.Pow(r, float64(n)))
}

// LengthGeomSeries returns the (fractional) number of terms needed for a
// series starting at first with ratio r to reach sum. It returns -1 when
// the sum can never be reached.
func LengthGeomSeries(first, sum, r float64) float64 {
	if first <= 1e-9 || r <= 0 || r >= 1 {
		return -1
	}
	if sum <= 0 {
		return 0
	}
	v := 1 - sum*(1-r)/first
	if v <= 1e-9 {
		return -1
	}
	return math.Log(v) / math.Log(r)
}

// SumInfGeomSeries is the limit of the series: the distance an object
// travels with initial speed first and decay r before stopping.
func SumInfGeomSeries(first, r float64) float64 {
	if r >= 1 {
		return math.Inf(1)
	}
	return first / (1 - r)
}

// InertiaNStepDistance is the distance covered in n steps from speed.
func InertiaNStepDistance(speed float64, n int, decay float64) float64 {
	if n <= 0 {
		return 0
	}
	return speed * (1 - math.Pow(decay, float64(n))) / (1 - decay)
}

// InertiaNStepTravel is the displacement after n steps from velocity vel.
func InertiaNStepTravel(vel Vector, n int, decay float64) Vector {
	if n <= 0 {
		return Vector{}
	}
	return vel.Scale((1 - math.Pow(decay, float64(n))) / (1 - decay))
}

// InertiaNStepPoint is where an object at pos with velocity vel rests
// after n steps of free movement.
func InertiaNStepPoint(pos, vel Vector, n int, decay float64) Vector {
	return pos.Add(InertiaNStepTravel(vel, n, decay))
}

// InertiaFinalPoint is where an object at pos with velocity vel stops.
func InertiaFinalPoint(pos, vel Vector, decay float64) Vector {
	return pos.Add(vel.Scale(1 / (1 - decay)))
}
