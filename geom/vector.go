// Package geom holds the planar geometry used by the planner: vectors,
// angles in degrees, rectangles and the ball-decay series helpers.
//
// Coordinates follow the soccer simulator convention: the field centre is
// (0,0), we attack towards +x and angles are measured in degrees with
// 0 along +x and positive angles rotating towards +y.
package geom

import (
	"fmt"
	"math"
)

// Vector is a 2D point or displacement.
type Vector struct {
	X float64
	Y float64
}

// V is shorthand for Vector{x, y}.
func V(x, y float64) Vector {
	return Vector{X: x, Y: y}
}

// Polar builds a vector of length r pointing at dir.
func Polar(r float64, dir Angle) Vector {
	rad := dir.Radian()
	return Vector{X: r * math.Cos(rad), Y: r * math.Sin(rad)}
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Scale(k float64) Vector { return Vector{v.X * k, v.Y * k} }
func (v Vector) Inner(o Vector) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vector) Len2() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vector) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vector) Dist2(o Vector) float64 { return v.Sub(o).Len2() }
func (v Vector) Dist(o Vector) float64 { return v.Sub(o).Len() }
func (v Vector) AbsX() float64 { return math.Abs(v.X) }
func (v Vector) AbsY() float64 { return math.Abs(v.Y) }
func (v Vector) Equal(o Vector) bool { return v.X == o.X && v.Y == o.Y }
func (v Vector) String() string { return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y) }
func (v Vector) Near(o Vector, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Dir is the direction of v. The zero vector points at 0 degrees.
func (v Vector) Dir() Angle {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return Deg(math.Atan2(v.Y, v.X) * 180 / math.Pi)
}

// WithLen scales v to length l, keeping its direction.
func (v Vector) WithLen(l float64) Vector {
	n := v.Len()
	if n < 1e-10 {
		return Vector{}
	}
	return v.Scale(l / n)
}

// Rotate turns v by a around the origin.
func (v Vector) Rotate(a Angle) Vector {
	c, s := a.Cos(), a.Sin()
	return Vector{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// DistToSegment is the shortest distance from p to the segment [a, b].
func DistToSegment(p, a, b Vector) float64 {
	ab := b.Sub(a)
	l2 := ab.Len2()
	if l2 < 1e-12 {
		return p.Dist(a)
	}
	t := p.Sub(a).Inner(ab) / l2
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	return p.Dist(a.Add(ab.Scale(t)))
}

// SegmentIntersection returns the crossing point of segments a1-a2 and
// b1-b2, endpoints included. Parallel segments never intersect.
func SegmentIntersection(a1, a2, b1, b2 Vector) (Vector, bool) {
	da := a2.Sub(a1)
	db := b2.Sub(b1)
	den := da.X*db.Y - da.Y*db.X
	if math.Abs(den) < 1e-9 {
		return Vector{}, false
	}
	w := b1.Sub(a1)
	t := (w.X*db.Y - w.Y*db.X) / den
	u := (w.X*da.Y - w.Y*da.X) / den
	const eps = 1e-9
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return Vector{}, false
	}
	return a1.Add(da.Scale(t)), true
}
