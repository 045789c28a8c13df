package geom

// Rect is an axis-aligned rectangle given by its top-left (minimum x, y)
// corner and size.
type Rect struct {
	Min    Vector
	Width  float64
	Height float64
}

func (r Rect) Max() Vector { return Vector{r.Min.X + r.Width, r.Min.Y + r.Height} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vector) bool {
	m := r.Max()
	return p.X >= r.Min.X && p.X <= m.X && p.Y >= r.Min.Y && p.Y <= m.Y
}
