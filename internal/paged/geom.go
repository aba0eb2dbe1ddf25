package paged

import "math"

// Point is a position in points, relative to the top-left corner of a frame.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Size is a width/height pair in points.
type Size struct {
	W, H float64
}

// Transform is a 2D affine transform:
//
//	x' = SX*x + KX*y + TX
//	y' = KY*x + SY*y + TY
type Transform struct {
	SX, KY, KX, SY, TX, TY float64
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform { return Transform{SX: 1, SY: 1} }

// Translate returns a pure translation.
func Translate(dx, dy float64) Transform { return Transform{SX: 1, SY: 1, TX: dx, TY: dy} }

// Scale returns a pure scaling transform.
func Scale(sx, sy float64) Transform { return Transform{SX: sx, SY: sy} }

// IsIdentity reports whether t leaves points unchanged.
func (t Transform) IsIdentity() bool { return t == Identity() }

// Apply transforms p.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.SX*p.X + t.KX*p.Y + t.TX,
		Y: t.KY*p.X + t.SY*p.Y + t.TY,
	}
}

// Then returns the transform applying t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		SX: u.SX*t.SX + u.KX*t.KY,
		KY: u.KY*t.SX + u.SY*t.KY,
		KX: u.SX*t.KX + u.KX*t.SY,
		SY: u.KY*t.KX + u.SY*t.SY,
		TX: u.SX*t.TX + u.KX*t.TY + u.TX,
		TY: u.KY*t.TX + u.SY*t.TY + u.TY,
	}
}

// Invert returns the inverse transform, or false when t is singular.
func (t Transform) Invert() (Transform, bool) {
	det := t.SX*t.SY - t.KX*t.KY
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}
	inv := Transform{
		SX: t.SY / det,
		KY: -t.KY / det,
		KX: -t.KX / det,
		SY: t.SX / det,
	}
	inv.TX = -(inv.SX*t.TX + inv.KX*t.TY)
	inv.TY = -(inv.KY*t.TX + inv.SY*t.TY)
	return inv, true
}
