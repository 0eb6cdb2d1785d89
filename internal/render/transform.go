package render

import "math"

// Transform maps scene (display) coordinates to surface pixels.
type Transform struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
}

// Identity draws display space 1:1.
func Identity() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Scale is a uniform scale without offset.
func Scale(s float64) Transform {
	return Transform{ScaleX: s, ScaleY: s}
}

// Apply maps a point.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.ScaleX + t.OffsetX, y*t.ScaleY + t.OffsetY
}

// Len maps a length such as a stroke width, font size or blur radius.
func (t Transform) Len(v float64) float64 {
	return v * (math.Abs(t.ScaleX) + math.Abs(t.ScaleY)) / 2
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Inset shrinks r by d on every side; negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Map applies t to r.
func (r Rect) Map(t Transform) Rect {
	x0, y0 := t.Apply(r.X, r.Y)
	x1, y1 := t.Apply(r.X+r.W, r.Y+r.H)
	return Rect{X: math.Min(x0, x1), Y: math.Min(y0, y1), W: math.Abs(x1 - x0), H: math.Abs(y1 - y0)}
}
