package render

import (
	"math"

	"github.com/inkpress/storefront/internal/scene"
)

// lineHitTolerance is how far, in display pixels, a pointer may be from a
// thin line and still hit it.
const lineHitTolerance = 4.0

// localBox is the unrotated display-space box of an element. The element
// rotates about its center.
func (r *Renderer) localBox(el scene.Element) Rect {
	switch e := el.(type) {
	case *scene.Text:
		w, h := r.measureText(e, 1)
		left := e.X - w*anchor(e.Align)
		return Rect{X: left, Y: e.Y, W: w, H: h}
	case *scene.Shape:
		switch e.Shape {
		case scene.ShapeCircle:
			return Rect{X: e.X - e.Radius, Y: e.Y - e.Radius, W: 2 * e.Radius, H: 2 * e.Radius}
		default:
			return Rect{X: e.X, Y: e.Y, W: e.Width, H: e.Height}.Map(Identity())
		}
	case *scene.Image:
		return Rect{X: e.X, Y: e.Y, W: e.Width, H: e.Height}.Map(Identity())
	}
	return Rect{}
}

// Bounds returns the display-space axis-aligned bounds of el, rotation
// included.
func (r *Renderer) Bounds(el scene.Element) Rect {
	box := r.localBox(el)
	rot := el.Common().Rotation
	if rot == 0 {
		return box
	}
	cx, cy := box.Center()
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{
		{box.X, box.Y}, {box.X + box.W, box.Y},
		{box.X, box.Y + box.H}, {box.X + box.W, box.Y + box.H},
	} {
		x, y := rotatePoint(p[0], p[1], cx, cy, rot)
		minX, minY = math.Min(minX, x), math.Min(minY, y)
		maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Contains reports whether the display-space point hits el.
func (r *Renderer) Contains(el scene.Element, x, y float64) bool {
	box := r.localBox(el)
	if rot := el.Common().Rotation; rot != 0 {
		cx, cy := box.Center()
		x, y = rotatePoint(x, y, cx, cy, -rot)
	}

	s, ok := el.(*scene.Shape)
	if !ok {
		return box.Contains(x, y)
	}
	switch s.Shape {
	case scene.ShapeCircle:
		return math.Hypot(x-s.X, y-s.Y) <= s.Radius+s.StrokeWidth/2
	case scene.ShapeLine:
		tol := math.Max(s.StrokeWidth/2, lineHitTolerance)
		return segmentDistance(x, y, s.X, s.Y, s.X+s.Width, s.Y+s.Height) <= tol
	}
	return box.Inset(-s.StrokeWidth/2).Contains(x, y)
}

func anchor(a scene.Align) float64 {
	switch a {
	case scene.AlignCenter:
		return 0.5
	case scene.AlignRight:
		return 1
	}
	return 0
}

// measureText returns the advance width and ascent+descent height of t at
// scale s.
func (r *Renderer) measureText(t *scene.Text, s float64) (float64, float64) {
	face := r.Fonts.Face(t.FontFamily, t.Bold, t.Italic, t.FontSize*s)
	m := face.Metrics()
	h := m.Ascent + m.Descent
	w := face.Advance(t.Content)
	if t.Content == "" {
		w = t.FontSize * s / 2
	}
	return w, h
}

// rotatePoint rotates (x, y) clockwise by deg degrees about (cx, cy) in a
// y-down coordinate system.
func rotatePoint(x, y, cx, cy, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx, dy := x-cx, y-cy
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

func segmentDistance(px, py, x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-x0, py-y0)
	}
	t := ((px-x0)*dx + (py-y0)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(x0+t*dx), py-(y0+t*dy))
}
