// Package render rasterizes scene elements onto RGBA surfaces.
//
// Every element is drawn on its own layer, post-processed, rotated about
// its center and then composited with its opacity, so a filter or
// rotation never touches pixels that belong to another element.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/gogpu/gg"

	"github.com/inkpress/storefront/internal/scene"
)

// ErrAssetUnavailable is returned when an image element's raster cannot be
// resolved.
var ErrAssetUnavailable = errors.New("asset unavailable")

// AssetSource resolves image element asset ids to decoded rasters.
type AssetSource interface {
	Image(id string) (image.Image, bool)
}

// Renderer is stateless apart from its collaborators and safe for
// concurrent use.
type Renderer struct {
	Fonts  *FontRegistry
	Assets AssetSource
	Logger *slog.Logger
}

func NewRenderer(fonts *FontRegistry, assets AssetSource, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{Fonts: fonts, Assets: assets, Logger: logger}
}

// RenderScene draws elements in ascending z-order. Elements whose asset is
// unavailable are logged and skipped for this frame; other failures are
// collected and returned after the remaining elements have been drawn.
func (r *Renderer) RenderScene(dst *Surface, elements []scene.Element, xf Transform) error {
	var errs []error
	for _, el := range elements {
		err := r.Render(dst, el, xf)
		switch {
		case err == nil:
		case errors.Is(err, ErrAssetUnavailable):
			r.Logger.Warn("Skipping element with unavailable asset", "element", el.Common().ID, "error", err)
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render draws exactly one element.
func (r *Renderer) Render(dst *Surface, el scene.Element, xf Transform) error {
	b := el.Common()
	if b.Opacity <= 0 {
		// invisible, but a missing asset still has to surface
		if img, ok := el.(*scene.Image); ok {
			return r.resolve(img)
		}
		return nil
	}

	var (
		layer *image.RGBA
		at    image.Point
		err   error
	)
	clip := dst.img.Rect
	if b.Rotation != 0 {
		clip = image.Rectangle{}
	}
	switch e := el.(type) {
	case *scene.Text:
		layer, at, err = r.textLayer(e, xf, clip)
	case *scene.Shape:
		layer, at, err = r.shapeLayer(e, xf, clip)
	case *scene.Image:
		layer, at, err = r.imageLayer(e, xf)
	default:
		return fmt.Errorf("unsupported element type %T", el)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s %s: %w", b.Kind, b.ID, err)
	}
	if layer == nil {
		return nil
	}
	if b.Rotation != 0 {
		layer, at = rotateLayer(layer, at, b.Rotation)
	}
	dst.composite(layer, at, b.Opacity)
	return nil
}

// newLayer creates a gg context covering box in destination pixels. A
// non-empty clip limits the layer to that area.
func newLayer(box Rect, clip image.Rectangle) (*gg.Context, image.Point, bool) {
	rect := image.Rect(
		int(math.Floor(box.X)), int(math.Floor(box.Y)),
		int(math.Ceil(box.X+box.W)), int(math.Ceil(box.Y+box.H)),
	)
	if !clip.Empty() {
		rect = rect.Intersect(clip)
	}
	if rect.Empty() {
		return nil, image.Point{}, false
	}
	return gg.NewContext(rect.Dx(), rect.Dy()), rect.Min, true
}

// layerImage returns the context's pixels as a premultiplied RGBA image.
// gg hands back a fresh *image.RGBA copy of its premultiplied pixmap.
func layerImage(ctx *gg.Context) *image.RGBA {
	img := ctx.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

func (r *Renderer) shapeLayer(s *scene.Shape, xf Transform, clip image.Rectangle) (*image.RGBA, image.Point, error) {
	sw := xf.Len(s.StrokeWidth)
	fill, hasFill := ParseColor(s.Fill)
	stroke, hasStroke := ParseColor(s.StrokeColor)
	hasStroke = hasStroke && sw > 0

	var box Rect
	switch s.Shape {
	case scene.ShapeCircle:
		cx, cy := xf.Apply(s.X, s.Y)
		rr := xf.Len(s.Radius)
		box = Rect{X: cx - rr, Y: cy - rr, W: 2 * rr, H: 2 * rr}
	case scene.ShapeLine:
		if !hasStroke {
			// a line with no stroke color takes its fill color
			stroke, hasStroke = fill, hasFill
		}
		hasFill = false
		sw = math.Max(sw, xf.Len(1))
		box = Rect{X: s.X, Y: s.Y, W: s.Width, H: s.Height}.Map(xf)
	default:
		box = Rect{X: s.X, Y: s.Y, W: s.Width, H: s.Height}.Map(xf)
	}
	if !hasFill && !hasStroke {
		return nil, image.Point{}, nil
	}

	ctx, at, ok := newLayer(box.Inset(-(sw/2 + 2)), clip)
	if !ok {
		return nil, image.Point{}, nil
	}
	defer ctx.Close()
	ox, oy := float64(at.X), float64(at.Y)

	path := func() {
		switch s.Shape {
		case scene.ShapeCircle:
			cx, cy := box.Center()
			ctx.DrawCircle(cx-ox, cy-oy, box.W/2)
		case scene.ShapeLine:
			x0, y0 := xf.Apply(s.X, s.Y)
			x1, y1 := xf.Apply(s.X+s.Width, s.Y+s.Height)
			ctx.DrawLine(x0-ox, y0-oy, x1-ox, y1-oy)
		default:
			if s.Corner > 0 {
				ctx.DrawRoundedRectangle(box.X-ox, box.Y-oy, box.W, box.H, xf.Len(s.Corner))
			} else {
				ctx.DrawRectangle(box.X-ox, box.Y-oy, box.W, box.H)
			}
		}
	}
	if hasFill {
		path()
		ctx.SetColor(fill.Color())
		if err := ctx.Fill(); err != nil {
			return nil, image.Point{}, fmt.Errorf("fill: %w", err)
		}
	}
	if hasStroke {
		path()
		ctx.SetLineWidth(sw)
		ctx.SetColor(stroke.Color())
		if err := ctx.Stroke(); err != nil {
			return nil, image.Point{}, fmt.Errorf("stroke: %w", err)
		}
	}
	return layerImage(ctx), at, nil
}

// textStrokeSteps is the number of offset passes used to outline text.
const textStrokeSteps = 16

func (r *Renderer) textLayer(t *scene.Text, xf Transform, clip image.Rectangle) (*image.RGBA, image.Point, error) {
	if t.Content == "" {
		return nil, image.Point{}, nil
	}
	fill, hasFill := ParseColor(t.Fill)
	var stroke gg.RGBA
	var sw float64
	hasStroke := false
	if t.Stroke != nil {
		stroke, hasStroke = ParseColor(t.Stroke.Color)
		sw = xf.Len(t.Stroke.Width)
		hasStroke = hasStroke && sw > 0
	}
	if !hasFill && !hasStroke {
		return nil, image.Point{}, nil
	}

	face := r.Fonts.Face(t.FontFamily, t.Bold, t.Italic, xf.Len(t.FontSize))
	m := face.Metrics()
	w := face.Advance(t.Content)
	x, y := xf.Apply(t.X, t.Y)
	left := x - w*anchor(t.Align)
	box := Rect{X: left, Y: y, W: w, H: m.Ascent + m.Descent}

	ctx, at, ok := newLayer(box.Inset(-(sw/2 + 2)), clip)
	if !ok {
		return nil, image.Point{}, nil
	}
	defer ctx.Close()
	ctx.SetFont(face)
	bx := left - float64(at.X)
	by := y - float64(at.Y) + m.Ascent

	if hasStroke {
		ctx.SetColor(stroke.Color())
		for i := 0; i < textStrokeSteps; i++ {
			a := 2 * math.Pi * float64(i) / textStrokeSteps
			ctx.DrawString(t.Content, bx+math.Cos(a)*sw/2, by+math.Sin(a)*sw/2)
		}
	}
	if hasFill {
		ctx.SetColor(fill.Color())
		ctx.DrawString(t.Content, bx, by)
	}
	return layerImage(ctx), at, nil
}

func (r *Renderer) imageLayer(e *scene.Image, xf Transform) (*image.RGBA, image.Point, error) {
	src, err := r.source(e)
	if err != nil {
		return nil, image.Point{}, err
	}

	box := Rect{X: e.X, Y: e.Y, W: e.Width, H: e.Height}.Map(xf)
	w := int(math.Round(box.W))
	h := int(math.Round(box.H))
	if w <= 0 || h <= 0 {
		return nil, image.Point{}, nil
	}
	at := image.Pt(int(math.Round(box.X)), int(math.Round(box.Y)))
	layer := transform.Resize(src, w, h, transform.Linear)
	return ApplyFilter(layer, e.Filter, xf.Len(1)), at, nil
}

func (r *Renderer) source(e *scene.Image) (image.Image, error) {
	if r.Assets != nil {
		if src, ok := r.Assets.Image(e.AssetID); ok && src != nil {
			return src, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAssetUnavailable, e.AssetID)
}

func (r *Renderer) resolve(e *scene.Image) error {
	if _, err := r.source(e); err != nil {
		return fmt.Errorf("failed to render %s %s: %w", e.Kind, e.ID, err)
	}
	return nil
}

// Unresolved returns the ids of image elements whose asset cannot be
// resolved yet.
func (r *Renderer) Unresolved(elements []scene.Element) []string {
	var ids []string
	for _, el := range elements {
		if img, ok := el.(*scene.Image); ok {
			if _, err := r.source(img); err != nil {
				ids = append(ids, img.ID)
			}
		}
	}
	return ids
}

// rotateLayer turns layer clockwise by deg degrees about its center and
// returns the grown image with its new top-left.
func rotateLayer(layer *image.RGBA, at image.Point, deg float64) (*image.RGBA, image.Point) {
	b := layer.Bounds()
	cx := float64(at.X) + float64(b.Dx())/2
	cy := float64(at.Y) + float64(b.Dy())/2
	rotated := transform.Rotate(layer, deg, &transform.RotationOptions{ResizeBounds: true})
	rb := rotated.Bounds()
	return rotated, image.Pt(
		int(math.Round(cx-float64(rb.Dx())/2)),
		int(math.Round(cy-float64(rb.Dy())/2)),
	)
}
