package editor

import (
	"fmt"
	"math"
	"time"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/scene"
)

// Placement defaults for new elements, in display pixels.
const (
	DefaultFontFamily = "Inter"
	DefaultFontSize   = 56
	DefaultTextFill   = "#000000"
	DefaultShapeFill  = "#3b82f6"
	DefaultStroke     = "#000000"
	DefaultStrokeW    = 2
	MaxImageSide      = 400
	DuplicateOffset   = 10
)

// TextOptions describes a new text element. Zero fields take defaults.
type TextOptions struct {
	Text       string
	X, Y       *float64
	FontFamily string
	FontSize   float64
	Fill       string
	Bold       bool
	Italic     bool
	Align      scene.Align
	Stroke     *scene.Stroke
}

// ShapeOptions describes a new shape. Zero fields take the defaults of the
// shape kind.
type ShapeOptions struct {
	X, Y          *float64
	Width, Height float64
	Radius        float64
	Fill          string
	StrokeColor   string
	StrokeWidth   *float64
}

// SetProperty applies a property edit immediately. Edits to the same
// element and property within the commit delay collapse into one history
// entry holding the final value; an edit to a different key commits the
// previous one first.
func (e *Editor) SetProperty(id, prop string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.scene.Get(id); !ok {
		return fmt.Errorf("%w: %s", scene.ErrElementNotFound, id)
	}
	if p := e.pending; p != nil && (p.id != id || p.prop != prop) {
		e.flushLocked()
	}
	if err := e.scene.SetProperty(id, prop, value); err != nil {
		return err
	}
	e.dirty = true
	e.emit(EventChanged)

	if e.commitDelay <= 0 {
		e.commitLocked()
		return nil
	}
	e.state = EditingProperty
	if p := e.pending; p != nil {
		p.timer.Reset(e.commitDelay)
		return nil
	}
	p := &pendingCommit{id: id, prop: prop}
	p.timer = time.AfterFunc(e.commitDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.pending == p {
			e.flushLocked()
		}
	})
	e.pending = p
	return nil
}

// AddText creates a text element, selects it and commits.
func (e *Editor) AddText(opts TextOptions) (string, error) {
	if opts.Text == "" {
		return "", fmt.Errorf("%w: text is empty", scene.ErrInvalidProperty)
	}
	t := &scene.Text{
		Base: scene.Base{
			X:       valueOr(opts.X, 60),
			Y:       valueOr(opts.Y, 60),
			Opacity: 1,
		},
		Content:    opts.Text,
		FontFamily: stringOr(opts.FontFamily, DefaultFontFamily),
		FontSize:   opts.FontSize,
		Fill:       stringOr(opts.Fill, DefaultTextFill),
		Bold:       opts.Bold,
		Italic:     opts.Italic,
		Align:      opts.Align,
	}
	if t.FontSize <= 0 {
		t.FontSize = DefaultFontSize
	}
	if t.Align == "" {
		t.Align = scene.AlignLeft
	}
	if opts.Stroke != nil && opts.Stroke.Width > 0 {
		s := *opts.Stroke
		t.Stroke = &s
	}
	return e.add(t)
}

// AddShape creates a rectangle, circle or line, selects it and commits.
func (e *Editor) AddShape(kind scene.ShapeKind, opts ShapeOptions) (string, error) {
	s := &scene.Shape{
		Base:        scene.Base{Opacity: 1},
		Shape:       kind,
		Fill:        stringOr(opts.Fill, DefaultShapeFill),
		StrokeColor: stringOr(opts.StrokeColor, DefaultStroke),
		StrokeWidth: valueOr(opts.StrokeWidth, DefaultStrokeW),
	}
	switch kind {
	case scene.ShapeRectangle:
		s.X, s.Y = valueOr(opts.X, 100), valueOr(opts.Y, 100)
		s.Width, s.Height = positiveOr(opts.Width, 120), positiveOr(opts.Height, 80)
	case scene.ShapeCircle:
		s.X, s.Y = valueOr(opts.X, 150), valueOr(opts.Y, 150)
		s.Radius = positiveOr(opts.Radius, 50)
	case scene.ShapeLine:
		s.X, s.Y = valueOr(opts.X, 50), valueOr(opts.Y, 50)
		s.Width, s.Height = opts.Width, opts.Height
		if s.Width == 0 && s.Height == 0 {
			s.Width = 150
		}
	default:
		return "", fmt.Errorf("%w: unknown shape %q", scene.ErrInvalidProperty, kind)
	}
	return e.add(s)
}

// AddImage places a decoded asset, scaled down to fit MaxImageSide, and
// selects it.
func (e *Editor) AddImage(a *assets.Asset) (string, error) {
	if a == nil || a.Width <= 0 || a.Height <= 0 {
		return "", fmt.Errorf("%w: image has no size", scene.ErrInvalidProperty)
	}
	w, h := float64(a.Width), float64(a.Height)
	if side := math.Max(w, h); side > MaxImageSide {
		f := MaxImageSide / side
		w, h = w*f, h*f
	}
	img := &scene.Image{
		Base:          scene.Base{X: 80, Y: 80, Opacity: 1},
		Width:         w,
		Height:        h,
		AssetID:       a.ID,
		NaturalWidth:  a.Width,
		NaturalHeight: a.Height,
		Filter:        scene.FilterNone,
	}
	return e.add(img)
}

func (e *Editor) add(proto scene.Element) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(proto)
}

func (e *Editor) addLocked(proto scene.Element) (string, error) {
	e.flushLocked()
	el, err := e.scene.Create(proto)
	if err != nil {
		return "", err
	}
	id := el.Common().ID
	e.dirty = true
	e.state = Selected
	e.selected = id
	e.commitLocked()
	e.emit(EventSelection)
	return id, nil
}

// Duplicate copies an element under a fresh id, offset down and right,
// and selects the copy.
func (e *Editor) Duplicate(id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.scene.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", scene.ErrElementNotFound, id)
	}
	e.flushLocked()
	proto := el.Clone()
	b := proto.Common()
	b.X += DuplicateOffset
	b.Y += DuplicateOffset
	return e.addLocked(proto)
}

// Remove deletes an element and commits.
func (e *Editor) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	if err := e.scene.Remove(id); err != nil {
		return err
	}
	if e.selected == id {
		e.drag = dragState{}
		e.setSelection("")
	}
	e.dirty = true
	e.commitLocked()
	return nil
}

// Reorder moves an element in the z-order and commits.
func (e *Editor) Reorder(id string, dir scene.Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	if err := e.scene.Reorder(id, dir); err != nil {
		return err
	}
	e.dirty = true
	e.commitLocked()
	return nil
}

// ApplyFilter sets an image element's filter and commits.
func (e *Editor) ApplyFilter(id string, f scene.Filter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	el, ok := e.scene.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", scene.ErrElementNotFound, id)
	}
	if _, ok := el.(*scene.Image); !ok {
		return fmt.Errorf("%w: %s", ErrNotAnImage, id)
	}
	e.flushLocked()
	if err := e.scene.SetProperty(id, scene.PropFilter, string(f)); err != nil {
		return err
	}
	e.dirty = true
	e.commitLocked()
	return nil
}

// ApplyTemplate replaces the scene's content with copies of elements,
// kept in the given order under fresh ids.
func (e *Editor) ApplyTemplate(elements []scene.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	next := e.scene.Clone()
	next.Clear()
	for _, el := range elements {
		if _, err := next.Create(el); err != nil {
			return fmt.Errorf("failed to apply template: %w", err)
		}
	}
	e.scene.Replace(next)
	e.drag = dragState{}
	e.setSelection("")
	e.dirty = true
	e.commitLocked()
	return nil
}

// Undo restores the previous committed state. It reports false when there
// is nothing to undo.
func (e *Editor) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	data, ok := e.history.Undo()
	if !ok {
		return false, nil
	}
	return true, e.restoreLocked(data)
}

// Redo reapplies the most recently undone state.
func (e *Editor) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	data, ok := e.history.Redo()
	if !ok {
		return false, nil
	}
	return true, e.restoreLocked(data)
}

func (e *Editor) restoreLocked(data []byte) error {
	s, err := scene.Deserialize(data)
	if err != nil {
		return fmt.Errorf("failed to restore history entry: %w", err)
	}
	e.scene.Replace(s)
	e.drag = dragState{}
	if _, ok := e.scene.Get(e.selected); !ok {
		e.selected = ""
	}
	e.state = e.restingState()
	e.dirty = true
	e.emit(EventRestored)
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func positiveOr(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
