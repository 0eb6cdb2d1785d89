package scene

import (
	"math"
	"strings"
)

// Kind identifies the variant of an Element.
type Kind string

const (
	KindText  Kind = "text"
	KindShape Kind = "shape"
	KindImage Kind = "image"
)

// Align is the horizontal alignment of a text element relative to its X.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ShapeKind is the subtype of a shape element.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
)

// Filter is the single post-process applied to an image element.
type Filter string

const (
	FilterNone       Filter = "none"
	FilterGrayscale  Filter = "grayscale"
	FilterSepia      Filter = "sepia"
	FilterInvert     Filter = "invert"
	FilterBlur       Filter = "blur"
	FilterBrightness Filter = "brightness"
	FilterSharpen    Filter = "sharpen"
)

// ParseFilter accepts the filter names used by the customizer UI
// ("Grayscale", "None", ...) as well as the lower-case wire values.
func ParseFilter(name string) (Filter, bool) {
	switch Filter(strings.ToLower(name)) {
	case "", FilterNone:
		return FilterNone, true
	case FilterGrayscale:
		return FilterGrayscale, true
	case FilterSepia:
		return FilterSepia, true
	case FilterInvert:
		return FilterInvert, true
	case FilterBlur:
		return FilterBlur, true
	case FilterBrightness:
		return FilterBrightness, true
	case FilterSharpen, "convolute":
		return FilterSharpen, true
	}
	return "", false
}

// Element is one drawable object in a scene. The concrete types are
// *Text, *Shape and *Image.
type Element interface {
	// Common returns the fields shared by every element kind.
	Common() *Base
	// Clone returns a deep copy of the element.
	Clone() Element
}

// Base holds the fields every element carries.
type Base struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	ZOrder   int     `json:"zOrder"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation,omitempty"` // degrees, clockwise
}

func (b *Base) Common() *Base { return b }

// Stroke is an optional outline.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Text is a single line of styled text.
type Text struct {
	Base
	Content    string  `json:"text"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	Fill       string  `json:"fill"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Align      Align   `json:"align"`
	Stroke     *Stroke `json:"stroke,omitempty"`
}

func (t *Text) Clone() Element {
	c := *t
	if t.Stroke != nil {
		s := *t.Stroke
		c.Stroke = &s
	}
	return &c
}

// Shape is a rectangle, circle or line.
//
// A rectangle is positioned by its top-left corner, a circle by its center,
// and a line runs from (X, Y) to (X+Width, Y+Height).
type Shape struct {
	Base
	Shape       ShapeKind `json:"shape"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	Corner      float64   `json:"cornerRadius,omitempty"` // rectangles only
	Fill        string    `json:"fill,omitempty"`
	StrokeColor string    `json:"strokeColor,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
}

func (s *Shape) Clone() Element {
	c := *s
	return &c
}

// Image is an uploaded raster placed on the canvas.
type Image struct {
	Base
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	AssetID       string  `json:"assetId"`
	NaturalWidth  int     `json:"naturalWidth"`
	NaturalHeight int     `json:"naturalHeight"`
	Filter        Filter  `json:"filter"`
}

func (i *Image) Clone() Element {
	c := *i
	return &c
}

// ClampOpacity pins v into [0, 1].
func ClampOpacity(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
