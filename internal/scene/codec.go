package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// SnapshotVersion is the current serialization format version.
const SnapshotVersion = 1

type envelope struct {
	Version      int               `json:"version"`
	CanvasWidth  *float64          `json:"canvasWidth"`
	CanvasHeight *float64          `json:"canvasHeight"`
	Elements     []json.RawMessage `json:"elements"`
}

type outEnvelope struct {
	Version      int       `json:"version"`
	CanvasWidth  float64   `json:"canvasWidth"`
	CanvasHeight float64   `json:"canvasHeight"`
	Elements     []Element `json:"elements"`
}

// header is decoded first to pick the concrete element type.
type header struct {
	ID      *string  `json:"id"`
	Kind    Kind     `json:"kind"`
	ZOrder  *int     `json:"zOrder"`
	Opacity *float64 `json:"opacity"`
}

// Serialize encodes the scene as a versioned JSON snapshot. Equal scenes
// produce byte-identical output.
func (s *Scene) Serialize() ([]byte, error) {
	out := outEnvelope{
		Version:      SnapshotVersion,
		CanvasWidth:  s.CanvasWidth,
		CanvasHeight: s.CanvasHeight,
		Elements:     s.elements,
	}
	if out.Elements == nil {
		out.Elements = []Element{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize scene: %w", err)
	}
	return data, nil
}

// Deserialize decodes a snapshot produced by Serialize. Any missing
// required field or unknown element kind yields ErrMalformedSnapshot.
func Deserialize(data []byte) (*Scene, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if env.Version == 0 {
		env.Version = SnapshotVersion
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedSnapshot, env.Version)
	}
	if env.CanvasWidth == nil || env.CanvasHeight == nil {
		return nil, fmt.Errorf("%w: missing canvas dimensions", ErrMalformedSnapshot)
	}
	if *env.CanvasWidth <= 0 || *env.CanvasHeight <= 0 {
		return nil, fmt.Errorf("%w: non-positive canvas dimensions", ErrMalformedSnapshot)
	}

	s := New(*env.CanvasWidth, *env.CanvasHeight)
	seen := make(map[string]struct{}, len(env.Elements))
	for i, raw := range env.Elements {
		el, err := decodeElement(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		id := el.Common().ID
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformedSnapshot, id)
		}
		seen[id] = struct{}{}
		s.elements = append(s.elements, el)
	}

	sort.SliceStable(s.elements, func(a, b int) bool {
		return s.elements[a].Common().ZOrder < s.elements[b].Common().ZOrder
	})
	s.normalize()
	return s, nil
}

func decodeElement(raw json.RawMessage) (Element, error) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if h.ID == nil || *h.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedSnapshot)
	}
	if h.ZOrder == nil {
		return nil, fmt.Errorf("%w: %s: missing zOrder", ErrMalformedSnapshot, *h.ID)
	}
	if h.Opacity == nil {
		return nil, fmt.Errorf("%w: %s: missing opacity", ErrMalformedSnapshot, *h.ID)
	}

	var el Element
	switch h.Kind {
	case KindText:
		el = &Text{}
	case KindShape:
		el = &Shape{}
	case KindImage:
		el = &Image{}
	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrMalformedSnapshot, *h.ID, h.Kind)
	}
	if err := json.Unmarshal(raw, el); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, *h.ID, err)
	}
	if err := validate(el); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, *h.ID, err)
	}
	b := el.Common()
	b.Opacity = ClampOpacity(b.Opacity)
	return el, nil
}

func validate(el Element) error {
	switch e := el.(type) {
	case *Text:
		if e.FontSize <= 0 {
			return fmt.Errorf("fontSize must be positive")
		}
		switch e.Align {
		case "":
			e.Align = AlignLeft
		case AlignLeft, AlignCenter, AlignRight:
		default:
			return fmt.Errorf("unknown align %q", e.Align)
		}
	case *Shape:
		switch e.Shape {
		case ShapeRectangle, ShapeLine:
		case ShapeCircle:
			if e.Radius <= 0 {
				return fmt.Errorf("circle radius must be positive")
			}
		default:
			return fmt.Errorf("unknown shape %q", e.Shape)
		}
	case *Image:
		if e.AssetID == "" {
			return fmt.Errorf("missing assetId")
		}
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("image size must be positive")
		}
		f, ok := ParseFilter(string(e.Filter))
		if !ok {
			return fmt.Errorf("unknown filter %q", e.Filter)
		}
		e.Filter = f
	}
	return nil
}
