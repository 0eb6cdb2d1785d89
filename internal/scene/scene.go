// Package scene holds the editable description of a customization: the
// canvas size and the ordered list of drawable elements.
//
// Positions and sizes are display-space values. Production coordinates are
// derived at export time and never stored here.
package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrElementNotFound is returned when a mutation targets an unknown id.
	ErrElementNotFound = errors.New("element not found")
	// ErrMalformedSnapshot is returned when a snapshot cannot be decoded.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrInvalidProperty is returned for unknown properties or bad values.
	ErrInvalidProperty = errors.New("invalid property")
)

// Direction is a z-order move.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Front    Direction = "front"
	Back     Direction = "back"
)

// Scene is the customization state for one print area.
type Scene struct {
	CanvasWidth  float64
	CanvasHeight float64

	// elements is kept in render order; elements[i].ZOrder == i.
	elements []Element

	// newID is swapped in tests that need deterministic ids.
	newID func() string
}

// New returns an empty scene with the given display-space canvas size.
func New(width, height float64) *Scene {
	return &Scene{
		CanvasWidth:  width,
		CanvasHeight: height,
		newID:        uuid.NewString,
	}
}

// Len returns the number of elements.
func (s *Scene) Len() int {
	return len(s.elements)
}

// Elements returns the elements in ascending z-order. The slice is a copy;
// the elements themselves are live.
func (s *Scene) Elements() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// Get returns the live element with the given id.
func (s *Scene) Get(id string) (Element, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.elements[i], true
}

// Create adds a copy of proto with a fresh id at the top of the z-order.
func (s *Scene) Create(proto Element) (Element, error) {
	if proto == nil {
		return nil, fmt.Errorf("%w: nil element", ErrInvalidProperty)
	}
	el := proto.Clone()
	kind, ok := kindOf(el)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported element type %T", ErrInvalidProperty, proto)
	}
	b := el.Common()
	b.Kind = kind
	b.ID = s.nextID()
	b.Opacity = ClampOpacity(b.Opacity)
	s.elements = append(s.elements, el)
	s.normalize()
	return el, nil
}

// Insert adds el as-is (keeping its id) at the top of the z-order. It is
// used when restoring elements that already have an identity.
func (s *Scene) Insert(el Element) error {
	id := el.Common().ID
	if id == "" {
		return fmt.Errorf("%w: element without id", ErrInvalidProperty)
	}
	if s.index(id) >= 0 {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidProperty, id)
	}
	kind, ok := kindOf(el)
	if !ok {
		return fmt.Errorf("%w: unsupported element type %T", ErrInvalidProperty, el)
	}
	el.Common().Kind = kind
	el.Common().Opacity = ClampOpacity(el.Common().Opacity)
	s.elements = append(s.elements, el)
	s.normalize()
	return nil
}

// Update runs fn against the live element with the given id.
func (s *Scene) Update(id string, fn func(Element) error) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	el := s.elements[i]
	if err := fn(el); err != nil {
		return err
	}
	b := el.Common()
	b.Opacity = ClampOpacity(b.Opacity)
	b.ZOrder = i
	return nil
}

// SetProperty applies a single named property edit to an element.
func (s *Scene) SetProperty(id, prop string, value any) error {
	return s.Update(id, func(el Element) error {
		return SetProperty(el, prop, value)
	})
}

// Remove deletes the element with the given id.
func (s *Scene) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	s.normalize()
	return nil
}

// Clear removes every element.
func (s *Scene) Clear() {
	s.elements = nil
}

// Reorder moves an element one step or to an extreme of the z-order.
// Moving past an end is a no-op.
func (s *Scene) Reorder(id string, dir Direction) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	last := len(s.elements) - 1
	switch dir {
	case Forward:
		if i < last {
			s.elements[i], s.elements[i+1] = s.elements[i+1], s.elements[i]
		}
	case Backward:
		if i > 0 {
			s.elements[i], s.elements[i-1] = s.elements[i-1], s.elements[i]
		}
	case Front:
		el := s.elements[i]
		copy(s.elements[i:], s.elements[i+1:])
		s.elements[last] = el
	case Back:
		el := s.elements[i]
		copy(s.elements[1:i+1], s.elements[:i])
		s.elements[0] = el
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidProperty, dir)
	}
	s.normalize()
	return nil
}

// Clone returns a deep copy of the scene. The copy shares nothing with s.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		CanvasWidth:  s.CanvasWidth,
		CanvasHeight: s.CanvasHeight,
		elements:     make([]Element, len(s.elements)),
		newID:        s.newID,
	}
	for i, el := range s.elements {
		c.elements[i] = el.Clone()
	}
	return c
}

// Replace swaps the contents of s for those of other, keeping s's identity.
func (s *Scene) Replace(other *Scene) {
	s.CanvasWidth = other.CanvasWidth
	s.CanvasHeight = other.CanvasHeight
	s.elements = other.Clone().elements
	s.normalize()
}

// IDs returns element ids in render order.
func (s *Scene) IDs() []string {
	ids := make([]string, len(s.elements))
	for i, el := range s.elements {
		ids[i] = el.Common().ID
	}
	return ids
}

func (s *Scene) index(id string) int {
	for i, el := range s.elements {
		if el.Common().ID == id {
			return i
		}
	}
	return -1
}

func (s *Scene) nextID() string {
	if s.newID == nil {
		return uuid.NewString()
	}
	return s.newID()
}

func kindOf(el Element) (Kind, bool) {
	switch el.(type) {
	case *Text:
		return KindText, true
	case *Shape:
		return KindShape, true
	case *Image:
		return KindImage, true
	}
	return "", false
}

func (s *Scene) normalize() {
	for i, el := range s.elements {
		el.Common().ZOrder = i
	}
}
