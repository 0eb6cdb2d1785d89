package scene

import (
	"fmt"
	"math"
	"strconv"
)

// Property names accepted by SetProperty.
const (
	PropX           = "x"
	PropY           = "y"
	PropWidth       = "width"
	PropHeight      = "height"
	PropRadius      = "radius"
	PropCorner      = "cornerRadius"
	PropText        = "text"
	PropFontFamily  = "fontFamily"
	PropFontSize    = "fontSize"
	PropFill        = "fill"
	PropStroke      = "stroke"
	PropStrokeWidth = "strokeWidth"
	PropBold        = "bold"
	PropItalic      = "italic"
	PropAlign       = "align"
	PropOpacity     = "opacity"
	PropRotation    = "rotation"
	PropFilter      = "filter"
)

// SetProperty applies one property edit to el. Values arrive from JSON, so
// numbers may be float64, int or numeric strings.
func SetProperty(el Element, prop string, value any) error {
	b := el.Common()
	switch prop {
	case PropX:
		return setNumber(&b.X, prop, value)
	case PropY:
		return setNumber(&b.Y, prop, value)
	case PropOpacity:
		if err := setNumber(&b.Opacity, prop, value); err != nil {
			return err
		}
		b.Opacity = ClampOpacity(b.Opacity)
		return nil
	case PropRotation:
		return setNumber(&b.Rotation, prop, value)
	}

	switch e := el.(type) {
	case *Text:
		return setTextProperty(e, prop, value)
	case *Shape:
		return setShapeProperty(e, prop, value)
	case *Image:
		return setImageProperty(e, prop, value)
	}
	return unsupported(el, prop)
}

func setTextProperty(t *Text, prop string, value any) error {
	switch prop {
	case PropText:
		return setString(&t.Content, prop, value)
	case PropFontFamily:
		return setString(&t.FontFamily, prop, value)
	case PropFontSize:
		return setPositive(&t.FontSize, prop, value)
	case PropFill:
		return setString(&t.Fill, prop, value)
	case PropBold:
		return setBool(&t.Bold, prop, value)
	case PropItalic:
		return setBool(&t.Italic, prop, value)
	case PropAlign:
		var s string
		if err := setString(&s, prop, value); err != nil {
			return err
		}
		switch a := Align(s); a {
		case AlignLeft, AlignCenter, AlignRight:
			t.Align = a
			return nil
		}
		return fmt.Errorf("%w: align %q", ErrInvalidProperty, s)
	case PropStroke:
		if value == nil || value == "" {
			t.Stroke = nil
			return nil
		}
		if t.Stroke == nil {
			t.Stroke = &Stroke{Width: 2}
		}
		return setString(&t.Stroke.Color, prop, value)
	case PropStrokeWidth:
		var w float64
		if err := setNumber(&w, prop, value); err != nil {
			return err
		}
		if w <= 0 {
			t.Stroke = nil
			return nil
		}
		if t.Stroke == nil {
			t.Stroke = &Stroke{Color: "#ffffff"}
		}
		t.Stroke.Width = w
		return nil
	}
	return unsupported(t, prop)
}

func setShapeProperty(s *Shape, prop string, value any) error {
	switch prop {
	case PropWidth:
		return setNumber(&s.Width, prop, value)
	case PropHeight:
		return setNumber(&s.Height, prop, value)
	case PropRadius:
		return setPositive(&s.Radius, prop, value)
	case PropCorner:
		if err := setNumber(&s.Corner, prop, value); err != nil {
			return err
		}
		s.Corner = max(s.Corner, 0)
		return nil
	case PropFill:
		return setString(&s.Fill, prop, value)
	case PropStroke:
		return setString(&s.StrokeColor, prop, value)
	case PropStrokeWidth:
		if err := setNumber(&s.StrokeWidth, prop, value); err != nil {
			return err
		}
		if s.StrokeWidth < 0 {
			s.StrokeWidth = 0
		}
		return nil
	}
	return unsupported(s, prop)
}

func setImageProperty(i *Image, prop string, value any) error {
	switch prop {
	case PropWidth:
		return setPositive(&i.Width, prop, value)
	case PropHeight:
		return setPositive(&i.Height, prop, value)
	case PropFilter:
		var name string
		if value != nil {
			if err := setString(&name, prop, value); err != nil {
				return err
			}
		}
		f, ok := ParseFilter(name)
		if !ok {
			return fmt.Errorf("%w: filter %q", ErrInvalidProperty, name)
		}
		i.Filter = f
		return nil
	}
	return unsupported(i, prop)
}

func unsupported(el Element, prop string) error {
	return fmt.Errorf("%w: %q is not a %s property", ErrInvalidProperty, prop, el.Common().Kind)
}

func setNumber(dst *float64, prop string, value any) error {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", ErrInvalidProperty, prop)
		}
		n = f
	default:
		return fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidProperty, prop, value)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidProperty, prop)
	}
	*dst = n
	return nil
}

func setPositive(dst *float64, prop string, value any) error {
	var v float64
	if err := setNumber(&v, prop, value); err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidProperty, prop)
	}
	*dst = v
	return nil
}

func setString(dst *string, prop string, value any) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidProperty, prop, value)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, prop string, value any) error {
	switch v := value.(type) {
	case bool:
		*dst = v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidProperty, prop)
		}
		*dst = b
	default:
		return fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidProperty, prop, value)
	}
	return nil
}
