package render

import (
	"fmt"
	"strings"

	"github.com/gogpu/gg"
)

var namedColors = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"gray":   "#808080",
	"grey":   "#808080",
	"pink":   "#ffc0cb",
	"brown":  "#a52a2a",
	"navy":   "#000080",
}

// ParseColor reads a CSS-style color: #rgb, #rgba, #rrggbb, #rrggbbaa,
// rgb()/rgba() or a basic color name. It reports false for "",
// "transparent" and "none", meaning "do not paint".
func ParseColor(s string) (gg.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "transparent", "none":
		return gg.RGBA{}, false
	}
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		switch len(s) {
		case 4, 5, 7, 9:
			c := gg.Hex(s)
			return c, c.A > 0
		}
		return gg.RGBA{}, false
	}

	var r, g, b int
	a := 1.0
	var n int
	var err error
	switch {
	case strings.HasPrefix(s, "rgba("):
		n, err = fmt.Sscanf(s, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a)
		if err != nil || n != 4 {
			n, err = fmt.Sscanf(s, "rgba(%d, %d, %d, %g)", &r, &g, &b, &a)
		}
	case strings.HasPrefix(s, "rgb("):
		n, err = fmt.Sscanf(s, "rgb(%d,%d,%d)", &r, &g, &b)
		if err != nil || n != 3 {
			n, err = fmt.Sscanf(s, "rgb(%d, %d, %d)", &r, &g, &b)
		}
	default:
		return gg.RGBA{}, false
	}
	if err != nil {
		return gg.RGBA{}, false
	}
	c := gg.RGBA{R: unit(float64(r) / 255), G: unit(float64(g) / 255), B: unit(float64(b) / 255), A: unit(a)}
	return c, c.A > 0
}

func unit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
