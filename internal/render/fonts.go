package render

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// DefaultFamily is used for unknown font families.
const DefaultFamily = "Go"

type family struct {
	regular, bold, italic, boldItalic *text.FontSource
}

func (f *family) pick(bold, italic bool) *text.FontSource {
	switch {
	case bold && italic:
		return f.boldItalic
	case bold:
		return f.bold
	case italic:
		return f.italic
	}
	return f.regular
}

// FontRegistry resolves family names to font faces.
type FontRegistry struct {
	mu       sync.RWMutex
	families map[string]*family
	aliases  map[string]string
	missing  map[string]bool
	logger   *slog.Logger
}

// NewFontRegistry loads the bundled Go font families.
func NewFontRegistry(logger *slog.Logger) (*FontRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &FontRegistry{
		families: make(map[string]*family),
		aliases: map[string]string{
			"sans-serif":  "go",
			"monospace":   "go mono",
			"courier":     "go mono",
			"courier new": "go mono",
			"small-caps":  "go smallcaps",
		},
		missing: make(map[string]bool),
		logger:  logger,
	}
	sets := []struct {
		name                              string
		regular, bold, italic, boldItalic []byte
	}{
		{"Go", goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
		{"Go Mono", gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
		// Smallcaps ships without bold cuts.
		{"Go Smallcaps", gosmallcaps.TTF, gosmallcaps.TTF, gosmallcapsitalic.TTF, gosmallcapsitalic.TTF},
	}
	for _, s := range sets {
		if err := r.Register(s.name, s.regular, s.bold, s.italic, s.boldItalic); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a family from TrueType data. Missing cuts reuse regular.
func (r *FontRegistry) Register(name string, regular, bold, italic, boldItalic []byte) error {
	load := func(data []byte, fallback *text.FontSource) (*text.FontSource, error) {
		if data == nil {
			return fallback, nil
		}
		src, err := text.NewFontSource(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load font %s: %w", name, err)
		}
		return src, nil
	}
	reg, err := load(regular, nil)
	if err != nil {
		return err
	}
	if reg == nil {
		return fmt.Errorf("failed to load font %s: no regular cut", name)
	}
	f := &family{regular: reg}
	if f.bold, err = load(bold, reg); err != nil {
		return err
	}
	if f.italic, err = load(italic, reg); err != nil {
		return err
	}
	if f.boldItalic, err = load(boldItalic, f.bold); err != nil {
		return err
	}

	r.mu.Lock()
	r.families[strings.ToLower(name)] = f
	r.mu.Unlock()
	return nil
}

// Face returns a face for the family at the given pixel size.
func (r *FontRegistry) Face(name string, bold, italic bool, size float64) text.Face {
	return r.lookup(name).pick(bold, italic).Face(size)
}

// Has reports whether name resolves without falling back.
func (r *FontRegistry) Has(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.aliases[key]; ok {
		key = a
	}
	_, ok := r.families[key]
	return ok
}

func (r *FontRegistry) lookup(name string) *family {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	if a, ok := r.aliases[key]; ok {
		key = a
	}
	f, ok := r.families[key]
	fallback := r.families[strings.ToLower(DefaultFamily)]
	r.mu.RUnlock()
	if ok {
		return f
	}

	if name != "" {
		r.mu.Lock()
		if !r.missing[key] {
			r.missing[key] = true
			r.logger.Info("Font family not available, using fallback", "family", name, "fallback", DefaultFamily)
		}
		r.mu.Unlock()
	}
	return fallback
}
