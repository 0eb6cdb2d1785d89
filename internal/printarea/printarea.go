// Package printarea maps products to their printable regions.
package printarea

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Fallback is the registry key used for products without their own areas.
const Fallback = "*"

var (
	ErrUnknownPrintArea = errors.New("unknown print area")
	ErrInvalidPrintArea = errors.New("invalid print area")
)

//go:embed defaults.yaml
var defaultsYAML []byte

// PrintArea is a named design region. Width, Height, Bleed and Safe are
// production pixels; display pixels = production pixels × DisplayScale.
type PrintArea struct {
	ID           string  `yaml:"id" json:"id"`
	Label        string  `yaml:"label" json:"label"`
	Width        int     `yaml:"width" json:"width"`
	Height       int     `yaml:"height" json:"height"`
	Bleed        int     `yaml:"bleed" json:"bleed"`
	Safe         int     `yaml:"safe" json:"safe"`
	DisplayScale float64 `yaml:"displayScale" json:"displayScale"`
}

// DisplayWidth is the on-screen canvas width in pixels.
func (a PrintArea) DisplayWidth() int {
	return int(math.Round(float64(a.Width) * a.DisplayScale))
}

// DisplayHeight is the on-screen canvas height in pixels.
func (a PrintArea) DisplayHeight() int {
	return int(math.Round(float64(a.Height) * a.DisplayScale))
}

// ProductionScale is the factor from display to production space.
func (a PrintArea) ProductionScale() float64 {
	return 1 / a.DisplayScale
}

func (a PrintArea) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPrintArea)
	}
	if a.Width <= 0 || a.Height <= 0 {
		return fmt.Errorf("%w: %s: dimensions must be positive", ErrInvalidPrintArea, a.ID)
	}
	if a.Bleed < 0 || a.Safe < 0 {
		return fmt.Errorf("%w: %s: margins must not be negative", ErrInvalidPrintArea, a.ID)
	}
	if !(a.DisplayScale > 0) || math.IsInf(a.DisplayScale, 0) {
		return fmt.Errorf("%w: %s: displayScale must be positive", ErrInvalidPrintArea, a.ID)
	}
	return nil
}

// Registry is immutable after construction.
type Registry struct {
	areas map[string][]PrintArea
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("printarea: bad embedded defaults: %v", err))
	}
	return r
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read print areas: %w", err)
	}
	return Parse(data)
}

// Parse decodes a product id → areas YAML mapping. A "*" entry is required.
func Parse(data []byte) (*Registry, error) {
	var areas map[string][]PrintArea
	if err := yaml.Unmarshal(data, &areas); err != nil {
		return nil, fmt.Errorf("failed to parse print areas: %w", err)
	}
	if len(areas[Fallback]) == 0 {
		return nil, fmt.Errorf("%w: no %q fallback entry", ErrInvalidPrintArea, Fallback)
	}
	for product, list := range areas {
		seen := map[string]bool{}
		for _, a := range list {
			if err := a.Validate(); err != nil {
				return nil, fmt.Errorf("product %s: %w", product, err)
			}
			if seen[a.ID] {
				return nil, fmt.Errorf("%w: product %s: duplicate area %s", ErrInvalidPrintArea, product, a.ID)
			}
			seen[a.ID] = true
		}
	}
	return &Registry{areas: areas}, nil
}

// ForProduct returns the areas for a product, falling back to the generic
// region. The returned slice is a copy.
func (r *Registry) ForProduct(productID string) []PrintArea {
	list, ok := r.areas[productID]
	if !ok || len(list) == 0 {
		list = r.areas[Fallback]
	}
	return append([]PrintArea(nil), list...)
}

// Lookup finds one area of a product. An empty areaID selects the first.
func (r *Registry) Lookup(productID, areaID string) (PrintArea, error) {
	list := r.ForProduct(productID)
	if areaID == "" {
		return list[0], nil
	}
	for _, a := range list {
		if a.ID == areaID {
			return a, nil
		}
	}
	return PrintArea{}, fmt.Errorf("%w: %s/%s", ErrUnknownPrintArea, productID, areaID)
}

// Products lists product ids with explicit entries, sorted.
func (r *Registry) Products() []string {
	ids := make([]string, 0, len(r.areas))
	for id := range r.areas {
		if id != Fallback {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
