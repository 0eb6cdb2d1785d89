// Package pricing computes the surcharge added to a customized product.
package pricing

import (
	"fmt"
	"strings"
)

// Mode selects how the surcharge is computed.
type Mode string

const (
	// Flat charges Amount regardless of the design.
	Flat Mode = "flat"
	// PerLayer charges Amount per scene element, up to Cap.
	PerLayer Mode = "per_layer"
)

const (
	DefaultFlatCents     = 1200
	DefaultPerLayerCents = 200
	DefaultPerLayerCap   = 1000
)

// Policy is a surcharge rule. The zero value is a flat $12.
type Policy struct {
	Mode   Mode  `yaml:"mode" toml:"mode" json:"mode"`
	Amount int64 `yaml:"amount" toml:"amount" json:"amount"` // cents
	Cap    int64 `yaml:"cap" toml:"cap" json:"cap"`          // cents, per_layer only; 0 means no cap
}

// ParseMode accepts "flat" and "per_layer" (also "per-layer", any case).
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", string(Flat):
		return Flat, nil
	case string(PerLayer):
		return PerLayer, nil
	}
	return "", fmt.Errorf("unknown surcharge mode %q", s)
}

// Surcharge returns the extra cents for a design with the given number of
// elements.
func (p Policy) Surcharge(elements int) int64 {
	switch p.Mode {
	case PerLayer:
		amount := p.Amount
		if amount <= 0 {
			amount = DefaultPerLayerCents
		}
		s := amount * int64(max(elements, 0))
		if p.Cap > 0 && s > p.Cap {
			s = p.Cap
		}
		return s
	default:
		if p.Amount <= 0 {
			return DefaultFlatCents
		}
		return p.Amount
	}
}

// Price is base plus the surcharge.
func (p Policy) Price(baseCents int64, elements int) int64 {
	return baseCents + p.Surcharge(elements)
}
