// Package catalog holds the products offered by the storefront.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"github.com/inkpress/storefront/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

//go:embed products.yaml
var defaultProducts []byte

type document struct {
	Products []models.Product `yaml:"products" json:"products"`
}

// Catalog is read-only after construction. Every accessor returns copies,
// so callers may modify what they get back.
type Catalog struct {
	products []models.Product
	index    map[string]int
}

// New builds a catalog, rejecting products without an id, name or with a
// negative price, and duplicate ids.
func New(products []models.Product) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q has no id", p.Name)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("product %s has no name", p.ID)
		}
		if p.PriceCents < 0 {
			return nil, fmt.Errorf("product %s has a negative price", p.ID)
		}
		if _, dup := c.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %s", p.ID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, clone(p))
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	var doc document
	if err := yaml.Unmarshal(defaultProducts, &doc); err != nil {
		panic(fmt.Sprintf("catalog: bad embedded products: %v", err))
	}
	c, err := New(doc.Products)
	if err != nil {
		panic(fmt.Sprintf("catalog: bad embedded products: %v", err))
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// Get returns the product with the given id.
func (c *Catalog) Get(id string) (models.Product, error) {
	i, ok := c.index[id]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return clone(c.products[i]), nil
}

// List returns every product in catalog order.
func (c *Catalog) List() []models.Product {
	out := make([]models.Product, len(c.products))
	for i, p := range c.products {
		out[i] = clone(p)
	}
	return out
}

// ByCategory returns the products whose category matches name, ignoring
// case.
func (c *Catalog) ByCategory(name string) []models.Product {
	var out []models.Product
	for _, p := range c.products {
		if strings.EqualFold(p.Category, name) {
			out = append(out, clone(p))
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

func clone(p models.Product) models.Product {
	var out models.Product
	if err := copier.CopyWithOption(&out, &p, copier.Option{DeepCopy: true}); err != nil {
		panic(fmt.Sprintf("catalog: failed to copy product %s: %v", p.ID, err))
	}
	return out
}
