// Package templates provides the built-in starting designs.
package templates

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inkpress/storefront/internal/scene"
)

var ErrTemplateNotFound = errors.New("template not found")

//go:embed templates.yaml
var defaultTemplates []byte

// Template is a named set of elements applied to an empty canvas.
type Template struct {
	ID          string           `yaml:"id" json:"id"`
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description"`
	Category    string           `yaml:"category" json:"category"`
	Thumbnail   string           `yaml:"thumbnail" json:"thumbnail"`
	Raw         []map[string]any `yaml:"elements" json:"-"`

	elements []scene.Element
}

// Elements returns fresh copies of the template's elements in z-order.
func (t *Template) Elements() []scene.Element {
	out := make([]scene.Element, len(t.elements))
	for i, el := range t.elements {
		out[i] = el.Clone()
	}
	return out
}

// compile decodes the raw element maps through the scene snapshot codec,
// filling the identity fields templates leave out.
func (t *Template) compile() error {
	els := make([]map[string]any, len(t.Raw))
	for i, raw := range t.Raw {
		el := make(map[string]any, len(raw)+3)
		for k, v := range raw {
			el[k] = v
		}
		el["id"] = fmt.Sprintf("%s-%d", t.ID, i)
		el["zOrder"] = i
		if _, ok := el["opacity"]; !ok {
			el["opacity"] = 1
		}
		els[i] = el
	}
	data, err := json.Marshal(map[string]any{
		"version":      scene.SnapshotVersion,
		"canvasWidth":  1,
		"canvasHeight": 1,
		"elements":     els,
	})
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", t.ID, err)
	}
	s, err := scene.Deserialize(data)
	if err != nil {
		return fmt.Errorf("invalid template %s: %w", t.ID, err)
	}
	t.elements = s.Elements()
	return nil
}

// Library is read-only after construction.
type Library struct {
	templates []*Template
	index     map[string]*Template
}

type document struct {
	Templates []*Template `yaml:"templates"`
}

// Parse reads a templates YAML document.
func Parse(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	lib := &Library{index: make(map[string]*Template, len(doc.Templates))}
	for _, t := range doc.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %q has no id", t.Name)
		}
		if _, dup := lib.index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %s", t.ID)
		}
		if err := t.compile(); err != nil {
			return nil, err
		}
		lib.templates = append(lib.templates, t)
		lib.index[t.ID] = t
	}
	return lib, nil
}

// Load reads a templates file from disk.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in templates.
func Default() *Library {
	lib, err := Parse(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("templates: bad embedded templates: %v", err))
	}
	return lib
}

// List returns the templates in file order.
func (l *Library) List() []*Template {
	out := make([]*Template, len(l.templates))
	copy(out, l.templates)
	return out
}

func (l *Library) Get(id string) (*Template, error) {
	t, ok := l.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// ByCategory groups templates by category, keeping file order inside each
// group.
func (l *Library) ByCategory() map[string][]*Template {
	out := make(map[string][]*Template)
	for _, t := range l.templates {
		out[t.Category] = append(out[t.Category], t)
	}
	return out
}
