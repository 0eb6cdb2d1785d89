package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/inkpress/storefront/internal/models"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() != 8 {
		t.Fatalf("Expected 8 products, got %d", c.Len())
	}

	p, err := c.Get("2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Name != "Minimalist Graphic T-Shirt" || p.PriceCents != 2999 {
		t.Errorf("Unexpected product: %+v", p)
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Default().Get("404")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestReturnsCopies(t *testing.T) {
	c := Default()
	p, _ := c.Get("1")
	p.Colors[0] = "#123456"
	p.Name = "changed"

	again, _ := c.Get("1")
	if again.Colors[0] != "#FFFFFF" || again.Name == "changed" {
		t.Errorf("Catalog was modified through a returned product: %+v", again)
	}
}

func TestByCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		expected []string
	}{
		{name: "exact", category: "Apparel", expected: []string{"2"}},
		{name: "case insensitive", category: "wall art", expected: []string{"5"}},
		{name: "unknown", category: "Shoes", expected: nil},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, p := range c.ByCategory(tt.category) {
				ids = append(ids, p.ID)
			}
			if !reflect.DeepEqual(ids, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, ids)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	cats := Default().Categories()
	if len(cats) != 8 || cats[0] != "Accessories" {
		t.Errorf("Unexpected categories: %v", cats)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]models.Product{{ID: "1", Name: "a"}, {ID: "1", Name: "b"}})
	if err == nil {
		t.Error("Expected duplicate id error")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json array",
			file:    "products.json",
			content: `[{"id":"a","name":"Mug","category":"Mugs","priceCents":100}]`,
		},
		{
			name:    "json document",
			file:    "products.json",
			content: `{"products":[{"id":"a","name":"Mug","category":"Mugs","priceCents":100}]}`,
		},
		{
			name:    "jsonl",
			file:    "products.jsonl",
			content: "{\"id\":\"a\",\"name\":\"Mug\",\"category\":\"Mugs\",\"priceCents\":100}\n\n",
		},
		{
			name:    "yaml",
			file:    "products.yml",
			content: "products:\n  - id: a\n    name: Mug\n    category: Mugs\n    priceCents: 100\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := NewLoader(writeFile(t, tt.file, tt.content)).Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			want := []models.Product{{ID: "a", Name: "Mug", Category: "Mugs", PriceCents: 100}}
			if !reflect.DeepEqual(products, want) {
				t.Errorf("Expected %+v, got %+v", want, products)
			}
		})
	}
}

func TestLoaderUnsupported(t *testing.T) {
	if _, err := NewLoader("products.csv").Load(); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default().List()
	if err := WriteParquet(f, want); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}
	f.Close()

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if c.Len() != len(want) {
		t.Fatalf("Expected %d products, got %d", len(want), c.Len())
	}
	got, _ := c.Get("7")
	if got.Name != "Patterned Throw Pillow" || len(got.Colors) != 3 || got.ReviewsCount != 70 {
		t.Errorf("Unexpected product after round trip: %+v", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteYAML(f, Default().List()); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	f.Close()

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if !reflect.DeepEqual(c.List(), Default().List()) {
		t.Error("YAML round trip changed the catalog")
	}
}
