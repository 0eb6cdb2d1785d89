package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/inkpress/storefront/internal/models"
)

// Loader reads product files
type Loader struct {
	path string
}

// NewLoader creates a loader for a catalog file
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads products from the file. The format follows the extension:
// .yaml/.yml, .json (a {"products": [...]} document or a bare array),
// .jsonl or .parquet.
func (l *Loader) Load() ([]models.Product, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".yaml", ".yml":
		return l.loadYAML()
	case ".json":
		return l.loadJSON()
	case ".jsonl":
		return l.loadJSONL()
	case ".parquet":
		return l.loadParquet()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .yaml, .json, .jsonl, .parquet)", ext)
	}
}

// LoadCatalog reads a file and builds a catalog from it
func LoadCatalog(path string) (*Catalog, error) {
	products, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	return New(products)
}

func (l *Loader) loadYAML() ([]models.Product, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
	}
	slog.Debug("Loaded YAML catalog", "path", l.path, "products", len(doc.Products))
	return doc.Products, nil
}

func (l *Loader) loadJSON() ([]models.Product, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	data = bytes.TrimSpace(data)

	var products []models.Product
	if bytes.HasPrefix(data, []byte("[")) {
		err = json.Unmarshal(data, &products)
	} else {
		var doc document
		err = json.Unmarshal(data, &doc)
		products = doc.Products
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
	}
	slog.Debug("Loaded JSON catalog", "path", l.path, "products", len(products))
	return products, nil
}

func (l *Loader) loadJSONL() ([]models.Product, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	var products []models.Product
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024 // 1MB per line
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var p models.Product
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		products = append(products, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}

	slog.Debug("Finished reading JSONL catalog", "products", len(products), "lines", lineNum)
	return products, nil
}

func (l *Loader) loadParquet() ([]models.Product, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[models.Product](pf)
	defer reader.Close()

	var products []models.Product
	rows := make([]models.Product, 128)
	for {
		n, err := reader.Read(rows)
		products = append(products, rows[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet catalog", "products", len(products))
	return products, nil
}

// WriteYAML writes products as a catalog YAML document.
func WriteYAML(w io.Writer, products []models.Product) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Products: products}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

// WriteParquet writes products as a Parquet file.
func WriteParquet(w io.Writer, products []models.Product) error {
	pw := parquet.NewGenericWriter[models.Product](w)
	if _, err := pw.Write(products); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
