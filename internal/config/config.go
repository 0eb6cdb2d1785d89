// Package config resolves storefront settings from defaults, an optional
// YAML or TOML file and STOREFRONT_* environment variables. Command-line
// flags are applied on top by the cmd package.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/inkpress/storefront/internal/pricing"
)

const EnvPrefix = "STOREFRONT_"

type Config struct {
	Port            string
	DataDir         string
	CartDB          string
	CatalogFile     string
	PrintAreasFile  string
	TemplatesFile   string
	HistoryCapacity int
	CommitDelay     time.Duration
	DragThreshold   float64
	PreviewQuality  int
	Surcharge       pricing.Policy
	SessionTTL      time.Duration
	MaxUploadBytes  int64
	MaxUploadPixels int
	LogLevel        string
	LogFormat       string
}

// file mirrors Config with durations as strings so YAML and TOML decode
// them the same way.
type file struct {
	Port            string         `yaml:"port" toml:"port"`
	DataDir         string         `yaml:"dataDir" toml:"dataDir"`
	CartDB          string         `yaml:"cartDb" toml:"cartDb"`
	CatalogFile     string         `yaml:"catalogFile" toml:"catalogFile"`
	PrintAreasFile  string         `yaml:"printAreasFile" toml:"printAreasFile"`
	TemplatesFile   string         `yaml:"templatesFile" toml:"templatesFile"`
	HistoryCapacity int            `yaml:"historyCapacity" toml:"historyCapacity"`
	CommitDelay     string         `yaml:"commitDelay" toml:"commitDelay"`
	DragThreshold   float64        `yaml:"dragThreshold" toml:"dragThreshold"`
	PreviewQuality  int            `yaml:"previewQuality" toml:"previewQuality"`
	Surcharge       pricing.Policy `yaml:"surcharge" toml:"surcharge"`
	SessionTTL      string         `yaml:"sessionTtl" toml:"sessionTtl"`
	MaxUploadBytes  int64          `yaml:"maxUploadBytes" toml:"maxUploadBytes"`
	MaxUploadPixels int            `yaml:"maxUploadPixels" toml:"maxUploadPixels"`
	LogLevel        string         `yaml:"logLevel" toml:"logLevel"`
	LogFormat       string         `yaml:"logFormat" toml:"logFormat"`
}

func Default() Config {
	return Config{
		Port:            "8888",
		DataDir:         "data",
		HistoryCapacity: 20,
		CommitDelay:     300 * time.Millisecond,
		DragThreshold:   4,
		PreviewQuality:  70,
		Surcharge:       pricing.Policy{Mode: pricing.Flat, Amount: pricing.DefaultFlatCents},
		SessionTTL:      2 * time.Hour,
		MaxUploadBytes:  10 << 20,
		MaxUploadPixels: 40_000_000,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load returns the defaults overlaid with the file at path (if any) and
// then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return fmt.Errorf("unsupported config format: %s (supported: .yaml, .yml, .toml)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return c.merge(f)
}

func (c *Config) merge(f file) error {
	setString(&c.Port, f.Port)
	setString(&c.DataDir, f.DataDir)
	setString(&c.CartDB, f.CartDB)
	setString(&c.CatalogFile, f.CatalogFile)
	setString(&c.PrintAreasFile, f.PrintAreasFile)
	setString(&c.TemplatesFile, f.TemplatesFile)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogFormat, f.LogFormat)
	if f.HistoryCapacity != 0 {
		c.HistoryCapacity = f.HistoryCapacity
	}
	if f.DragThreshold != 0 {
		c.DragThreshold = f.DragThreshold
	}
	if f.PreviewQuality != 0 {
		c.PreviewQuality = f.PreviewQuality
	}
	if f.MaxUploadBytes != 0 {
		c.MaxUploadBytes = f.MaxUploadBytes
	}
	if f.MaxUploadPixels != 0 {
		c.MaxUploadPixels = f.MaxUploadPixels
	}
	if f.Surcharge.Mode != "" {
		mode, err := pricing.ParseMode(string(f.Surcharge.Mode))
		if err != nil {
			return err
		}
		c.Surcharge = pricing.Policy{Mode: mode, Amount: f.Surcharge.Amount, Cap: f.Surcharge.Cap}
	}
	if err := setDuration(&c.CommitDelay, "commitDelay", f.CommitDelay); err != nil {
		return err
	}
	return setDuration(&c.SessionTTL, "sessionTtl", f.SessionTTL)
}

// ApplyEnv overlays STOREFRONT_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := func(key string) string {
		v, _ := lookup(EnvPrefix + key)
		return strings.TrimSpace(v)
	}

	setString(&c.Port, env("PORT"))
	setString(&c.DataDir, env("DATA_DIR"))
	setString(&c.CartDB, env("CART_DB"))
	setString(&c.CatalogFile, env("CATALOG_FILE"))
	setString(&c.PrintAreasFile, env("PRINT_AREAS_FILE"))
	setString(&c.TemplatesFile, env("TEMPLATES_FILE"))
	setString(&c.LogLevel, env("LOG_LEVEL"))
	setString(&c.LogFormat, env("LOG_FORMAT"))

	if v := env("HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sHISTORY_CAPACITY: %w", EnvPrefix, err)
		}
		c.HistoryCapacity = n
	}
	if v := env("DRAG_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sDRAG_THRESHOLD: %w", EnvPrefix, err)
		}
		c.DragThreshold = f
	}
	if v := env("PREVIEW_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPREVIEW_QUALITY: %w", EnvPrefix, err)
		}
		c.PreviewQuality = n
	}
	if v := env("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES: %w", EnvPrefix, err)
		}
		c.MaxUploadBytes = n
	}
	if v := env("MAX_UPLOAD_PIXELS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_UPLOAD_PIXELS: %w", EnvPrefix, err)
		}
		c.MaxUploadPixels = n
	}
	if v := env("SURCHARGE_MODE"); v != "" {
		mode, err := pricing.ParseMode(v)
		if err != nil {
			return err
		}
		c.Surcharge.Mode = mode
	}
	if v := env("SURCHARGE_AMOUNT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSURCHARGE_AMOUNT: %w", EnvPrefix, err)
		}
		c.Surcharge.Amount = n
	}
	if v := env("SURCHARGE_CAP"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSURCHARGE_CAP: %w", EnvPrefix, err)
		}
		c.Surcharge.Cap = n
	}
	if err := setDuration(&c.CommitDelay, EnvPrefix+"COMMIT_DELAY", env("COMMIT_DELAY")); err != nil {
		return err
	}
	return setDuration(&c.SessionTTL, EnvPrefix+"SESSION_TTL", env("SESSION_TTL"))
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("history capacity must be at least 1, got %d", c.HistoryCapacity)
	}
	if c.CommitDelay < 0 {
		return fmt.Errorf("commit delay must not be negative")
	}
	if c.DragThreshold < 0 {
		return fmt.Errorf("drag threshold must not be negative")
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		return fmt.Errorf("preview quality must be between 1 and 100, got %d", c.PreviewQuality)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.MaxUploadPixels <= 0 {
		return fmt.Errorf("max upload pixels must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// UploadDir holds uploaded asset originals.
func (c Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// ExportDir holds production PNGs referenced by cart items.
func (c Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// CartPath is the SQLite cart database, inside DataDir unless set.
func (c Config) CartPath() string {
	if c.CartDB != "" {
		return c.CartDB
	}
	return filepath.Join(c.DataDir, "cart.db")
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return l, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}
