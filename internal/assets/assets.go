// Package assets decodes uploaded rasters and keeps them addressable by a
// content hash so scene snapshots can reference them.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/inkpress/storefront/internal/utils"
)

// ErrDecodeFailure is returned when uploaded bytes are not a decodable image.
var ErrDecodeFailure = errors.New("asset decode failure")

// DefaultMaxPixels caps width*height of a decoded upload.
const DefaultMaxPixels = 40_000_000

var supported = map[string]bool{
	"png":  true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
}

// Asset is a decoded raster.
type Asset struct {
	ID     string      `json:"id"`
	MIME   string      `json:"mime"`
	Ext    string      `json:"ext"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Size   int         `json:"size"`
	Image  image.Image `json:"-"`
}

// Filename is the on-disk name of the original upload.
func (a *Asset) Filename() string {
	return a.ID + "." + a.Ext
}

// Decode sniffs and decodes data with the default pixel cap.
func Decode(data []byte) (*Asset, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit sniffs and decodes data. Anything that is not a supported
// image format, or whose header declares more than maxPixels pixels, fails
// with ErrDecodeFailure before the raster is allocated.
func DecodeLimit(data []byte, maxPixels int) (*Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrDecodeFailure)
	}
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: not an image", ErrDecodeFailure)
	}
	if !supported[kind.Extension] {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrDecodeFailure, kind.MIME.Value)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailure)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecodeFailure, cfg.Width, cfg.Height, maxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailure)
	}
	return &Asset{
		ID:     utils.CalculateDataMD5(data),
		MIME:   kind.MIME.Value,
		Ext:    kind.Extension,
		Width:  b.Dx(),
		Height: b.Dy(),
		Size:   len(data),
		Image:  img,
	}, nil
}

// Pending is a single-shot decode that completes in the background.
type Pending struct {
	done  chan struct{}
	asset *Asset
	err   error
}

// DecodeAsync starts decoding data and returns immediately.
func DecodeAsync(data []byte) *Pending {
	return decodeAsync(data, DefaultMaxPixels)
}

func decodeAsync(data []byte, maxPixels int) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.asset, p.err = DecodeLimit(data, maxPixels)
	}()
	return p
}

// Done is closed once the decode has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the decode finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) (*Asset, error) {
	select {
	case <-p.done:
		return p.asset, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Store holds decoded assets in memory and, when dir is set, keeps the
// original bytes on disk so assets survive a restart.
type Store struct {
	// MaxPixels caps uploads; zero means DefaultMaxPixels.
	MaxPixels int

	mu     sync.RWMutex
	assets map[string]*Asset
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create asset dir: %w", err)
		}
	}
	return &Store{
		assets: make(map[string]*Asset),
		dir:    dir,
		logger: logger,
	}, nil
}

func (s *Store) maxPixels() int {
	if s.MaxPixels > 0 {
		return s.MaxPixels
	}
	return DefaultMaxPixels
}

// Dir is the upload directory, empty for a memory-only store.
func (s *Store) Dir() string {
	return s.dir
}

// Put decodes data, persists it and makes it available by id.
func (s *Store) Put(ctx context.Context, data []byte) (*Asset, error) {
	a, err := decodeAsync(data, s.maxPixels()).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Add(a, data); err != nil {
		return nil, err
	}
	return a, nil
}

// Add stores an already decoded asset. raw may be nil to skip persistence.
func (s *Store) Add(a *Asset, raw []byte) error {
	if s.dir != "" && raw != nil {
		path := filepath.Join(s.dir, a.Filename())
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("failed to save asset: %w", err)
		}
		s.logger.Info("Asset saved", "id", a.ID, "mime", a.MIME, "width", a.Width, "height", a.Height)
	}
	s.mu.Lock()
	s.assets[a.ID] = a
	s.mu.Unlock()
	return nil
}

// Get returns an asset, loading it from disk if it is not in memory.
func (s *Store) Get(id string) (*Asset, bool) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	if ok {
		return a, true
	}
	a, err := s.load(id)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	s.assets[id] = a
	s.mu.Unlock()
	return a, true
}

// Image satisfies the renderer's asset source.
func (s *Store) Image(id string) (image.Image, bool) {
	a, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return a.Image, true
}

// Forget drops an asset from memory. Files on disk are kept.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	delete(s.assets, id)
	s.mu.Unlock()
}

func (s *Store) load(id string) (*Asset, error) {
	if s.dir == "" || id == "" || filepath.Base(id) != id {
		return nil, os.ErrNotExist
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil || len(matches) == 0 {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	a, err := DecodeLimit(data, s.maxPixels())
	if err != nil {
		s.logger.Warn("Stored asset no longer decodes", "id", id, "error", err)
		return nil, err
	}
	return a, nil
}
