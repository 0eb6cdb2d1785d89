// Package export re-renders a frozen scene at production resolution and
// encodes the preview and print files handed to the cart.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/render"
	"github.com/inkpress/storefront/internal/scene"
)

// DefaultPreviewQuality is the JPEG quality of cart previews.
const DefaultPreviewQuality = 70

// ErrExportAssetUnavailable is returned when an image element's asset is
// missing at export time. No output is produced.
var ErrExportAssetUnavailable = errors.New("export asset unavailable")

// Result is what a finished export hands to the cart.
type Result struct {
	Preview    []byte // JPEG of the on-screen surface
	Production []byte // PNG at print resolution
	Snapshot   []byte
	Width      int
	Height     int
}

type Pipeline struct {
	Renderer       *render.Renderer
	PreviewQuality int
	Logger         *slog.Logger
}

func NewPipeline(r *render.Renderer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Renderer: r, PreviewQuality: DefaultPreviewQuality, Logger: logger}
}

// Transform maps display space onto area's production pixels.
func Transform(area printarea.PrintArea) render.Transform {
	return render.Scale(area.ProductionScale())
}

// ProductionPosition converts a display-space point into production
// pixels for area.
func ProductionPosition(x, y float64, area printarea.PrintArea) (float64, float64) {
	return Transform(area).Apply(x, y)
}

// Render draws a frozen snapshot onto a transparent production-size
// surface. The context is checked between elements.
func (p *Pipeline) Render(ctx context.Context, snapshot []byte, area printarea.PrintArea) (*render.Surface, error) {
	s, err := scene.Deserialize(snapshot)
	if err != nil {
		return nil, err
	}
	if err := area.Validate(); err != nil {
		return nil, err
	}

	dst := render.NewSurface(area.Width, area.Height)
	xf := Transform(area)
	for _, el := range s.Elements() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export interrupted: %w", err)
		}
		if err := p.Renderer.Render(dst, el, xf); err != nil {
			if errors.Is(err, render.ErrAssetUnavailable) {
				return nil, fmt.Errorf("%w: %w", ErrExportAssetUnavailable, err)
			}
			return nil, err
		}
	}
	return dst, nil
}

// Export renders the production file from snapshot and encodes preview,
// the clean on-screen surface, as a reduced-quality JPEG on white.
func (p *Pipeline) Export(ctx context.Context, snapshot []byte, area printarea.PrintArea, preview image.Image) (*Result, error) {
	start := time.Now()
	dst, err := p.Render(ctx, snapshot, area)
	if err != nil {
		return nil, err
	}

	var prod bytes.Buffer
	if err := dst.EncodePNG(&prod); err != nil {
		return nil, fmt.Errorf("failed to encode production image: %w", err)
	}
	var prev bytes.Buffer
	if preview != nil {
		if err := render.EncodeJPEG(&prev, preview, p.quality(), color.White); err != nil {
			return nil, fmt.Errorf("failed to encode preview image: %w", err)
		}
	}

	p.Logger.Info("Export finished",
		"area", area.ID,
		"width", area.Width,
		"height", area.Height,
		"production_bytes", prod.Len(),
		"duration", time.Since(start),
	)
	return &Result{
		Preview:    prev.Bytes(),
		Production: prod.Bytes(),
		Snapshot:   bytes.Clone(snapshot),
		Width:      area.Width,
		Height:     area.Height,
	}, nil
}

func (p *Pipeline) quality() int {
	if p.PreviewQuality <= 0 || p.PreviewQuality > 100 {
		return DefaultPreviewQuality
	}
	return p.PreviewQuality
}

// Job is a single-shot export running in the background.
type Job struct {
	done   chan struct{}
	result *Result
	err    error
}

// Start runs Export on its own goroutine.
func (p *Pipeline) Start(ctx context.Context, snapshot []byte, area printarea.PrintArea, preview image.Image) *Job {
	snapshot = bytes.Clone(snapshot)
	return NewJob(func() (*Result, error) {
		return p.Export(ctx, snapshot, area, preview)
	})
}

// NewJob runs fn in the background and exposes its outcome as a Job.
func NewJob(fn func() (*Result, error)) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.result, j.err = fn()
	}()
	return j
}

// Done is closed when the export has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result blocks until the export finishes.
func (j *Job) Result() (*Result, error) {
	<-j.done
	return j.result, j.err
}

// Wait is Result bounded by ctx.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
