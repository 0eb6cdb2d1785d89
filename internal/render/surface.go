package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
)

// Surface is a transparent RGBA drawing target.
type Surface struct {
	img *image.RGBA
}

func NewSurface(width, height int) *Surface {
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the backing image. It is live; callers that keep it across
// redraws should use Snapshot.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Snapshot returns a copy of the current pixels.
func (s *Surface) Snapshot() *image.RGBA {
	c := image.NewRGBA(s.img.Rect)
	copy(c.Pix, s.img.Pix)
	return c
}

// Clone returns an independent surface with the same pixels.
func (s *Surface) Clone() *Surface {
	return &Surface{img: s.Snapshot()}
}

func (s *Surface) Width() int  { return s.img.Rect.Dx() }
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}

// composite draws src over the surface with its top-left at at, scaled by
// a uniform opacity.
func (s *Surface) composite(src image.Image, at image.Point, opacity float64) {
	if opacity <= 0 {
		return
	}
	b := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	if opacity >= 1 {
		draw.Draw(s.img, r, src, b.Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha16{A: uint16(opacity * 0xffff)})
	draw.DrawMask(s.img, r, src, b.Min, mask, image.Point{}, draw.Over)
}

// EncodePNG writes a lossless encode with the alpha channel intact.
func (s *Surface) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// EncodeJPEG flattens the surface onto background and writes a JPEG.
func (s *Surface) EncodeJPEG(w io.Writer, quality int, background color.Color) error {
	return EncodeJPEG(w, s.img, quality, background)
}

// EncodeJPEG flattens img onto background and writes a JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality int, background color.Color) error {
	if background == nil {
		background = color.White
	}
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Rect, image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Rect, img, img.Bounds().Min, draw.Over)
	if err := jpeg.Encode(w, flat, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}
