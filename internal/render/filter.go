package render

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/inkpress/storefront/internal/scene"
)

// BlurRadius is the display-space radius of the blur filter.
const BlurRadius = 4.0

// BrightnessChange is the relative change of the brightness filter.
const BrightnessChange = 0.2

// ApplyFilter returns img post-processed by f. scale is the transform's
// length factor so size-dependent filters look the same at any resolution.
// The result is premultiplied RGBA like the input.
func ApplyFilter(img *image.RGBA, f scene.Filter, scale float64) *image.RGBA {
	switch f {
	case scene.FilterGrayscale:
		return adjust.Apply(img, func(c color.RGBA) color.RGBA {
			y := uint8(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B) + 0.5)
			return color.RGBA{R: y, G: y, B: y, A: c.A}
		})
	case scene.FilterSepia:
		return premultiplied(effect.Sepia(img))
	case scene.FilterInvert:
		return adjust.Apply(img, func(c color.RGBA) color.RGBA {
			return color.RGBA{R: c.A - c.R, G: c.A - c.G, B: c.A - c.B, A: c.A}
		})
	case scene.FilterBlur:
		r := BlurRadius * scale
		if r < 0.5 {
			return img
		}
		return blur.Gaussian(img, r)
	case scene.FilterBrightness:
		return premultiplied(adjust.Brightness(img, BrightnessChange))
	case scene.FilterSharpen:
		return premultiplied(effect.Sharpen(img))
	}
	return img
}

// premultiplied clamps color channels to alpha after filters that can push
// them past it.
func premultiplied(img *image.RGBA) *image.RGBA {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		img.Pix[i] = min(img.Pix[i], a)
		img.Pix[i+1] = min(img.Pix[i+1], a)
		img.Pix[i+2] = min(img.Pix[i+2], a)
	}
	return img
}
