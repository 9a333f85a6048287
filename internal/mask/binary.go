package mask

import (
	"image"
	"image/color"

	"product-studio/pkg/colorutil"
	"product-studio/pkg/geometry"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"
)

// ExtractBinary converts a painted overlay into an opaque mask of the same
// size: white (255,255,255,255) wherever the overlay has any alpha, black
// (0,0,0,255) everywhere else. The overlay's colour is irrelevant.
func ExtractBinary(overlay image.Image) *image.RGBA {
	b := overlay.Bounds()
	w, h := b.Dx(), b.Dy()

	clip := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if _, _, _, a := overlay.At(b.Min.X+x, b.Min.Y+y).RGBA(); a > 0 {
				clip.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}

	dc := gg.NewContextForRGBA(image.NewRGBA(image.Rect(0, 0, w, h)))
	dc.SetColor(colorutil.MaskKeep)
	dc.Clear()
	if err := dc.SetMask(clip); err != nil {
		// Sizes always match; keep an all-black mask if they somehow don't.
		return dc.Image().(*image.RGBA)
	}
	dc.SetColor(colorutil.MaskEdit)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()
	return dc.Image().(*image.RGBA)
}

func isMarker(c color.Color) bool {
	return colorutil.Equal(c, colorutil.MaskEdit)
}

// IsEmpty reports whether no pixel of m carries the edit marker.
func IsEmpty(m image.Image) bool {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isMarker(m.At(x, y)) {
				return false
			}
		}
	}
	return true
}

// Region returns the bounding box of the marked pixels.
func Region(m image.Image) (geometry.Rect, bool) {
	b := m.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isMarker(m.At(x, y)) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < minX {
		return geometry.Rect{}, false
	}
	return geometry.NewRect(float64(minX), float64(minY),
		float64(maxX-minX+1), float64(maxY-minY+1)), true
}

// Coverage returns the fraction of marked pixels.
func Coverage(m image.Image) float64 {
	b := m.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	marked := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if isMarker(m.At(x, y)) {
				marked++
			}
		}
	}
	return float64(marked) / float64(total)
}

// FromImage resamples any mask-like image to w x h with nearest-neighbour
// and re-binarises it: bright opaque pixels become the edit marker.
func FromImage(img image.Image, w, h int) *image.RGBA {
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	out := image.NewRGBA(scaled.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := scaled.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000
			if a >= 0x8000 && lum >= 0x8000 {
				out.Set(x, y, colorutil.MaskEdit)
			} else {
				out.Set(x, y, colorutil.MaskKeep)
			}
		}
	}
	return out
}
