// Package refine post-processes edit masks with OpenCV before they are sent
// to the AI service.
package refine

import (
	"errors"
	"fmt"
	"image"

	"product-studio/pkg/colorutil"

	"gocv.io/x/gocv"
)

// ErrEmptyInput is returned for a nil or zero-size mask.
var ErrEmptyInput = errors.New("mask is empty")

// Grow dilates the white region of a binary mask by px pixels using an
// elliptical kernel and re-binarises the result. px <= 0 returns a copy.
func Grow(m *image.RGBA, px int) (*image.RGBA, error) {
	if m == nil || m.Bounds().Empty() {
		return nil, ErrEmptyInput
	}
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	gray := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.RGBAAt(b.Min.X+x, b.Min.Y+y) == colorutil.MaskEdit {
				gray[y*w+x] = 255
			}
		}
	}
	if px <= 0 {
		return fromGray(gray, w, h), nil
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, gray)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer src.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(2*px+1, 2*px+1))
	defer kernel.Close()

	grown := gocv.NewMat()
	defer grown.Close()
	gocv.Dilate(src, &grown, kernel)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(grown, &binary, 127, 255, gocv.ThresholdBinary)

	return fromGray(binary.ToBytes(), w, h), nil
}

func fromGray(gray []byte, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, v := range gray {
		c := colorutil.MaskKeep
		if v > 127 {
			c = colorutil.MaskEdit
		}
		out.SetRGBA(i%w, i/w, c)
	}
	return out
}

// Grower is an edit.Refiner that grows masks by a fixed margin so edits
// blend past the painted edge.
type Grower struct {
	Px int
}

// Refine implements edit.Refiner.
func (g Grower) Refine(m *image.RGBA) (*image.RGBA, error) {
	return Grow(m, g.Px)
}
