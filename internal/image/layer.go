// Package image provides image loading, the layer model, and compositing.
package image

import (
	"image"
	"image/color"
	"math"

	"product-studio/pkg/geometry"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// MinLayerSize is the smallest width or height a layer may have, in pixels.
const MinLayerSize = 5.0

// Layer represents a single positioned raster element.
// X and Y locate the top-left of the unrotated box; rotation is applied
// clockwise, in degrees, about the box centre.
type Layer struct {
	ID        string
	Name      string
	Image     image.Image // Owned by the layer once loaded
	X         float64
	Y         float64
	Width     float64
	Height    float64
	Rotation  float64
	Opacity   float64 // 0.0 - 1.0
	ZOrder    int
	Visible   bool
	BlendMode BlendMode
}

// NewLayer creates a visible, fully opaque layer at the image's native size.
func NewLayer(img image.Image) *Layer {
	l := &Layer{
		ID:      uuid.NewString(),
		Image:   img,
		Opacity: 1.0,
		Visible: true,
	}
	if img != nil {
		b := img.Bounds()
		l.Width = math.Max(float64(b.Dx()), MinLayerSize)
		l.Height = math.Max(float64(b.Dy()), MinLayerSize)
	}
	return l
}

// NativeSize returns the pixel dimensions of the source bitmap.
func (l *Layer) NativeSize() geometry.Size {
	if l.Image == nil {
		return geometry.Size{}
	}
	b := l.Image.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

// Box returns the unrotated layer rectangle in canvas pixels.
func (l *Layer) Box() geometry.Rect {
	return geometry.NewRect(l.X, l.Y, l.Width, l.Height)
}

// Center returns the rotation pivot in canvas pixels.
func (l *Layer) Center() geometry.Point2D {
	return l.Box().Center()
}

// Transform maps layer-local coordinates (0..Width, 0..Height) to canvas
// coordinates.
func (l *Layer) Transform() geometry.AffineTransform {
	c := l.Center()
	return geometry.Translation(c.X, c.Y).
		Compose(geometry.RotationDegrees(l.Rotation)).
		Compose(geometry.Translation(-l.Width/2, -l.Height/2))
}

// Bounds returns the axis-aligned bounding box of the rotated layer.
func (l *Layer) Bounds() geometry.Rect {
	if l.Rotation == 0 {
		return l.Box()
	}
	t := l.Transform()
	local := geometry.NewRect(0, 0, l.Width, l.Height).Corners()
	pts := make([]geometry.Point2D, 0, len(local))
	for _, p := range local {
		pts = append(pts, t.Apply(p))
	}
	return geometry.BoundingBox(pts)
}

// HitTest reports whether the canvas point p lies on the (rotated) layer.
func (l *Layer) HitTest(p geometry.Point2D) bool {
	inv, ok := l.Transform().Inverse()
	if !ok {
		return false
	}
	return geometry.NewRect(0, 0, l.Width, l.Height).Hit(inv.Apply(p))
}

// Rendered returns the layer bitmap scaled to its size and rotated, together
// with the canvas position of the result's top-left pixel.
func (l *Layer) Rendered() (image.Image, image.Point) {
	w := int(math.Round(l.Width))
	h := int(math.Round(l.Height))
	img := l.Image
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	if l.Rotation == 0 {
		return img, image.Pt(int(math.Round(l.X)), int(math.Round(l.Y)))
	}

	// imaging rotates counter-clockwise and grows the canvas around the centre.
	rotated := imaging.Rotate(img, -l.Rotation, color.Transparent)
	c := l.Center()
	rb := rotated.Bounds()
	return rotated, image.Pt(
		int(math.Round(c.X-float64(rb.Dx())/2)),
		int(math.Round(c.Y-float64(rb.Dy())/2)),
	)
}

// Clone returns a shallow copy; the bitmap is shared because layers never
// mutate it.
func (l *Layer) Clone() *Layer {
	c := *l
	return &c
}
