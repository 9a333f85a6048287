package canvas

import (
	"image"
	"image/color"

	"product-studio/pkg/geometry"
)

// Overlay is drawn over the canvas content. All geometry is in native
// canvas pixels and is mapped through the current viewport.
type Overlay struct {
	// Image covers the whole canvas, e.g. the translucent mask strokes.
	Image image.Image

	// Outlines are closed polygons, e.g. the selected layer's rotated box.
	Outlines [][]geometry.Point2D

	// Rects are outlined boxes, e.g. creative element bounds on hover.
	Rects []geometry.Rect

	// Handles are filled squares with a border.
	Handles []geometry.Rect

	Color color.Color
}

// Empty reports whether there is nothing to draw.
func (o *Overlay) Empty() bool {
	return o == nil || (o.Image == nil && len(o.Outlines) == 0 && len(o.Rects) == 0 && len(o.Handles) == 0)
}
