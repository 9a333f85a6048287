package geometry

import "math"

// Viewport describes where a canvas of Native size is displayed on screen.
// Origin is the top-left of the displayed canvas in client coordinates and
// Display its on-screen size; the two sizes differ whenever the canvas is
// scaled by the UI.
type Viewport struct {
	Origin  Point2D
	Display Size
	Native  Size
}

// NewViewport returns a viewport that displays the canvas unscaled at the origin.
func NewViewport(native Size) Viewport {
	return Viewport{Display: native, Native: native}
}

// FitViewport letterboxes a canvas of the given native size into container,
// preserving aspect ratio and centring the result.
func FitViewport(native, container Size) Viewport {
	if native.Width <= 0 || native.Height <= 0 || container.Width <= 0 || container.Height <= 0 {
		return Viewport{Native: native}
	}
	scale := math.Min(container.Width/native.Width, container.Height/native.Height)
	display := Size{Width: native.Width * scale, Height: native.Height * scale}
	return Viewport{
		Origin: Point2D{
			X: (container.Width - display.Width) / 2,
			Y: (container.Height - display.Height) / 2,
		},
		Display: display,
		Native:  native,
	}
}

// Valid reports whether the viewport can map coordinates.
func (v Viewport) Valid() bool {
	return v.Display.Width > 0 && v.Display.Height > 0
}

// ToCanvas maps a client coordinate into native canvas pixels, correcting for
// the display scale per axis. It returns false for a zero-size display.
func (v Viewport) ToCanvas(client Point2D) (Point2D, bool) {
	if !v.Valid() {
		return Point2D{}, false
	}
	return Point2D{
		X: (client.X - v.Origin.X) * v.Native.Width / v.Display.Width,
		Y: (client.Y - v.Origin.Y) * v.Native.Height / v.Display.Height,
	}, true
}

// ToClient maps a native canvas coordinate back to client space.
func (v Viewport) ToClient(canvas Point2D) (Point2D, bool) {
	if v.Native.Width <= 0 || v.Native.Height <= 0 {
		return Point2D{}, false
	}
	return Point2D{
		X: v.Origin.X + canvas.X*v.Display.Width/v.Native.Width,
		Y: v.Origin.Y + canvas.Y*v.Display.Height/v.Native.Height,
	}, true
}

// ToCanvasCoordinates is the free-function form of Viewport.ToCanvas.
func ToCanvasCoordinates(client Point2D, v Viewport) (Point2D, bool) {
	return v.ToCanvas(client)
}

// PercentToPixel converts a percentage of extent to pixels.
func PercentToPixel(pct, extent float64) float64 {
	return extent * pct / 100
}

// PixelToPercent converts a pixel coordinate to a percentage of extent.
// A zero extent yields 0.
func PixelToPercent(px, extent float64) float64 {
	if extent == 0 {
		return 0
	}
	return px * 100 / extent
}

// ClampPercent limits v to [0, 100].
func ClampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
