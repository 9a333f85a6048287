// Package mask handles brush painting over an image and conversion of the
// painted overlay into the binary edit mask sent to the AI service.
package mask

import (
	"image"
	"image/color"
	"sync"

	"product-studio/pkg/colorutil"
	"product-studio/pkg/geometry"

	"github.com/fogleman/gg"
)

// DefaultBrushRadius is the brush radius in image pixels.
const DefaultBrushRadius = 20.0

// Painter accumulates round-brush strokes in image pixel coordinates. It is
// safe for concurrent use.
type Painter struct {
	mu            sync.Mutex
	width, height int
	radius        float64
	color         color.Color
	strokes       []stroke
	current       *stroke
}

type stroke struct {
	radius float64
	points []geometry.Point2D
}

// NewPainter creates a painter for an image of the given size.
func NewPainter(width, height int) *Painter {
	return &Painter{
		width:  width,
		height: height,
		radius: DefaultBrushRadius,
		color:  colorutil.Highlight,
	}
}

// Size returns the painter surface size.
func (p *Painter) Size() (int, int) {
	return p.width, p.height
}

// SetBrushRadius sets the radius for subsequent strokes. Values below 1 are
// raised to 1.
func (p *Painter) SetBrushRadius(r float64) {
	if r < 1 {
		r = 1
	}
	p.mu.Lock()
	p.radius = r
	p.mu.Unlock()
}

// BrushRadius returns the current brush radius.
func (p *Painter) BrushRadius() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.radius
}

// SetColor changes the highlight colour used by Overlay.
func (p *Painter) SetColor(c color.Color) {
	p.mu.Lock()
	p.color = c
	p.mu.Unlock()
}

// BeginStroke starts a new stroke at pt, committing any open stroke.
func (p *Painter) BeginStroke(pt geometry.Point2D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endStroke()
	p.current = &stroke{radius: p.radius, points: []geometry.Point2D{pt}}
}

// ContinueStroke extends the open stroke. It is ignored when no stroke is open.
func (p *Painter) ContinueStroke(pt geometry.Point2D) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.current.points = append(p.current.points, pt)
}

// EndStroke commits the open stroke.
func (p *Painter) EndStroke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endStroke()
}

func (p *Painter) endStroke() {
	if p.current == nil {
		return
	}
	p.strokes = append(p.strokes, *p.current)
	p.current = nil
}

// Painting reports whether a stroke is open.
func (p *Painter) Painting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// StrokeCount returns the number of strokes, including an open one.
func (p *Painter) StrokeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.strokes)
	if p.current != nil {
		n++
	}
	return n
}

// Clear removes all strokes.
func (p *Painter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strokes = nil
	p.current = nil
}

// Overlay renders the strokes in the highlight colour on a transparent surface.
func (p *Painter) Overlay() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	dc := gg.NewContext(p.width, p.height)
	dc.SetColor(p.color)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, s := range p.strokes {
		drawStroke(dc, s)
	}
	if p.current != nil {
		drawStroke(dc, *p.current)
	}
	return dc.Image()
}

// Mask returns the binary mask of everything painted so far.
func (p *Painter) Mask() *image.RGBA {
	return ExtractBinary(p.Overlay())
}

func drawStroke(dc *gg.Context, s stroke) {
	if len(s.points) == 0 {
		return
	}
	if len(s.points) == 1 {
		dc.DrawCircle(s.points[0].X, s.points[0].Y, s.radius)
		dc.Fill()
		return
	}
	dc.SetLineWidth(2 * s.radius)
	dc.MoveTo(s.points[0].X, s.points[0].Y)
	for _, pt := range s.points[1:] {
		dc.LineTo(pt.X, pt.Y)
	}
	dc.Stroke()
}
