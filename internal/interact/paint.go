package interact

import (
	"product-studio/internal/mask"
	"product-studio/pkg/geometry"
)

// PaintController turns pointer strokes into mask brush strokes.
type PaintController struct {
	painter  *mask.Painter
	vp       geometry.Viewport
	enabled  bool
	onChange func()
}

// NewPaintController paints onto p. The viewport defaults to an identity
// mapping of the painter size.
func NewPaintController(p *mask.Painter) *PaintController {
	w, h := p.Size()
	return &PaintController{
		painter: p,
		vp:      geometry.NewViewport(geometry.NewSize(float64(w), float64(h))),
		enabled: true,
	}
}

// OnChange registers a callback fired after each stroke update.
func (c *PaintController) OnChange(fn func()) {
	c.onChange = fn
}

func (c *PaintController) SetViewport(vp geometry.Viewport) {
	c.vp = vp
}

// SetEnabled turns painting on or off, for example while an edit runs.
// Disabling ends an open stroke.
func (c *PaintController) SetEnabled(on bool) {
	if !on && c.painter.Painting() {
		c.painter.EndStroke()
	}
	c.enabled = on
}

func (c *PaintController) Cursor() Cursor {
	if !c.enabled {
		return CursorDefault
	}
	return CursorCrosshair
}

// Handle processes one pointer event and reports whether the overlay changed.
// Points off the image still extend a stroke so brush edges reach the border.
func (c *PaintController) Handle(ev PointerEvent) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	p, ok := c.vp.ToCanvas(ev.Client)

	switch ev.Kind {
	case PointerDown:
		if !ok {
			return false, nil
		}
		c.painter.BeginStroke(p)
	case PointerMove:
		if !ok || !c.painter.Painting() {
			return false, nil
		}
		c.painter.ContinueStroke(p)
	case PointerUp, PointerLeave:
		if !c.painter.Painting() {
			return false, nil
		}
		c.painter.EndStroke()
	default:
		return false, nil
	}
	if c.onChange != nil {
		c.onChange()
	}
	return true, nil
}
