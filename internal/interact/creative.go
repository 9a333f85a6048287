package interact

import (
	"errors"
	"fmt"

	"product-studio/internal/creative"
	"product-studio/pkg/geometry"
)

// RenderFunc renders a creative state. The controller keeps the returned
// rects as the hit targets for the next event.
type RenderFunc func(st creative.State) (*creative.Result, error)

// CreativeController drags the headline, CTA and logo of a creative.
type CreativeController struct {
	render   RenderFunc
	state    creative.State
	result   *creative.Result
	vp       geometry.Viewport
	mode     Mode
	active   creative.Element
	cursor   Cursor
	onChange func(creative.State)
}

// NewCreativeController renders st once so hit targets exist before the
// first event.
func NewCreativeController(st creative.State, render RenderFunc) (*CreativeController, error) {
	if render == nil {
		return nil, errors.New("render function is required")
	}
	c := &CreativeController{render: render, state: st}
	if err := c.rerender(st); err != nil {
		return nil, err
	}
	c.vp = geometry.NewViewport(c.canvasSize())
	return c, nil
}

// OnChange registers a callback for state changes made by dragging.
func (c *CreativeController) OnChange(fn func(creative.State)) {
	c.onChange = fn
}

// SetViewport sets the client-to-canvas mapping.
func (c *CreativeController) SetViewport(vp geometry.Viewport) {
	c.vp = vp
}

// SetState replaces the state (form input) and re-renders immediately.
// An active drag is cancelled.
func (c *CreativeController) SetState(st creative.State) error {
	if err := c.rerender(st); err != nil {
		return err
	}
	c.mode, c.active = ModeIdle, creative.ElementNone
	return nil
}

// Refresh re-renders the current state, for example after the background
// or logo bitmap changed.
func (c *CreativeController) Refresh() error {
	return c.rerender(c.state)
}

// Handle processes one pointer event and reports whether the state changed.
func (c *CreativeController) Handle(ev PointerEvent) (bool, error) {
	switch ev.Kind {
	case PointerDown:
		p, ok := c.vp.ToCanvas(ev.Client)
		if !ok {
			return false, nil
		}
		if el := c.hit(p); el != creative.ElementNone {
			c.mode, c.active = ModeDragging, el
			c.cursor = CursorGrabbing
		}
		return false, nil

	case PointerMove:
		p, ok := c.vp.ToCanvas(ev.Client)
		if c.mode != ModeDragging {
			c.cursor = CursorDefault
			if ok && c.hit(p) != creative.ElementNone {
				c.cursor = CursorGrab
			}
			return false, nil
		}
		if !ok {
			return false, nil
		}
		size := c.canvasSize()
		next := c.state.WithPosition(c.active, creative.PercentOf(p, size.Width, size.Height))
		if err := c.rerender(next); err != nil {
			return false, fmt.Errorf("drag %s: %w", c.active, err)
		}
		if c.onChange != nil {
			c.onChange(c.state)
		}
		return true, nil

	case PointerUp, PointerLeave:
		if c.mode == ModeDragging {
			c.cursor = CursorGrab
			if ev.Kind == PointerLeave {
				c.cursor = CursorDefault
			}
		}
		c.mode, c.active = ModeIdle, creative.ElementNone
	}
	return false, nil
}

// hit returns the first visible element under p in HitOrder.
func (c *CreativeController) hit(p geometry.Point2D) creative.Element {
	for _, el := range creative.HitOrder {
		if c.state.Visible(el) && c.result.Rects.Get(el).Hit(p) {
			return el
		}
	}
	return creative.ElementNone
}

func (c *CreativeController) rerender(st creative.State) error {
	res, err := c.render(st)
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("render returned no result")
	}
	c.state, c.result = st, res
	return nil
}

func (c *CreativeController) canvasSize() geometry.Size {
	if c.result == nil || c.result.Image == nil {
		return geometry.Size{}
	}
	b := c.result.Image.Bounds()
	return geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
}

func (c *CreativeController) State() creative.State { return c.state }
func (c *CreativeController) Result() *creative.Result { return c.result }
func (c *CreativeController) Rects() creative.ElementRects { return c.result.Rects }
func (c *CreativeController) Mode() Mode { return c.mode }
func (c *CreativeController) Active() creative.Element { return c.active }
func (c *CreativeController) Cursor() Cursor { return c.cursor }
