package interact

import (
	"math"

	studioimage "product-studio/internal/image"
	"product-studio/pkg/geometry"
)

// HandleKind identifies a transform handle on the selected layer.
type HandleKind int

const (
	HandleNone HandleKind = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
	HandleRotate
)

// Handle is one grab point of the selected layer, in canvas pixels.
type Handle struct {
	Kind   HandleKind
	Center geometry.Point2D
	Rect   geometry.Rect
}

const (
	handleSizePx     = 12.0 // on-screen handle size
	rotateOffsetPx   = 28.0 // on-screen distance of the rotate handle above the top edge
	minGestureFactor = 0.01
)

// LayerController moves, resizes and rotates layers of a stack.
type LayerController struct {
	stack    *studioimage.Stack
	vp       geometry.Viewport
	mode     Mode
	cursor   Cursor
	onCommit func()
	onChange func()

	// drag
	grab  geometry.Point2D
	moved bool

	// transform
	handle HandleKind
	origin studioimage.Layer
	pivot  geometry.Point2D
	start  geometry.Point2D
	live   geometry.AffineTransform
}

// NewLayerController creates a controller for stack. The viewport defaults to
// an identity mapping of the given canvas size.
func NewLayerController(stack *studioimage.Stack, canvas geometry.Size) *LayerController {
	return &LayerController{
		stack: stack,
		vp:    geometry.NewViewport(canvas),
		live:  geometry.Identity(),
	}
}

// OnCommit registers a callback fired once per completed gesture that
// changed the stack.
func (c *LayerController) OnCommit(fn func()) {
	c.onCommit = fn
}

// OnChange registers a callback fired whenever the display needs a redraw.
func (c *LayerController) OnChange(fn func()) {
	c.onChange = fn
}

// SetViewport sets the client-to-canvas mapping.
func (c *LayerController) SetViewport(vp geometry.Viewport) {
	c.vp = vp
}

func (c *LayerController) Mode() Mode { return c.mode }
func (c *LayerController) Cursor() Cursor { return c.cursor }

// LiveTransform returns the un-baked transform of the running gesture.
func (c *LayerController) LiveTransform() geometry.AffineTransform {
	return c.live
}

// Handle processes one pointer event and reports whether a redraw is needed.
func (c *LayerController) Handle(ev PointerEvent) (bool, error) {
	p, ok := c.vp.ToCanvas(ev.Client)

	switch ev.Kind {
	case PointerDown:
		if !ok {
			return false, nil
		}
		return c.down(p)

	case PointerMove:
		if !ok {
			return false, nil
		}
		switch c.mode {
		case ModeDragging:
			return c.drag(p)
		case ModeTransforming:
			c.transform(p)
			c.changed()
			return true, nil
		default:
			c.hover(p)
			return false, nil
		}

	case PointerUp:
		return c.finish(true)

	case PointerLeave:
		return c.finish(false)
	}
	return false, nil
}

func (c *LayerController) down(p geometry.Point2D) (bool, error) {
	if kind := c.handleAt(p); kind != HandleNone {
		sel, _ := c.stack.Selected()
		c.mode = ModeTransforming
		c.handle = kind
		c.origin = *sel
		c.start = p
		c.live = geometry.Identity()
		c.pivot = transformPivot(sel, kind)
		c.cursor = cursorFor(kind)
		return false, nil
	}

	l, ok := c.stack.TopmostAt(p)
	if !ok {
		_, had := c.stack.Selected()
		_ = c.stack.Select("")
		c.cursor = CursorDefault
		if had {
			c.changed()
		}
		return had, nil
	}
	if err := c.stack.Select(l.ID); err != nil {
		return false, err
	}
	c.mode = ModeDragging
	c.grab = p.Sub(geometry.NewPoint2D(l.X, l.Y))
	c.moved = false
	c.cursor = CursorGrabbing
	c.changed()
	return true, nil
}

func (c *LayerController) drag(p geometry.Point2D) (bool, error) {
	sel, ok := c.stack.Selected()
	if !ok {
		c.mode = ModeIdle
		return false, nil
	}
	pos := p.Sub(c.grab)
	if err := c.stack.Update(sel.ID, studioimage.Changes{X: &pos.X, Y: &pos.Y}); err != nil {
		return false, err
	}
	c.moved = true
	c.changed()
	return true, nil
}

// transform recomputes the live transform from the gesture start.
func (c *LayerController) transform(p geometry.Point2D) {
	if c.handle == HandleRotate {
		a0 := math.Atan2(c.start.Y-c.pivot.Y, c.start.X-c.pivot.X)
		a1 := math.Atan2(p.Y-c.pivot.Y, p.X-c.pivot.X)
		c.live = geometry.About(geometry.Rotation(a1-a0), c.pivot)
		return
	}

	// Scale along the layer's own axes about the opposite corner.
	rot := geometry.RotationDegrees(c.origin.Rotation)
	unrot := geometry.RotationDegrees(-c.origin.Rotation)
	d0 := unrot.Apply(c.start.Sub(c.pivot))
	d1 := unrot.Apply(p.Sub(c.pivot))
	sx, sy := axisFactor(d1.X, d0.X), axisFactor(d1.Y, d0.Y)
	c.live = geometry.About(rot.Compose(geometry.Scale(sx, sy)).Compose(unrot), c.pivot)
}

func axisFactor(now, then float64) float64 {
	if math.Abs(then) < 1e-9 {
		return 1
	}
	return math.Max(now/then, minGestureFactor)
}

// Preview returns the selected layer with the live transform baked in,
// without touching the stack.
func (c *LayerController) Preview() (studioimage.Layer, bool) {
	if c.mode != ModeTransforming {
		return studioimage.Layer{}, false
	}
	return bake(c.origin, c.live), true
}

// bake folds t into the layer's box: the scale goes into width and height,
// the rotation into Rotation, and the position follows the moved centre.
func bake(l studioimage.Layer, t geometry.AffineTransform) studioimage.Layer {
	full := t.Compose(l.Transform())
	sx, sy, rot := geometry.Decompose(full)
	center := full.Apply(geometry.NewPoint2D(l.Width/2, l.Height/2))

	l.Width = math.Max(l.Width*math.Abs(sx), studioimage.MinLayerSize)
	l.Height = math.Max(l.Height*math.Abs(sy), studioimage.MinLayerSize)
	l.Rotation = rot
	l.X = center.X - l.Width/2
	l.Y = center.Y - l.Height/2
	return l
}

func (c *LayerController) finish(commit bool) (bool, error) {
	mode := c.mode
	c.mode = ModeIdle
	c.cursor = CursorDefault

	switch mode {
	case ModeDragging:
		if c.moved {
			c.moved = false
			c.committed()
		}
		return false, nil

	case ModeTransforming:
		live := c.live
		c.live = geometry.Identity()
		if !commit {
			c.changed()
			return true, nil
		}
		baked := bake(c.origin, live)
		err := c.stack.Update(c.origin.ID, studioimage.Changes{
			X:        &baked.X,
			Y:        &baked.Y,
			Width:    &baked.Width,
			Height:   &baked.Height,
			Rotation: &baked.Rotation,
		})
		if err != nil {
			return false, err
		}
		c.committed()
		c.changed()
		return true, nil
	}
	return false, nil
}

func (c *LayerController) hover(p geometry.Point2D) {
	if kind := c.handleAt(p); kind != HandleNone {
		c.cursor = cursorFor(kind)
		return
	}
	if _, ok := c.stack.TopmostAt(p); ok {
		c.cursor = CursorGrab
		return
	}
	c.cursor = CursorDefault
}

// Handles returns the handles of the selected layer in canvas pixels. During
// a transform they follow the preview.
func (c *LayerController) Handles() []Handle {
	sel, ok := c.stack.Selected()
	if !ok {
		return nil
	}
	l := *sel
	if preview, ok := c.Preview(); ok {
		l = preview
	}

	scale := c.screenToCanvas()
	size := handleSizePx * scale
	t := l.Transform()
	local := geometry.NewRect(0, 0, l.Width, l.Height).Corners()
	kinds := [4]HandleKind{HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft}

	handles := make([]Handle, 0, 5)
	for i, corner := range local {
		pt := t.Apply(corner)
		handles = append(handles, Handle{Kind: kinds[i], Center: pt, Rect: geometry.RectFromCenter(pt, size, size)})
	}
	rotPt := t.Apply(geometry.NewPoint2D(l.Width/2, -rotateOffsetPx*scale))
	handles = append(handles, Handle{Kind: HandleRotate, Center: rotPt, Rect: geometry.RectFromCenter(rotPt, size, size)})
	return handles
}

// Outline returns the selected layer's corners in canvas pixels.
func (c *LayerController) Outline() []geometry.Point2D {
	sel, ok := c.stack.Selected()
	if !ok {
		return nil
	}
	l := *sel
	if preview, ok := c.Preview(); ok {
		l = preview
	}
	t := l.Transform()
	corners := geometry.NewRect(0, 0, l.Width, l.Height).Corners()
	out := make([]geometry.Point2D, len(corners))
	for i, pt := range corners {
		out[i] = t.Apply(pt)
	}
	return out
}

func (c *LayerController) handleAt(p geometry.Point2D) HandleKind {
	for _, h := range c.Handles() {
		if h.Rect.Hit(p) {
			return h.Kind
		}
	}
	return HandleNone
}

// screenToCanvas is the number of canvas pixels per screen pixel.
func (c *LayerController) screenToCanvas() float64 {
	if !c.vp.Valid() || c.vp.Native.Width <= 0 {
		return 1
	}
	return c.vp.Native.Width / c.vp.Display.Width
}

func transformPivot(l *studioimage.Layer, kind HandleKind) geometry.Point2D {
	t := l.Transform()
	corners := geometry.NewRect(0, 0, l.Width, l.Height).Corners()
	switch kind {
	case HandleTopLeft:
		return t.Apply(corners[2])
	case HandleTopRight:
		return t.Apply(corners[3])
	case HandleBottomRight:
		return t.Apply(corners[0])
	case HandleBottomLeft:
		return t.Apply(corners[1])
	}
	return l.Center()
}

func cursorFor(kind HandleKind) Cursor {
	if kind == HandleRotate {
		return CursorRotate
	}
	return CursorResize
}

func (c *LayerController) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *LayerController) committed() {
	if c.onCommit != nil {
		c.onCommit()
	}
}
