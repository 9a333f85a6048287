// Package canvas provides the interactive image surface shared by the editor,
// creative and blender views.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"product-studio/internal/interact"
	"product-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// ContentFunc returns the image to display, or nil for an empty canvas.
type ContentFunc func() image.Image

// OverlayFunc returns the overlay for the current frame.
type OverlayFunc func() *Overlay

// StudioCanvas displays an image letterboxed into its area and forwards
// pointer input to an interact.Handler in canvas pixel coordinates.
type StudioCanvas struct {
	widget.BaseWidget

	mu         sync.RWMutex
	content    ContentFunc
	overlay    OverlayFunc
	handler    interact.Handler
	background color.Color
	onError    func(error)

	raster *fynecanvas.Raster

	pressed  bool
	touching bool
	// cancelled swallows the rest of a mouse drag that left the canvas.
	cancelled bool
	last      fyne.Position
}

// NewStudioCanvas creates an empty canvas.
func NewStudioCanvas() *StudioCanvas {
	sc := &StudioCanvas{background: defaultBackground}
	sc.raster = fynecanvas.NewRaster(sc.draw)
	sc.ExtendBaseWidget(sc)
	return sc
}

// SetContent sets the image source. It is called on every redraw.
func (sc *StudioCanvas) SetContent(fn ContentFunc) {
	sc.mu.Lock()
	sc.content = fn
	sc.mu.Unlock()
	sc.Refresh()
}

// SetOverlay sets the overlay source.
func (sc *StudioCanvas) SetOverlay(fn OverlayFunc) {
	sc.mu.Lock()
	sc.overlay = fn
	sc.mu.Unlock()
	sc.Refresh()
}

// SetHandler routes pointer input to h. A nil handler makes the canvas
// display-only.
func (sc *StudioCanvas) SetHandler(h interact.Handler) {
	sc.mu.Lock()
	sc.handler = h
	sc.pressed, sc.touching = false, false
	sc.mu.Unlock()
}

func (sc *StudioCanvas) SetBackground(c color.Color) {
	sc.mu.Lock()
	sc.background = c
	sc.mu.Unlock()
	sc.Refresh()
}

// OnError registers a callback for handler errors, typically a render
// failure during a drag.
func (sc *StudioCanvas) OnError(fn func(error)) {
	sc.mu.Lock()
	sc.onError = fn
	sc.mu.Unlock()
}

// Viewport maps the current content into the widget's area, in fyne units.
func (sc *StudioCanvas) Viewport() geometry.Viewport {
	img := sc.currentContent()
	if img == nil {
		return geometry.Viewport{}
	}
	size := sc.Size()
	return geometry.FitViewport(nativeSize(img), geometry.NewSize(float64(size.Width), float64(size.Height)))
}

// CreateRenderer implements fyne.Widget.
func (sc *StudioCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &studioCanvasRenderer{canvas: sc}
}

// MinSize keeps the canvas usable inside splits and tabs.
func (sc *StudioCanvas) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (sc *StudioCanvas) draw(w, h int) image.Image {
	sc.mu.RLock()
	content, overlay, bg := sc.content, sc.overlay, sc.background
	sc.mu.RUnlock()

	var img image.Image
	if content != nil {
		img = content()
	}
	var ov *Overlay
	if overlay != nil && img != nil {
		ov = overlay()
	}
	return Compose(img, ov, w, h, bg)
}

func (sc *StudioCanvas) currentContent() image.Image {
	sc.mu.RLock()
	content := sc.content
	sc.mu.RUnlock()
	if content == nil {
		return nil
	}
	return content()
}

// dispatch forwards one event to the handler and redraws when it reports a
// change.
func (sc *StudioCanvas) dispatch(kind interact.PointerKind, pos fyne.Position, touch bool) {
	sc.mu.RLock()
	h, onError := sc.handler, sc.onError
	sc.mu.RUnlock()
	if h == nil {
		return
	}

	h.SetViewport(sc.Viewport())
	changed, err := h.Handle(interact.PointerEvent{
		Kind:   kind,
		Client: geometry.NewPoint2D(float64(pos.X), float64(pos.Y)),
		Touch:  touch,
	})
	if err != nil && onError != nil {
		onError(err)
	}
	if changed {
		sc.Refresh()
	}
}

// MouseDown implements desktop.Mouseable.
func (sc *StudioCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	sc.mu.Lock()
	sc.pressed, sc.cancelled, sc.last = true, false, ev.Position
	sc.mu.Unlock()
	sc.dispatch(interact.PointerDown, ev.Position, false)
}

// MouseUp implements desktop.Mouseable.
func (sc *StudioCanvas) MouseUp(ev *desktop.MouseEvent) {
	sc.mu.Lock()
	was := sc.pressed
	sc.pressed, sc.cancelled = false, false
	sc.mu.Unlock()
	if was {
		sc.dispatch(interact.PointerUp, ev.Position, false)
	}
}

// MouseIn implements desktop.Hoverable.
func (sc *StudioCanvas) MouseIn(ev *desktop.MouseEvent) {
	sc.dispatch(interact.PointerMove, ev.Position, false)
}

// MouseMoved implements desktop.Hoverable.
func (sc *StudioCanvas) MouseMoved(ev *desktop.MouseEvent) {
	sc.dispatch(interact.PointerMove, ev.Position, false)
}

// MouseOut implements desktop.Hoverable. Leaving cancels a mouse drag; the
// Dragged events fyne keeps sending until release are ignored.
func (sc *StudioCanvas) MouseOut() {
	sc.mu.Lock()
	if sc.pressed {
		sc.pressed, sc.cancelled = false, true
	}
	sc.mu.Unlock()
	sc.dispatch(interact.PointerLeave, fyne.Position{}, false)
}

// Dragged implements fyne.Draggable. Mouse drags arrive after MouseDown;
// drags without one come from touch input.
func (sc *StudioCanvas) Dragged(ev *fyne.DragEvent) {
	sc.mu.Lock()
	if sc.cancelled {
		sc.mu.Unlock()
		return
	}
	pressed := sc.pressed
	start := !pressed && !sc.touching
	if pressed {
		sc.last = ev.Position
	} else {
		sc.touching = true
	}
	sc.mu.Unlock()

	if pressed {
		sc.dispatch(interact.PointerMove, ev.Position, false)
		return
	}
	pt := geometry.NewPoint2D(float64(ev.Position.X), float64(ev.Position.Y))
	if start {
		sc.touch(interact.FromTouch(interact.TouchStart, pt))
	}
	sc.touch(interact.FromTouch(interact.TouchMove, pt))
}

// DragEnd implements fyne.Draggable. fyne only sends MouseUp when the
// release happens over a mouseable object, so a mouse drag is finished here
// as well.
func (sc *StudioCanvas) DragEnd() {
	sc.mu.Lock()
	touching, pressed, last := sc.touching, sc.pressed, sc.last
	sc.touching, sc.pressed, sc.cancelled = false, false, false
	sc.mu.Unlock()
	if pressed {
		sc.dispatch(interact.PointerUp, last, false)
	}
	if touching {
		sc.touch(interact.FromTouch(interact.TouchEnd, geometry.Point2D{}))
	}
}

func (sc *StudioCanvas) touch(ev interact.PointerEvent) {
	sc.dispatch(ev.Kind, fyne.NewPos(float32(ev.Client.X), float32(ev.Client.Y)), true)
}

// Cursor implements desktop.Cursorable.
func (sc *StudioCanvas) Cursor() desktop.Cursor {
	sc.mu.RLock()
	h := sc.handler
	sc.mu.RUnlock()
	if h == nil {
		return desktop.DefaultCursor
	}
	return desktopCursor(h.Cursor())
}

func desktopCursor(c interact.Cursor) desktop.Cursor {
	switch c {
	case interact.CursorGrab, interact.CursorGrabbing:
		return desktop.PointerCursor
	case interact.CursorResize:
		return desktop.HResizeCursor
	case interact.CursorRotate, interact.CursorCrosshair:
		return desktop.CrosshairCursor
	default:
		return desktop.DefaultCursor
	}
}

type studioCanvasRenderer struct {
	canvas *StudioCanvas
}

func (r *studioCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *studioCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.MinSize()
}

func (r *studioCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *studioCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *studioCanvasRenderer) Destroy() {}
