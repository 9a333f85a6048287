package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"product-studio/internal/interact"
	"product-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

type recordingHandler struct {
	events []interact.PointerEvent
	vp     geometry.Viewport
	cursor interact.Cursor
}

func (h *recordingHandler) Handle(ev interact.PointerEvent) (bool, error) {
	h.events = append(h.events, ev)
	return ev.Kind != interact.PointerMove, nil
}

func (h *recordingHandler) Cursor() interact.Cursor          { return h.cursor }
func (h *recordingHandler) SetViewport(vp geometry.Viewport) { h.vp = vp }

func TestComposeLetterboxes(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	out := Compose(solid(100, 50, red), nil, 100, 100, color.Black)
	require.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

	r, _, _, _ := out.At(50, 50).RGBA()
	assert.Equal(t, uint32(0xFFFF), r, "content is centred")
	r, _, _, _ = out.At(50, 5).RGBA()
	assert.Equal(t, uint32(0), r, "bars keep the background")
}

func TestComposeEmpty(t *testing.T) {
	out := Compose(nil, &Overlay{Rects: []geometry.Rect{geometry.NewRect(0, 0, 5, 5)}}, 10, 10, color.White)
	r, g, b, _ := out.At(3, 3).RGBA()
	assert.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b})
}

func TestComposeOverlayHandles(t *testing.T) {
	overlay := &Overlay{
		Handles: []geometry.Rect{geometry.NewRect(10, 10, 20, 20)},
		Color:   color.NRGBA{B: 255, A: 255},
	}
	out := Compose(solid(100, 100, color.Black), overlay, 100, 100, nil)
	r, g, b, _ := out.At(20, 20).RGBA()
	assert.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b}, "handles are filled white")
}

func TestOverlayEmpty(t *testing.T) {
	var o *Overlay
	assert.True(t, o.Empty())
	assert.True(t, (&Overlay{}).Empty())
	assert.False(t, (&Overlay{Outlines: [][]geometry.Point2D{{{X: 1}}}}).Empty())
}

func TestStudioCanvasDispatchesMouse(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	sc := NewStudioCanvas()
	sc.SetContent(func() image.Image { return solid(200, 100, color.White) })
	sc.Resize(fyne.NewSize(100, 50))

	h := &recordingHandler{cursor: interact.CursorGrab}
	sc.SetHandler(h)

	sc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 10)}})
	sc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 10)}})

	require.Len(t, h.events, 3)
	assert.Equal(t, interact.PointerDown, h.events[0].Kind)
	assert.Equal(t, interact.PointerMove, h.events[1].Kind)
	assert.Equal(t, interact.PointerUp, h.events[2].Kind)
	assert.False(t, h.events[0].Touch)
	assert.Equal(t, geometry.NewPoint2D(10, 10), h.events[0].Client)

	p, ok := h.vp.ToCanvas(geometry.NewPoint2D(10, 10))
	require.True(t, ok)
	assert.InDelta(t, 20, p.X, 1e-6)
	assert.Equal(t, desktop.PointerCursor, sc.Cursor())
}

func TestStudioCanvasTouchDrag(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	sc := NewStudioCanvas()
	sc.SetContent(func() image.Image { return solid(50, 50, color.White) })
	sc.Resize(fyne.NewSize(50, 50))
	h := &recordingHandler{}
	sc.SetHandler(h)

	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(5, 5)}})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(8, 5)}})
	sc.DragEnd()

	kinds := make([]interact.PointerKind, len(h.events))
	for i, ev := range h.events {
		kinds[i] = ev.Kind
		assert.True(t, ev.Touch)
	}
	assert.Equal(t, []interact.PointerKind{
		interact.PointerDown, interact.PointerMove, interact.PointerMove, interact.PointerUp,
	}, kinds)
}

func TestStudioCanvasWithoutHandler(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	sc := NewStudioCanvas()
	sc.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
	sc.MouseUp(&desktop.MouseEvent{})
	assert.Equal(t, desktop.DefaultCursor, sc.Cursor())
	assert.Equal(t, geometry.Viewport{}, sc.Viewport())
}

func kindsOf(events []interact.PointerEvent) []interact.PointerKind {
	kinds := make([]interact.PointerKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func TestStudioCanvasLeaveCancelsMouseDrag(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	sc := NewStudioCanvas()
	sc.SetContent(func() image.Image { return solid(100, 100, color.White) })
	sc.Resize(fyne.NewSize(100, 100))
	h := &recordingHandler{}
	sc.SetHandler(h)

	sc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(20, 10)}})
	sc.MouseOut()
	// Released outside: fyne sends more drags and DragEnd but no MouseUp.
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(140, 10)}})
	sc.DragEnd()
	sc.MouseIn(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 50)}})

	assert.Equal(t, []interact.PointerKind{
		interact.PointerDown, interact.PointerMove, interact.PointerLeave, interact.PointerMove,
	}, kindsOf(h.events))
	for _, ev := range h.events {
		assert.False(t, ev.Touch)
	}

	// The next drag starts cleanly.
	sc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 30)}, Button: desktop.MouseButtonPrimary})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(35, 30)}})
	sc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(35, 30)}})
	assert.Equal(t, []interact.PointerKind{
		interact.PointerDown, interact.PointerMove, interact.PointerUp,
	}, kindsOf(h.events[4:]))
}

func TestStudioCanvasDragEndFinishesMouseDrag(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	sc := NewStudioCanvas()
	sc.SetContent(func() image.Image { return solid(100, 100, color.White) })
	sc.Resize(fyne.NewSize(100, 100))
	h := &recordingHandler{}
	sc.SetHandler(h)

	sc.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}, Button: desktop.MouseButtonPrimary})
	sc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(25, 15)}})
	sc.DragEnd()
	sc.MouseUp(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(25, 15)}})

	require.Equal(t, []interact.PointerKind{
		interact.PointerDown, interact.PointerMove, interact.PointerUp,
	}, kindsOf(h.events))
	assert.Equal(t, geometry.NewPoint2D(25, 15), h.events[2].Client)
	assert.False(t, h.events[2].Touch)
}
