package interact

import (
	"image"
	"testing"

	"product-studio/internal/creative"
	studioimage "product-studio/internal/image"
	"product-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boxRenderer lays every element out as a 100x40 box around its anchor on a
// 1000x800 canvas.
func boxRenderer(renders *int) RenderFunc {
	canvas := image.NewRGBA(image.Rect(0, 0, 1000, 800))
	return func(st creative.State) (*creative.Result, error) {
		*renders++
		box := func(el creative.Element) geometry.Rect {
			if !st.Visible(el) {
				return geometry.Rect{}
			}
			return geometry.RectFromCenter(st.Position(el).ToPixel(1000, 800), 100, 40)
		}
		return &creative.Result{
			Image: canvas,
			Rects: creative.ElementRects{
				Logo:     box(creative.ElementLogo),
				Headline: box(creative.ElementHeadline),
				CTA:      box(creative.ElementCTA),
			},
		}, nil
	}
}

func down(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerDown, Client: geometry.NewPoint2D(x, y)}
}

func move(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerMove, Client: geometry.NewPoint2D(x, y)}
}

func up(x, y float64) PointerEvent {
	return PointerEvent{Kind: PointerUp, Client: geometry.NewPoint2D(x, y)}
}

func TestDraggingCTAThenHeadlineMovesOnlyTheGrabbedElement(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)
	assert.Equal(t, 1, renders, "rendered before the first event")

	// CTA sits at (50%, 88%) = (500, 704).
	_, err = c.Handle(down(500, 704))
	require.NoError(t, err)
	assert.Equal(t, ModeDragging, c.Mode())
	assert.Equal(t, creative.ElementCTA, c.Active())

	changed, err := c.Handle(move(200, 704))
	require.NoError(t, err)
	assert.True(t, changed)
	_, _ = c.Handle(up(200, 704))
	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, creative.Percent{X: 20, Y: 88}, c.State().CTAPosition)

	// Headline sits at (50%, 15%) = (500, 120).
	_, _ = c.Handle(down(500, 120))
	assert.Equal(t, creative.ElementHeadline, c.Active())
	_, _ = c.Handle(move(700, 300))
	_, _ = c.Handle(up(700, 300))

	st := c.State()
	assert.Equal(t, creative.Percent{X: 70, Y: 37.5}, st.HeadlinePosition)
	assert.Equal(t, creative.Percent{X: 20, Y: 88}, st.CTAPosition, "CTA did not move again")
}

func TestCreativeRectsAreFreshAfterEveryDrag(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)

	_, _ = c.Handle(down(500, 704))
	_, _ = c.Handle(move(200, 704))
	_, _ = c.Handle(up(200, 704))

	assert.True(t, c.Rects().CTA.Hit(geometry.NewPoint2D(200, 704)))
	assert.False(t, c.Rects().CTA.Hit(geometry.NewPoint2D(500, 704)))

	_, _ = c.Handle(down(500, 704))
	assert.Equal(t, ModeIdle, c.Mode(), "old CTA location is empty now")
}

func TestCreativeHitPriority(t *testing.T) {
	var renders int
	st := creative.DefaultState()
	st.LogoPosition = st.HeadlinePosition
	c, err := NewCreativeController(st, boxRenderer(&renders))
	require.NoError(t, err)

	_, _ = c.Handle(down(500, 120))
	assert.Equal(t, creative.ElementLogo, c.Active(), "logo wins over an overlapping headline")
	_, _ = c.Handle(up(500, 120))

	st.ShowLogo = false
	require.NoError(t, c.SetState(st))
	_, _ = c.Handle(down(500, 120))
	assert.Equal(t, creative.ElementHeadline, c.Active(), "hidden elements never match")
}

func TestCreativeLeaveCancelsDrag(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)
	var changes []creative.State
	c.OnChange(func(st creative.State) { changes = append(changes, st) })

	_, _ = c.Handle(down(500, 120))
	_, _ = c.Handle(move(520, 130))
	_, _ = c.Handle(PointerEvent{Kind: PointerLeave})
	assert.Equal(t, ModeIdle, c.Mode())

	changed, err := c.Handle(move(900, 700))
	require.NoError(t, err)
	assert.False(t, changed, "moves after leave only hover")
	assert.Len(t, changes, 1)
}

func TestCreativeHoverCursor(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)
	before := renders

	_, _ = c.Handle(move(500, 120))
	assert.Equal(t, CursorGrab, c.Cursor())
	_, _ = c.Handle(move(10, 400))
	assert.Equal(t, CursorDefault, c.Cursor())
	assert.Equal(t, before, renders, "hovering never re-renders")
}

func TestCreativeZeroViewportIsNoHit(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)
	c.SetViewport(geometry.Viewport{Native: geometry.NewSize(1000, 800)})

	_, err = c.Handle(down(500, 120))
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, c.Mode())
}

func TestCreativeViewportScaling(t *testing.T) {
	var renders int
	c, err := NewCreativeController(creative.DefaultState(), boxRenderer(&renders))
	require.NoError(t, err)
	// Canvas shown at half size with a 10px left margin.
	c.SetViewport(geometry.Viewport{
		Origin:  geometry.NewPoint2D(10, 0),
		Display: geometry.NewSize(500, 400),
		Native:  geometry.NewSize(1000, 800),
	})

	_, _ = c.Handle(down(260, 60))
	assert.Equal(t, creative.ElementHeadline, c.Active())
}

func TestFromTouch(t *testing.T) {
	p := geometry.NewPoint2D(1, 2)
	assert.Equal(t, PointerDown, FromTouch(TouchStart, p).Kind)
	assert.Equal(t, PointerMove, FromTouch(TouchMove, p).Kind)
	assert.Equal(t, PointerUp, FromTouch(TouchEnd, p).Kind)
	assert.Equal(t, PointerLeave, FromTouch(TouchCancel, p).Kind)
	assert.True(t, FromTouch(TouchStart, p).Touch)
}

func layerStack(t *testing.T) (*studioimage.Stack, *studioimage.Layer) {
	t.Helper()
	s := studioimage.NewStack()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	l, err := s.Add(img, &studioimage.Placement{X: 100, Y: 100, Width: 200, Height: 100})
	require.NoError(t, err)
	return s, l
}

func TestLayerDragCommitsOnce(t *testing.T) {
	s, l := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))
	commits := 0
	c.OnCommit(func() { commits++ })

	_, _ = c.Handle(down(150, 120))
	assert.Equal(t, ModeDragging, c.Mode())
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, l.ID, sel.ID)

	_, _ = c.Handle(move(160, 130))
	_, _ = c.Handle(move(250, 220))
	_, _ = c.Handle(up(250, 220))

	assert.Equal(t, 200.0, l.X, "grab offset is preserved")
	assert.Equal(t, 200.0, l.Y)
	assert.Equal(t, 1, commits)
}

func TestLayerClickOnEmptySpaceClearsSelection(t *testing.T) {
	s, _ := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))

	_, _ = c.Handle(down(150, 120))
	_, _ = c.Handle(up(150, 120))
	_, ok := s.Selected()
	require.True(t, ok)

	_, _ = c.Handle(down(900, 900))
	_, ok = s.Selected()
	assert.False(t, ok)
	assert.Empty(t, c.Handles())
}

func TestLayerResizeBakesScale(t *testing.T) {
	s, l := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))
	commits := 0
	c.OnCommit(func() { commits++ })

	_, _ = c.Handle(down(150, 120))
	_, _ = c.Handle(up(150, 120))

	// Bottom-right corner is at (300, 200); pivot is the top-left (100, 100).
	_, _ = c.Handle(down(300, 200))
	require.Equal(t, ModeTransforming, c.Mode())
	_, _ = c.Handle(move(500, 250))

	preview, ok := c.Preview()
	require.True(t, ok)
	assert.InDelta(t, 400, preview.Width, 1e-6)
	assert.Equal(t, 200.0, l.Width, "stack untouched while transforming")

	_, _ = c.Handle(up(500, 250))
	assert.InDelta(t, 400, l.Width, 1e-6)
	assert.InDelta(t, 150, l.Height, 1e-6)
	assert.InDelta(t, 100, l.X, 1e-6)
	assert.InDelta(t, 100, l.Y, 1e-6)
	assert.InDelta(t, 0, l.Rotation, 1e-6)
	assert.Equal(t, geometry.Identity(), c.LiveTransform(), "live transform reset after bake")
	assert.Equal(t, 1, commits)
}

func TestLayerResizeRespectsMinimumSize(t *testing.T) {
	s, l := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))

	_, _ = c.Handle(down(150, 120))
	_, _ = c.Handle(up(150, 120))
	_, _ = c.Handle(down(300, 200))
	_, _ = c.Handle(move(100.5, 100.5))
	_, _ = c.Handle(up(100.5, 100.5))

	assert.Equal(t, studioimage.MinLayerSize, l.Width)
	assert.Equal(t, studioimage.MinLayerSize, l.Height)
}

func TestLayerRotateHandle(t *testing.T) {
	s, l := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))

	_, _ = c.Handle(down(150, 120))
	_, _ = c.Handle(up(150, 120))

	var rotate Handle
	for _, h := range c.Handles() {
		if h.Kind == HandleRotate {
			rotate = h
		}
	}
	require.Equal(t, HandleRotate, rotate.Kind)
	assert.InDelta(t, 200, rotate.Center.X, 1e-9)
	assert.InDelta(t, 72, rotate.Center.Y, 1e-9)

	// Centre is (200, 150); move the handle from straight up to straight right.
	_, _ = c.Handle(down(rotate.Center.X, rotate.Center.Y))
	assert.Equal(t, CursorRotate, c.Cursor())
	_, _ = c.Handle(move(300, 150))
	_, _ = c.Handle(up(300, 150))

	assert.InDelta(t, 90, l.Rotation, 1e-6)
	assert.InDelta(t, 200, l.Width, 1e-6)
	assert.InDelta(t, 100, l.Height, 1e-6)
	assert.InDelta(t, 200, l.Center().X, 1e-6)
	assert.InDelta(t, 150, l.Center().Y, 1e-6)
}

func TestLayerLeaveDiscardsTransform(t *testing.T) {
	s, l := layerStack(t)
	c := NewLayerController(s, geometry.NewSize(1000, 1000))
	commits := 0
	c.OnCommit(func() { commits++ })

	_, _ = c.Handle(down(150, 120))
	_, _ = c.Handle(up(150, 120))
	commits = 0

	_, _ = c.Handle(down(300, 200))
	_, _ = c.Handle(move(600, 400))
	_, _ = c.Handle(PointerEvent{Kind: PointerLeave})

	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, 200.0, l.Width)
	assert.Equal(t, 0, commits)
}
