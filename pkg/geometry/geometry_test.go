package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectContainsInclusive(t *testing.T) {
	r := NewRect(10, 20, 100, 50)

	tests := []struct {
		name string
		p    Point2D
		want bool
	}{
		{"inside", NewPoint2D(50, 40), true},
		{"top-left corner", NewPoint2D(10, 20), true},
		{"bottom-right corner", NewPoint2D(110, 70), true},
		{"left of rect", NewPoint2D(9.999, 40), false},
		{"below rect", NewPoint2D(50, 70.01), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
			assert.Equal(t, tt.want, PointInRect(tt.p, r))
		})
	}
}

func TestDegenerateRectNeverHits(t *testing.T) {
	var zero Rect
	assert.True(t, zero.Contains(Point2D{}), "inclusive containment matches the origin")
	assert.False(t, zero.Hit(Point2D{}), "hit-testing rejects zero-area rects")
	assert.True(t, NewRect(0, 0, 10, 10).Hit(NewPoint2D(5, 5)))
}

func TestViewportToCanvas(t *testing.T) {
	vp := Viewport{
		Origin:  NewPoint2D(10, 20),
		Display: NewSize(500, 400),
		Native:  NewSize(1000, 800),
	}

	p, ok := vp.ToCanvas(NewPoint2D(260, 220))
	require.True(t, ok)
	assert.InDelta(t, 500, p.X, 1e-9)
	assert.InDelta(t, 400, p.Y, 1e-9)

	back, ok := vp.ToClient(p)
	require.True(t, ok)
	assert.InDelta(t, 260, back.X, 1e-9)
	assert.InDelta(t, 220, back.Y, 1e-9)
}

func TestViewportZeroDisplayIsNoMatch(t *testing.T) {
	vp := Viewport{Display: NewSize(0, 300), Native: NewSize(100, 100)}
	_, ok := ToCanvasCoordinates(NewPoint2D(5, 5), vp)
	assert.False(t, ok)

	vp = Viewport{Display: NewSize(300, 0), Native: NewSize(100, 100)}
	_, ok = vp.ToCanvas(NewPoint2D(5, 5))
	assert.False(t, ok)
}

func TestFitViewportLetterboxes(t *testing.T) {
	vp := FitViewport(NewSize(2000, 1000), NewSize(800, 800))
	assert.InDelta(t, 800, vp.Display.Width, 1e-9)
	assert.InDelta(t, 400, vp.Display.Height, 1e-9)
	assert.InDelta(t, 200, vp.Origin.Y, 1e-9)

	p, ok := vp.ToCanvas(NewPoint2D(400, 400))
	require.True(t, ok)
	assert.InDelta(t, 1000, p.X, 1e-9)
	assert.InDelta(t, 500, p.Y, 1e-9)
}

func TestPercentHelpers(t *testing.T) {
	assert.InDelta(t, 500, PercentToPixel(50, 1000), 1e-9)
	assert.InDelta(t, 25, PixelToPercent(250, 1000), 1e-9)
	assert.Zero(t, PixelToPercent(10, 0))
	assert.Equal(t, 100.0, ClampPercent(120))
	assert.Equal(t, 0.0, ClampPercent(-3))
}

func TestAffineInverseRoundTrip(t *testing.T) {
	tr := About(RotationDegrees(30), NewPoint2D(50, 50)).Compose(Scale(2, 3))
	inv, ok := tr.Inverse()
	require.True(t, ok)

	p := NewPoint2D(12, -7)
	got := inv.Apply(tr.Apply(p))
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name     string
		sx, sy   float64
		rotation float64
	}{
		{"identity", 1, 1, 0},
		{"uniform scale", 2, 2, 0},
		{"non-uniform rotated", 1.5, 0.5, 30},
		{"negative rotation", 3, 2, -75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := RotationDegrees(tt.rotation).Compose(Scale(tt.sx, tt.sy))
			sx, sy, rot := Decompose(tr)
			assert.InDelta(t, tt.sx, sx, 1e-6)
			assert.InDelta(t, tt.sy, sy, 1e-6)
			assert.InDelta(t, tt.rotation, rot, 1e-6)
		})
	}
}

func TestBoundingBox(t *testing.T) {
	box := BoundingBox([]Point2D{{X: 3, Y: 9}, {X: -1, Y: 4}, {X: 7, Y: 5}})
	assert.Equal(t, NewRect(-1, 4, 8, 5), box)
	assert.Equal(t, Rect{}, BoundingBox(nil))
	assert.False(t, math.IsNaN(box.Center().X))
}

func TestComposeAppliesOtherFirst(t *testing.T) {
	p := Translation(10, 0).Compose(Scale(2, 2)).Apply(NewPoint2D(1, 1))
	assert.Equal(t, NewPoint2D(12, 2), p)

	p = Scale(2, 2).Compose(Translation(10, 0)).Apply(NewPoint2D(1, 1))
	assert.Equal(t, NewPoint2D(22, 2), p)
}
