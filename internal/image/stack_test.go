package image

import (
	"image"
	"image/color"
	"math"
	"testing"

	"product-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestStackAddDefaults(t *testing.T) {
	s := NewStack()
	a, err := s.Add(solid(40, 30, color.White), nil)
	require.NoError(t, err)
	b, err := s.Add(solid(10, 10, color.Black), nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 40.0, a.Width)
	assert.Equal(t, 30.0, a.Height)
	assert.Equal(t, 1.0, a.Opacity)
	assert.True(t, a.Visible)
	assert.Equal(t, 0, a.ZOrder)
	assert.Equal(t, 1, b.ZOrder)
	assert.Equal(t, 20.0, b.X, "second default layer is cascaded")
	assert.Equal(t, 20.0, b.Y)

	_, err = s.Add(nil, nil)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestStackAddPlacement(t *testing.T) {
	s := NewStack()
	l, err := s.Add(solid(40, 30, color.White), &Placement{X: 5, Y: 6, Width: 80, Rotation: 15})
	require.NoError(t, err)
	assert.Equal(t, 5.0, l.X)
	assert.Equal(t, 6.0, l.Y)
	assert.Equal(t, 80.0, l.Width)
	assert.Equal(t, 30.0, l.Height, "zero height keeps native size")
	assert.Equal(t, 15.0, l.Rotation)
}

func TestStackUpdateClampsMinimumSize(t *testing.T) {
	s := NewStack()
	l, err := s.Add(solid(100, 100, color.White), nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(l.ID, Changes{Width: Ptr(2.0)}))
	assert.Equal(t, 5.0, l.Width)
	assert.Equal(t, 100.0, l.Height)

	require.NoError(t, s.Update(l.ID, Changes{Height: Ptr(-40.0), Opacity: Ptr(1.7)}))
	assert.Equal(t, 5.0, l.Height)
	assert.Equal(t, 1.0, l.Opacity)
}

func TestStackUpdateRejectsBadInput(t *testing.T) {
	s := NewStack()
	l, err := s.Add(solid(10, 10, color.White), nil)
	require.NoError(t, err)

	err = s.Update("missing", Changes{X: Ptr(1.0)})
	assert.ErrorIs(t, err, ErrLayerNotFound)

	err = s.Update(l.ID, Changes{X: Ptr(3.0), Y: Ptr(math.NaN())})
	assert.ErrorIs(t, err, ErrInvalidChange)
	assert.Equal(t, 0.0, l.X, "nothing applied from an invalid change set")
}

func TestStackReorder(t *testing.T) {
	s := NewStack()
	a, _ := s.Add(solid(10, 10, color.White), nil)
	b, _ := s.Add(solid(10, 10, color.White), nil)
	c, _ := s.Add(solid(10, 10, color.White), nil)

	require.NoError(t, s.Reorder(a.ID, Up))
	assert.Equal(t, 1, a.ZOrder)
	assert.Equal(t, 0, b.ZOrder)

	require.NoError(t, s.Reorder(c.ID, Up))
	assert.Equal(t, 2, c.ZOrder, "top layer cannot move further up")

	require.NoError(t, s.Reorder(b.ID, Down))
	assert.Equal(t, 0, b.ZOrder)

	sorted := s.SortedByZOrder()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{b.ID, a.ID, c.ID}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	assert.ErrorIs(t, s.Reorder("nope", Down), ErrLayerNotFound)
}

func TestStackRemoveClearsSelection(t *testing.T) {
	s := NewStack()
	a, _ := s.Add(solid(10, 10, color.White), nil)
	require.NoError(t, s.Select(a.ID))

	require.NoError(t, s.Remove(a.ID))
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Remove(a.ID), ErrLayerNotFound)
}

func TestLayerHitTest(t *testing.T) {
	l := NewLayer(solid(50, 30, color.White))
	l.X, l.Y = 10, 10

	assert.True(t, l.HitTest(geometry.NewPoint2D(10, 10)), "edges are inclusive")
	assert.True(t, l.HitTest(geometry.NewPoint2D(60, 40)))
	assert.False(t, l.HitTest(geometry.NewPoint2D(61, 40)))
	assert.False(t, l.HitTest(geometry.NewPoint2D(22, 2)))

	l.Rotation = 90
	assert.True(t, l.HitTest(geometry.NewPoint2D(22, 2)), "rotated box reaches above the original")
	assert.False(t, l.HitTest(geometry.NewPoint2D(12, 25)))

	b := l.Bounds()
	assert.InDelta(t, 20, b.X, 1e-9)
	assert.InDelta(t, 0, b.Y, 1e-9)
	assert.InDelta(t, 30, b.Width, 1e-9)
	assert.InDelta(t, 50, b.Height, 1e-9)
}

func TestStackTopmostAt(t *testing.T) {
	s := NewStack()
	a, _ := s.Add(solid(100, 100, color.White), &Placement{})
	b, _ := s.Add(solid(50, 50, color.White), &Placement{})

	hit, ok := s.TopmostAt(geometry.NewPoint2D(10, 10))
	require.True(t, ok)
	assert.Equal(t, b.ID, hit.ID)

	require.NoError(t, s.Update(b.ID, Changes{Visible: Ptr(false)}))
	hit, ok = s.TopmostAt(geometry.NewPoint2D(10, 10))
	require.True(t, ok)
	assert.Equal(t, a.ID, hit.ID)

	_, ok = s.TopmostAt(geometry.NewPoint2D(500, 500))
	assert.False(t, ok)
}

func TestStackSnapshotRestore(t *testing.T) {
	s := NewStack()
	a, _ := s.Add(solid(10, 10, color.White), nil)
	snap := s.Snapshot()

	require.NoError(t, s.Update(a.ID, Changes{X: Ptr(99.0)}))
	b, _ := s.Add(solid(10, 10, color.White), nil)
	require.NoError(t, s.Select(b.ID))

	s.Restore(snap)
	assert.Equal(t, 1, s.Len())
	restored, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, 0.0, restored.X)
	_, ok = s.Selected()
	assert.False(t, ok, "selection of a vanished layer is dropped")
}
