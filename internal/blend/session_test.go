package blend

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	studioimage "product-studio/internal/image"
	"product-studio/internal/interact"
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

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	data, err := studioimage.EncodePNG(solid(w, h, color.NRGBA{B: 255, A: 255}))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type fakeGenerator struct {
	source image.Image
	prompt string
	err    error
}

func (g *fakeGenerator) Generate(_ context.Context, source image.Image, prompt string) (image.Image, error) {
	g.source, g.prompt = source, prompt
	if g.err != nil {
		return nil, g.err
	}
	return solid(8, 8, color.Black), nil
}

func newSession() *Session {
	return NewSession(Options{Stage: studioimage.StageSpec{Width: 400, Height: 300, Background: color.White}})
}

func TestAddImagesNamesAndCascades(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "shoe.png", 100, 50),
		writePNG(t, dir, "box.png", 800, 300),
	}
	s := newSession()

	added, err := s.AddImages(context.Background(), studioimage.NewLoader(studioimage.LoaderOptions{}), paths)
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.Equal(t, "shoe", added[0].Name)
	assert.Equal(t, 0.0, added[0].X)
	assert.Equal(t, 100.0, added[0].Width)

	assert.Equal(t, "box", added[1].Name)
	assert.Equal(t, 20.0, added[1].X)
	assert.InDelta(t, 400.0, added[1].Width, 1e-9, "scaled to fit the stage")
	assert.InDelta(t, 150.0, added[1].Height, 1e-9)

	assert.True(t, s.CanUndo())
	assert.True(t, s.Undo())
	assert.Equal(t, 0, s.Stack().Len(), "one history entry for the whole batch")
}

func TestAddImagesAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "ok.png", 10, 10)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))

	s := newSession()
	_, err := s.AddImages(context.Background(), studioimage.NewLoader(studioimage.LoaderOptions{}), []string{good, bad})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Stack().Len())
	assert.False(t, s.CanUndo())
}

func TestUpdateUndoRedo(t *testing.T) {
	s := newSession()
	l, err := s.AddImage(solid(50, 50, color.White), "a")
	require.NoError(t, err)

	require.NoError(t, s.Update(l.ID, studioimage.Changes{X: studioimage.Ptr(120.0)}))
	got, _ := s.Stack().Get(l.ID)
	assert.Equal(t, 120.0, got.X)

	require.True(t, s.Undo())
	got, _ = s.Stack().Get(l.ID)
	assert.Equal(t, 0.0, got.X)

	require.True(t, s.Redo())
	got, _ = s.Stack().Get(l.ID)
	assert.Equal(t, 120.0, got.X)

	assert.ErrorIs(t, s.Remove("missing"), studioimage.ErrLayerNotFound)
}

func TestControllerGestureCommitsHistory(t *testing.T) {
	s := newSession()
	l, err := s.AddImage(solid(40, 40, color.White), "a")
	require.NoError(t, err)
	changes := 0
	s.OnChange(func() { changes++ })

	ctrl := s.Controller()
	assert.Same(t, ctrl, s.Controller())

	ctrl.Handle(interact.PointerEvent{Kind: interact.PointerDown, Client: geometry.NewPoint2D(10, 10)})
	ctrl.Handle(interact.PointerEvent{Kind: interact.PointerMove, Client: geometry.NewPoint2D(110, 60)})
	ctrl.Handle(interact.PointerEvent{Kind: interact.PointerUp, Client: geometry.NewPoint2D(110, 60)})

	got, _ := s.Stack().Get(l.ID)
	assert.Equal(t, 100.0, got.X)
	assert.Equal(t, 50.0, got.Y)
	assert.Equal(t, 1, changes)

	require.True(t, s.Undo())
	got, _ = s.Stack().Get(l.ID)
	assert.Equal(t, 0.0, got.X)
}

func TestExportAndCompose(t *testing.T) {
	s := newSession()
	_, err := s.AddImage(solid(40, 40, color.NRGBA{R: 255, A: 255}), "red")
	require.NoError(t, err)

	bundle, err := s.Export(200, 150)
	require.NoError(t, err)
	assert.Equal(t, 200, bundle.Image().Bounds().Dx())
	require.Len(t, bundle.Layers(), 1)
	assert.Equal(t, 20.0, bundle.Layers()[0].Width)

	gen := &fakeGenerator{}
	out, err := s.Compose(context.Background(), gen, "put it on a beach")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Equal(t, 400, gen.source.Bounds().Dx())
	assert.Contains(t, gen.prompt, "put it on a beach")
	assert.Contains(t, gen.prompt, "1. red at (0, 0) size 40x40")
}

func TestComposeFailureLeavesSession(t *testing.T) {
	s := newSession()
	gen := &fakeGenerator{err: errors.New("quota")}

	_, err := s.Compose(context.Background(), gen, "anything")
	assert.ErrorIs(t, err, ErrNothingToCompose)

	_, err = s.AddImage(solid(10, 10, color.White), "a")
	require.NoError(t, err)
	_, err = s.Compose(context.Background(), gen, " ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = s.Compose(context.Background(), gen, "anything")
	assert.Error(t, err)
	assert.Equal(t, 1, s.Stack().Len())
	assert.False(t, s.CanRedo())
}

func TestRenderStage(t *testing.T) {
	s := newSession()
	_, err := s.AddImage(solid(40, 40, color.NRGBA{R: 255, A: 255}), "red")
	require.NoError(t, err)

	img := s.Render()
	require.NotNil(t, img)
	assert.Equal(t, s.Stage().Width, img.Bounds().Dx())

	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0xFFFF, 0, 0}, []uint32{r, g, b})
	r, g, b, _ = img.At(s.Stage().Width-1, s.Stage().Height-1).RGBA()
	assert.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b}, "stage background")
}
