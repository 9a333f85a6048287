package edit

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"product-studio/internal/mask"
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

// recorder is a fake Editor that remembers the last request.
type recorder struct {
	calls  int
	last   Request
	result image.Image
	err    error
}

func (r *recorder) Edit(_ context.Context, req Request) (image.Image, error) {
	r.calls++
	r.last = req
	return r.result, r.err
}

type reasonErr struct{ reason string }

func (e reasonErr) Error() string { return "status 400: " + e.reason }
func (e reasonErr) Reason() string { return e.reason }

func paintSquare(s *Session) {
	p := s.Painter()
	p.BeginStroke(geometry.NewPoint2D(470, 470))
	p.ContinueStroke(geometry.NewPoint2D(550, 470))
	p.ContinueStroke(geometry.NewPoint2D(550, 550))
	p.ContinueStroke(geometry.NewPoint2D(470, 550))
	p.EndStroke()
}

func TestApplyMakeThisBlack(t *testing.T) {
	base := solid(1024, 1024, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	s, err := NewSession(base, Options{})
	require.NoError(t, err)
	paintSquare(s)

	fake := &recorder{result: solid(1024, 1024, color.NRGBA{A: 255})}
	layer, err := s.Apply(context.Background(), fake, "make this black")
	require.NoError(t, err)
	require.NotNil(t, layer)

	assert.Equal(t, 1, fake.calls)
	assert.Same(t, base, fake.last.Base.(*image.NRGBA))
	assert.Equal(t, "make this black", fake.last.Prompt)
	assert.Equal(t, EditRecolor, fake.last.EditType)
	assert.Contains(t, fake.last.Instruction, "make this black")
	assert.False(t, mask.IsEmpty(fake.last.Mask))
	assert.Equal(t, image.Rect(0, 0, 1024, 1024), fake.last.Mask.Bounds())

	layers := s.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, "make this black", layers[0].Params.UserPrompt)
	assert.Equal(t, 1.0, layers[0].Opacity)
	assert.True(t, layers[0].Visible)
	assert.Equal(t, 2, s.HistoryLen())
	assert.Equal(t, 0, s.Painter().StrokeCount())

	out := s.Finish()
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(10, 10))
}

func TestApplyFailureLeavesSessionUnchanged(t *testing.T) {
	s, err := NewSession(solid(64, 64, color.White), Options{})
	require.NoError(t, err)
	paintSquare(s)
	s.Painter().BeginStroke(geometry.NewPoint2D(30, 30))
	s.Painter().EndStroke()

	fake := &recorder{err: reasonErr{reason: "blocked by safety filter"}}
	layer, err := s.Apply(context.Background(), fake, "remove the logo")
	assert.Nil(t, layer)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "blocked by safety filter", svcErr.Reason)
	assert.Empty(t, s.Layers())
	assert.Equal(t, 1, s.HistoryLen())
	assert.NotZero(t, s.Painter().StrokeCount(), "mask survives a failed edit")
}

func TestApplyValidatesBeforeCalling(t *testing.T) {
	s, err := NewSession(solid(64, 64, color.White), Options{})
	require.NoError(t, err)
	fake := &recorder{result: solid(64, 64, color.Black)}

	_, err = s.Apply(context.Background(), fake, "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = s.Apply(context.Background(), fake, "add a hat")
	assert.ErrorIs(t, err, ErrEmptyMask)
	assert.Zero(t, fake.calls)
}

func TestSecondEditSeesComposite(t *testing.T) {
	base := solid(32, 32, color.White)
	s, err := NewSession(base, Options{})
	require.NoError(t, err)

	fake := &recorder{result: solid(32, 32, color.NRGBA{R: 255, A: 255})}
	s.Painter().BeginStroke(geometry.NewPoint2D(16, 16))
	s.Painter().EndStroke()
	_, err = s.Apply(context.Background(), fake, "paint it red")
	require.NoError(t, err)

	s.Painter().BeginStroke(geometry.NewPoint2D(16, 16))
	s.Painter().EndStroke()
	_, err = s.Apply(context.Background(), fake, "enhance")
	require.NoError(t, err)

	composite, ok := fake.last.Base.(*image.NRGBA)
	require.True(t, ok)
	assert.NotSame(t, base, composite)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, composite.NRGBAAt(0, 0))
}

func TestUndoRedoLayerChanges(t *testing.T) {
	s, err := NewSession(solid(32, 32, color.White), Options{})
	require.NoError(t, err)
	fake := &recorder{result: solid(32, 32, color.Black)}
	s.Painter().BeginStroke(geometry.NewPoint2D(5, 5))
	s.Painter().EndStroke()
	layer, err := s.Apply(context.Background(), fake, "make it black")
	require.NoError(t, err)

	require.NoError(t, s.SetOpacity(layer.ID, 1.7))
	assert.Equal(t, 1.0, s.Layers()[0].Opacity)
	require.NoError(t, s.SetOpacity(layer.ID, 0.5))
	require.NoError(t, s.SetVisible(layer.ID, false))
	assert.False(t, s.Layers()[0].Visible)

	assert.True(t, s.Undo())
	assert.True(t, s.Layers()[0].Visible)
	assert.Equal(t, 0.5, s.Layers()[0].Opacity)

	require.NoError(t, s.Remove(layer.ID))
	assert.Empty(t, s.Layers())
	assert.False(t, s.CanRedo())

	assert.True(t, s.Undo())
	assert.Len(t, s.Layers(), 1)
	assert.True(t, s.Redo())
	assert.Empty(t, s.Layers())

	assert.ErrorIs(t, s.Remove("missing"), ErrLayerNotFound)
}

func TestNewSessionRequiresBase(t *testing.T) {
	_, err := NewSession(nil, Options{})
	assert.ErrorIs(t, err, ErrNoBase)
}

func TestClassify(t *testing.T) {
	cases := map[string]EditType{
		"make this black":            EditRecolor,
		"Remove the scratch":         EditRemove,
		"replace with a wooden desk": EditReplace,
		"blur the background":        EditBackground,
		"add a shadow":               EditAdd,
		"sharpen":                    EditEnhance,
		"update the address label":   EditGeneral,
	}
	for prompt, want := range cases {
		assert.Equal(t, want, Classify(prompt), prompt)
	}
}

func TestBatchRunsAll(t *testing.T) {
	b := NewBatch(0, nil)
	out, err := b.Run(context.Background(), 3, func(_ context.Context, i int) (image.Image, error) {
		return solid(1, 1, color.Gray{Y: uint8(i)}), nil
	})
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestBatchCancelKeepsCompleted(t *testing.T) {
	b := NewBatch(0, nil)
	var calls atomic.Int32
	out, err := b.Run(context.Background(), 5, func(_ context.Context, i int) (image.Image, error) {
		if calls.Add(1) == 2 {
			b.Cancel()
		}
		return solid(1, 1, color.White), nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Len(t, out, 2, "the in-flight call completes")
	assert.EqualValues(t, 2, calls.Load())
}

func TestBatchStopsOnFailure(t *testing.T) {
	b := NewBatch(time.Millisecond, nil)
	out, err := b.Run(context.Background(), 3, func(_ context.Context, i int) (image.Image, error) {
		if i == 1 {
			return nil, errors.New("quota exceeded")
		}
		return solid(1, 1, color.White), nil
	})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "quota exceeded", svcErr.Reason)
	assert.Len(t, out, 1)
}

func TestBatchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := NewBatch(0, nil).Run(ctx, 2, func(context.Context, int) (image.Image, error) {
		t.Fatal("should not be called")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, out)
}

func TestLayerChangesWhileApplyIsWaiting(t *testing.T) {
	s, err := NewSession(solid(64, 64, color.White), Options{})
	require.NoError(t, err)
	s.Painter().BeginStroke(geometry.NewPoint2D(20, 20))
	s.Painter().EndStroke()
	first, err := s.Apply(context.Background(), &recorder{result: solid(64, 64, color.Black)}, "make it black")
	require.NoError(t, err)

	s.Painter().BeginStroke(geometry.NewPoint2D(40, 40))
	s.Painter().EndStroke()
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := EditorFunc(func(ctx context.Context, req Request) (image.Image, error) {
		close(started)
		<-release
		return solid(64, 64, color.NRGBA{B: 255, A: 255}), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Apply(context.Background(), blocking, "make it blue")
		done <- err
	}()

	<-started
	require.NoError(t, s.SetOpacity(first.ID, 0.5))
	assert.NotNil(t, s.Composite())
	assert.Len(t, s.Layers(), 1)
	s.Painter().Overlay()
	close(release)
	require.NoError(t, <-done)

	layers := s.Layers()
	require.Len(t, layers, 2)
	assert.Equal(t, 0.5, layers[0].Opacity, "opacity change made during the call is kept")
	assert.Equal(t, "make it blue", layers[1].Params.UserPrompt)
	assert.Equal(t, 4, s.HistoryLen())
	assert.Equal(t, 0, s.Painter().StrokeCount())
}
