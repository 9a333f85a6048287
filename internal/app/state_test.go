package app

import (
	"context"
	"errors"
	goimage "image"
	"image/color"
	"sync"
	"testing"

	"product-studio/internal/blend"
	"product-studio/internal/config"
	"product-studio/internal/creative"
	"product-studio/internal/edit"
	"product-studio/internal/image"
	"product-studio/internal/library"
	"product-studio/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *goimage.NRGBA {
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

type fakeAI struct {
	mu       sync.Mutex
	edits    int
	generate int
	err      error
	block    chan struct{}
	genBlock chan struct{}
}

func (f *fakeAI) Edit(_ context.Context, req edit.Request) (goimage.Image, error) {
	f.mu.Lock()
	f.edits++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	b := req.Base.Bounds()
	return solid(b.Dx(), b.Dy(), color.Black), nil
}

func (f *fakeAI) Generate(_ context.Context, source goimage.Image, _ string) (goimage.Image, error) {
	f.mu.Lock()
	f.generate++
	f.mu.Unlock()
	if f.genBlock != nil {
		<-f.genBlock
	}
	if f.err != nil {
		return nil, f.err
	}
	return solid(4, 4, color.White), nil
}

func newTestState(t *testing.T, ai AI) *State {
	t.Helper()
	store, err := library.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewState(Options{
		Config: config.Config{GeminiAPIKey: "key", StageWidth: 200, StageHeight: 100},
		AI:     ai,
		Store:  store,
	})
}

func paint(s *State) {
	p := s.EditSession().Painter()
	p.BeginStroke(geometry.NewPoint2D(10, 10))
	p.EndStroke()
}

func TestApplyEditEmitsEvents(t *testing.T) {
	ai := &fakeAI{}
	s := newTestState(t, ai)

	var applied, history, busy int
	s.On(EventEditApplied, func(interface{}) { applied++ })
	s.On(EventHistoryChanged, func(interface{}) { history++ })
	s.On(EventBusy, func(interface{}) { busy++ })

	require.NoError(t, s.OpenProductImage(solid(64, 64, color.White), "shoe.png"))
	paint(s)

	layer, err := s.ApplyEdit(context.Background(), "make this black")
	require.NoError(t, err)
	assert.Equal(t, "make this black", layer.Params.UserPrompt)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 2, history)
	assert.Equal(t, 2, busy)
	assert.False(t, s.Busy())

	assert.True(t, s.UndoEdit())
	assert.Empty(t, s.EditSession().Layers())
	assert.True(t, s.RedoEdit())

	id, err := s.SaveEdit(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestApplyEditFailures(t *testing.T) {
	ai := &fakeAI{err: errors.New("upstream down")}
	s := newTestState(t, ai)

	_, err := s.ApplyEdit(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, s.OpenProductImage(solid(32, 32, color.White), "a.png"))
	paint(s)

	var failed []error
	s.On(EventEditFailed, func(d interface{}) { failed = append(failed, d.(error)) })

	_, err = s.ApplyEdit(context.Background(), "remove it")
	var svcErr *edit.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "upstream down", svcErr.Reason)
	require.Len(t, failed, 1)
	assert.Empty(t, s.EditSession().Layers())

	noKey := NewState(Options{AI: ai})
	require.NoError(t, noKey.OpenProductImage(solid(8, 8, color.White), "b.png"))
	_, err = noKey.ApplyEdit(context.Background(), "remove it")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestSecondRequestWhileBusy(t *testing.T) {
	ai := &fakeAI{block: make(chan struct{})}
	s := newTestState(t, ai)
	require.NoError(t, s.OpenProductImage(solid(32, 32, color.White), "a.png"))
	paint(s)

	started := make(chan struct{})
	s.On(EventBusy, func(d interface{}) {
		if d.(bool) {
			close(started)
		}
	})
	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyEdit(context.Background(), "make it red")
		done <- err
	}()
	<-started

	_, err := s.ComposeBlend(context.Background(), "merge")
	assert.ErrorIs(t, err, ErrBusy)

	close(ai.block)
	assert.NoError(t, <-done)
}

func TestGenerateVariations(t *testing.T) {
	ai := &fakeAI{}
	s := newTestState(t, ai)
	require.NoError(t, s.OpenProductImage(solid(16, 16, color.White), "a.png"))

	out, err := s.GenerateVariations(context.Background(), 3, "studio lighting")
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, ai.generate)

	s.CancelBatch()
}

func TestCreativeFlow(t *testing.T) {
	s := newTestState(t, &fakeAI{})
	assert.Nil(t, s.CreativeController())
	assert.ErrorIs(t, s.RenderCreative(), creative.ErrNoBackground)

	var renders int
	s.On(EventCreativeChanged, func(interface{}) { renders++ })

	require.NoError(t, s.SetCreativeBackground(solid(400, 300, color.White)))
	require.NotNil(t, s.CreativeController())
	res := s.CreativeResult()
	require.NotNil(t, res)
	assert.Equal(t, 400, res.Image.Bounds().Dx())

	require.NoError(t, s.ApplyCreativeTemplate("left-stack"))
	assert.Equal(t, creative.AlignLeft, s.CreativeState().HeadlineAlign)

	bad := s.CreativeState()
	bad.TextColor = "not-a-colour"
	assert.ErrorIs(t, s.UpdateCreative(bad), creative.ErrInvalidColor)
	assert.Equal(t, creative.AlignLeft, s.CreativeState().HeadlineAlign)

	require.NoError(t, s.SetCreativeLogo(solid(50, 50, color.Black)))
	assert.False(t, s.CreativeResult().Rects.Logo.Empty())
	assert.GreaterOrEqual(t, renders, 3)

	id, err := s.SaveCreative(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestFailedCreativeBackgroundKeepsPrevious(t *testing.T) {
	s := newTestState(t, &fakeAI{})
	require.NoError(t, s.SetCreativeBackground(solid(400, 300, color.White)))
	ctrl := s.CreativeController()

	var failures int
	s.On(EventError, func(interface{}) { failures++ })
	err := s.SetCreativeBackground(goimage.NewNRGBA(goimage.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, creative.ErrNoBackground)
	assert.Equal(t, 1, failures)

	assert.Same(t, ctrl, s.CreativeController())
	require.NoError(t, s.RenderCreative())
	assert.Equal(t, 400, s.CreativeResult().Image.Bounds().Dx(), "old background still renders")

	require.NoError(t, s.SetCreativeLogo(solid(40, 20, color.Black)))
	require.NoError(t, s.RenderCreative())
	assert.Equal(t, 400, s.CreativeResult().Image.Bounds().Dx())
	assert.False(t, s.CreativeResult().Rects.Logo.Empty())
}

func TestBlendExport(t *testing.T) {
	s := newTestState(t, &fakeAI{})
	var changed int
	s.On(EventLayersChanged, func(interface{}) { changed++ })

	_, err := s.BlendSession().AddImage(solid(20, 20, color.Black), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	bundle, err := s.ExportBlend(100, 50)
	require.NoError(t, err)
	assert.Equal(t, 100, bundle.Image().Bounds().Dx())

	out, err := s.ComposeBlend(context.Background(), "merge naturally")
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestStartComposeBlendSnapshotsArrangement(t *testing.T) {
	ai := &fakeAI{genBlock: make(chan struct{})}
	s := newTestState(t, ai)
	l, err := s.BlendSession().AddImage(solid(20, 20, color.Black), "a")
	require.NoError(t, err)

	type result struct {
		img  goimage.Image
		err  error
		busy bool
	}
	done := make(chan result, 1)
	require.NoError(t, s.StartComposeBlend(context.Background(), "merge", func(img goimage.Image, err error) {
		done <- result{img, err, s.Busy()}
	}))
	assert.True(t, s.Busy())

	// The stack stays editable on this goroutine while the call is out.
	opacity := 0.25
	require.NoError(t, s.BlendSession().Update(l.ID, image.Changes{Opacity: &opacity}))
	close(ai.genBlock)

	r := <-done
	require.NoError(t, r.err)
	assert.NotNil(t, r.img)
	assert.False(t, r.busy)

	err = s.StartComposeBlend(context.Background(), "", func(goimage.Image, error) {
		t.Error("done must not run when the request is rejected")
	})
	assert.ErrorIs(t, err, blend.ErrEmptyPrompt)
	assert.False(t, s.Busy())
}
