// Package blend arranges several images as free-transform layers on a stage
// and sends the flattened arrangement to the AI service for compositing.
package blend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"product-studio/internal/history"
	studioimage "product-studio/internal/image"
	"product-studio/internal/interact"
	"product-studio/pkg/geometry"
)

// ErrNothingToCompose is returned when no layer is visible.
var ErrNothingToCompose = errors.New("no visible layers to compose")

// ErrEmptyPrompt is returned when Compose is called without a prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Generator produces a new image from a source image and a prompt.
type Generator interface {
	Generate(ctx context.Context, source image.Image, prompt string) (image.Image, error)
}

// Options configures a Session.
type Options struct {
	Stage        studioimage.StageSpec
	HistoryLimit int
	Logger       *slog.Logger
}

// Session is the blender document: a layer stack on a stage with undo/redo.
type Session struct {
	stack   *studioimage.Stack
	history *history.History[[]studioimage.Layer]
	stage   studioimage.StageSpec
	ctrl    *interact.LayerController
	logger  *slog.Logger

	onChange func()
}

// NewSession creates an empty blender.
func NewSession(opts Options) *Session {
	if opts.Stage.Width <= 0 || opts.Stage.Height <= 0 {
		opts.Stage = studioimage.DefaultStage()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		stack:  studioimage.NewStack(),
		stage:  opts.Stage,
		logger: opts.Logger,
	}
	s.history = history.New(s.stack.Snapshot(), history.WithLimit(opts.HistoryLimit))
	return s
}

// Stage returns the working surface.
func (s *Session) Stage() studioimage.StageSpec {
	return s.stage
}

// Stack exposes the layer stack for drawing. Mutations should go through the
// session so they are recorded.
func (s *Session) Stack() *studioimage.Stack {
	return s.stack
}

// OnChange registers a callback fired after any change to the stack.
func (s *Session) OnChange(fn func()) {
	s.onChange = fn
}

// AddImages decodes paths concurrently and adds them as layers named after
// their files. Nothing is added when any file fails to load.
func (s *Session) AddImages(ctx context.Context, loader *studioimage.Loader, paths []string) ([]*studioimage.Layer, error) {
	images, err := loader.LoadAll(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}

	added := make([]*studioimage.Layer, 0, len(images))
	for i, img := range images {
		l, err := s.add(img, layerName(paths[i]))
		if err != nil {
			return nil, err
		}
		added = append(added, l)
	}
	s.Commit()
	s.logger.Info("images added", "count", len(added), "layers", s.stack.Len())
	return added, nil
}

// AddImage adds one image as a new layer.
func (s *Session) AddImage(img image.Image, name string) (*studioimage.Layer, error) {
	l, err := s.add(img, name)
	if err != nil {
		return nil, err
	}
	s.Commit()
	return l, nil
}

// add places img at the cascade position, scaled down to fit the stage.
func (s *Session) add(img image.Image, name string) (*studioimage.Layer, error) {
	if img == nil {
		return nil, studioimage.ErrNoImage
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if fit := fitScale(w, h, float64(s.stage.Width), float64(s.stage.Height)); fit < 1 {
		w, h = w*fit, h*fit
	}
	offset := float64(s.stack.Len() * 20)
	l, err := s.stack.Add(img, &studioimage.Placement{X: offset, Y: offset, Width: w, Height: h})
	if err != nil {
		return nil, err
	}
	l.Name = name
	return l, nil
}

func fitScale(w, h, maxW, maxH float64) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return min(maxW/w, maxH/h)
}

func layerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Update applies changes to one layer and records them.
func (s *Session) Update(id string, c studioimage.Changes) error {
	if err := s.stack.Update(id, c); err != nil {
		return err
	}
	s.Commit()
	return nil
}

// Remove deletes a layer and records it.
func (s *Session) Remove(id string) error {
	if err := s.stack.Remove(id); err != nil {
		return err
	}
	s.Commit()
	return nil
}

// Reorder moves a layer one step and records it.
func (s *Session) Reorder(id string, dir studioimage.Direction) error {
	if err := s.stack.Reorder(id, dir); err != nil {
		return err
	}
	s.Commit()
	return nil
}

// Commit records the current stack as a history entry.
func (s *Session) Commit() {
	s.history.Commit(s.stack.Snapshot())
	s.changed()
}

// Undo restores the previous arrangement.
func (s *Session) Undo() bool {
	snap, ok := s.history.Undo()
	if ok {
		s.stack.Restore(snap)
		s.changed()
	}
	return ok
}

// Redo restores the next arrangement.
func (s *Session) Redo() bool {
	snap, ok := s.history.Redo()
	if ok {
		s.stack.Restore(snap)
		s.changed()
	}
	return ok
}

func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

// Controller returns the pointer controller for the stack. Completed
// gestures are committed to history.
func (s *Session) Controller() *interact.LayerController {
	if s.ctrl == nil {
		size := geometry.NewSize(float64(s.stage.Width), float64(s.stage.Height))
		s.ctrl = interact.NewLayerController(s.stack, size)
		s.ctrl.OnCommit(s.Commit)
	}
	return s.ctrl
}

// Export flattens the arrangement at the target size.
func (s *Session) Export(targetW, targetH int) (*studioimage.ExportBundle, error) {
	return studioimage.Export(s.stage, s.stack.SortedByZOrder(), targetW, targetH)
}

// Render draws the stage at its own size. A transform in progress is shown
// in place of the selected layer.
func (s *Session) Render() image.Image {
	layers := s.stack.SortedByZOrder()
	if s.ctrl != nil {
		if preview, ok := s.ctrl.Preview(); ok {
			for i, l := range layers {
				if l.ID == preview.ID {
					layers[i] = &preview
				}
			}
		}
	}
	bundle, err := studioimage.Export(s.stage, layers, s.stage.Width, s.stage.Height)
	if err != nil {
		return nil
	}
	return bundle.Image()
}

// Compose flattens the arrangement at stage size and asks gen to turn it into
// a single coherent image. The layout description is appended to prompt. The
// session is not modified.
func (s *Session) Compose(ctx context.Context, gen Generator, prompt string) (image.Image, error) {
	req, err := s.PrepareCompose(prompt)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, gen, req)
}

// ComposeRequest is a flattened snapshot of the arrangement ready to send.
type ComposeRequest struct {
	Image  image.Image
	Prompt string
	Layers int
}

// PrepareCompose flattens the arrangement at stage size and appends the layer
// record to prompt. The returned request shares nothing with the stack.
func (s *Session) PrepareCompose(prompt string) (ComposeRequest, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ComposeRequest{}, ErrEmptyPrompt
	}
	bundle, err := s.Export(s.stage.Width, s.stage.Height)
	if err != nil {
		return ComposeRequest{}, err
	}
	if len(bundle.Layers()) == 0 {
		return ComposeRequest{}, ErrNothingToCompose
	}
	return ComposeRequest{
		Image:  bundle.Image(),
		Prompt: prompt + "\n\n" + bundle.Describe(),
		Layers: len(bundle.Layers()),
	}, nil
}

// Submit sends a prepared request to gen. The session is not touched.
func (s *Session) Submit(ctx context.Context, gen Generator, req ComposeRequest) (image.Image, error) {
	s.logger.Info("composing blend", "layers", req.Layers)
	out, err := gen.Generate(ctx, req.Image, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("compose failed: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("compose failed: %w", studioimage.ErrNoImage)
	}
	return out, nil
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
