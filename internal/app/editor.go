package app

import (
	"context"
	goimage "image"
	"path/filepath"

	"product-studio/internal/edit"
	"product-studio/internal/library"
)

// LoadProductImage opens path as a new masked-edit document.
func (s *State) LoadProductImage(path string) error {
	img, err := s.LoadImage(path)
	if err != nil {
		return err
	}
	return s.OpenProductImage(img, path)
}

// OpenProductImage starts a new masked-edit document from a decoded image.
func (s *State) OpenProductImage(img goimage.Image, name string) error {
	sess, err := edit.NewSession(img, edit.Options{
		Refiner:     s.refiner(),
		BrushRadius: s.cfg.BrushRadius,
		Logger:      s.logger,
	})
	if err != nil {
		return s.fail(EventError, "open image", err)
	}

	s.mu.Lock()
	s.editSession = sess
	s.productPath = name
	s.mu.Unlock()

	s.logger.Info("product image loaded", "name", name,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	s.Emit(EventImageLoaded, name)
	s.Emit(EventHistoryChanged, nil)
	return nil
}

// EditSession returns the open document, or nil.
func (s *State) EditSession() *edit.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editSession
}

// ApplyEdit sends the painted mask and prompt to the AI service. It blocks
// until the call finishes; the UI runs it on a worker goroutine.
func (s *State) ApplyEdit(ctx context.Context, prompt string) (*edit.EditLayer, error) {
	sess := s.EditSession()
	if sess == nil {
		return nil, ErrNoDocument
	}
	ai, err := s.beginAI()
	if err != nil {
		return nil, s.fail(EventEditFailed, "edit", err)
	}
	defer s.endAI()

	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	layer, err := sess.Apply(ctx, ai, prompt)
	if err != nil {
		return nil, s.fail(EventEditFailed, "edit", err)
	}
	s.Emit(EventEditApplied, layer)
	s.Emit(EventHistoryChanged, nil)
	return layer, nil
}

// GenerateVariations asks for n new versions of the current composite.
// Completed results are returned even when the batch is cancelled.
func (s *State) GenerateVariations(ctx context.Context, n int, prompt string) ([]goimage.Image, error) {
	sess := s.EditSession()
	if sess == nil {
		return nil, ErrNoDocument
	}
	ai, err := s.beginAI()
	if err != nil {
		return nil, s.fail(EventError, "variations", err)
	}
	defer s.endAI()

	batch := edit.NewBatch(s.cfg.BatchInterval, s.logger)
	s.mu.Lock()
	s.batch = batch
	s.mu.Unlock()

	source := sess.Composite()
	results, err := batch.Run(ctx, n, func(ctx context.Context, i int) (goimage.Image, error) {
		callCtx, cancel := s.requestContext(ctx)
		defer cancel()
		return ai.Generate(callCtx, source, prompt)
	})
	if err != nil {
		s.Emit(EventError, err)
	}
	return results, err
}

// CancelBatch stops a running variation batch before its next call.
func (s *State) CancelBatch() {
	s.mu.RLock()
	batch := s.batch
	s.mu.RUnlock()
	if batch != nil {
		batch.Cancel()
	}
}

// UndoEdit steps the edit stack back.
func (s *State) UndoEdit() bool {
	sess := s.EditSession()
	if sess == nil || !sess.Undo() {
		return false
	}
	s.Emit(EventHistoryChanged, nil)
	return true
}

// RedoEdit steps the edit stack forward.
func (s *State) RedoEdit() bool {
	sess := s.EditSession()
	if sess == nil || !sess.Redo() {
		return false
	}
	s.Emit(EventHistoryChanged, nil)
	return true
}

// SaveEdit stores the flattened document in the library.
func (s *State) SaveEdit(ctx context.Context) (string, error) {
	sess := s.EditSession()
	if sess == nil {
		return "", ErrNoDocument
	}
	prompt := ""
	if layers := sess.Layers(); len(layers) > 0 {
		prompt = layers[len(layers)-1].Params.UserPrompt
	}
	s.mu.RLock()
	name := filepath.Base(s.productPath)
	s.mu.RUnlock()
	return s.SaveImage(ctx, sess.Finish(), library.Meta{Kind: library.KindEdit, Name: name, Prompt: prompt})
}

// SaveVariation stores one result of GenerateVariations.
func (s *State) SaveVariation(ctx context.Context, img goimage.Image, prompt string) (string, error) {
	return s.SaveImage(ctx, img, library.Meta{Kind: library.KindVariation, Prompt: prompt})
}
