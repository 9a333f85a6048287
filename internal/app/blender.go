package app

import (
	"context"
	goimage "image"

	"product-studio/internal/blend"
	"product-studio/internal/image"
	"product-studio/internal/library"
)

// BlendSession returns the blender document.
func (s *State) BlendSession() *blend.Session {
	return s.blendSession
}

// AddBlendImages decodes paths concurrently and adds them as layers.
func (s *State) AddBlendImages(ctx context.Context, paths []string) error {
	if _, err := s.blendSession.AddImages(ctx, s.loader, paths); err != nil {
		return s.fail(EventError, "add images", err)
	}
	s.Emit(EventHistoryChanged, nil)
	return nil
}

// ExportBlend flattens the arrangement at the target size.
func (s *State) ExportBlend(targetW, targetH int) (*image.ExportBundle, error) {
	bundle, err := s.blendSession.Export(targetW, targetH)
	if err != nil {
		return nil, s.fail(EventError, "export", err)
	}
	return bundle, nil
}

// ComposeBlend asks the AI service to merge the arrangement into one image.
// The blender document is not modified.
func (s *State) ComposeBlend(ctx context.Context, prompt string) (goimage.Image, error) {
	ai, req, err := s.beginCompose(prompt)
	if err != nil {
		return nil, err
	}
	defer s.endAI()
	return s.submitCompose(ctx, ai, req)
}

// StartComposeBlend snapshots the arrangement on the calling goroutine and
// runs the service call in the background. done is called after the busy
// flag is released.
func (s *State) StartComposeBlend(ctx context.Context, prompt string, done func(goimage.Image, error)) error {
	ai, req, err := s.beginCompose(prompt)
	if err != nil {
		return err
	}
	go func() {
		out, err := s.submitCompose(ctx, ai, req)
		s.endAI()
		done(out, err)
	}()
	return nil
}

func (s *State) beginCompose(prompt string) (AI, blend.ComposeRequest, error) {
	ai, err := s.beginAI()
	if err != nil {
		return nil, blend.ComposeRequest{}, s.fail(EventError, "compose", err)
	}
	req, err := s.blendSession.PrepareCompose(prompt)
	if err != nil {
		s.endAI()
		return nil, req, s.fail(EventError, "compose", wrapOp("blend", err))
	}
	return ai, req, nil
}

func (s *State) submitCompose(ctx context.Context, ai AI, req blend.ComposeRequest) (goimage.Image, error) {
	ctx, cancel := s.requestContext(ctx)
	defer cancel()

	out, err := s.blendSession.Submit(ctx, ai, req)
	if err != nil {
		return nil, s.fail(EventError, "compose", wrapOp("blend", err))
	}
	return out, nil
}

// SaveBlend stores a composed or exported blend result.
func (s *State) SaveBlend(ctx context.Context, img goimage.Image, prompt string) (string, error) {
	return s.SaveImage(ctx, img, library.Meta{Kind: library.KindBlend, Prompt: prompt})
}
