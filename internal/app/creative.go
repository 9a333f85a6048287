package app

import (
	"context"
	goimage "image"

	"product-studio/internal/creative"
	"product-studio/internal/interact"
	"product-studio/internal/library"
)

// SetCreativeBackground sets the creative canvas and rebuilds its controller.
// If the first render fails the previous background stays in place.
func (s *State) SetCreativeBackground(img goimage.Image) error {
	if img == nil {
		return creative.ErrNoBackground
	}
	return s.rebuildCreative(img, s.creativeLogo)
}

// SetCreativeLogo sets or clears (nil) the logo.
func (s *State) SetCreativeLogo(img goimage.Image) error {
	if s.creativeBG == nil {
		s.creativeLogo = img
		return nil
	}
	return s.rebuildCreative(s.creativeBG, img)
}

// CreativeState returns the current creative settings.
func (s *State) CreativeState() creative.State {
	if s.creativeCtrl != nil {
		return s.creativeCtrl.State()
	}
	return s.creative
}

// UpdateCreative replaces the creative settings (form input) and re-renders.
func (s *State) UpdateCreative(st creative.State) error {
	if _, err := st.Validate(); err != nil {
		return s.fail(EventError, "creative", err)
	}
	s.creative = st
	if s.creativeCtrl == nil {
		s.Emit(EventCreativeChanged, nil)
		return nil
	}
	if err := s.creativeCtrl.SetState(st); err != nil {
		return s.fail(EventError, "creative", err)
	}
	s.Emit(EventCreativeChanged, s.creativeCtrl.Result())
	return nil
}

// ApplyCreativeTemplate switches the layout preset.
func (s *State) ApplyCreativeTemplate(id string) error {
	st, err := creative.ApplyTemplate(s.CreativeState(), id)
	if err != nil {
		return s.fail(EventError, "template", err)
	}
	return s.UpdateCreative(st)
}

// RenderCreative re-renders with the current settings.
func (s *State) RenderCreative() error {
	if s.creativeCtrl == nil {
		return creative.ErrNoBackground
	}
	if err := s.creativeCtrl.Refresh(); err != nil {
		return s.fail(EventError, "creative", err)
	}
	s.Emit(EventCreativeChanged, s.creativeCtrl.Result())
	return nil
}

// CreativeController returns the drag controller, or nil before a background
// is set.
func (s *State) CreativeController() *interact.CreativeController {
	return s.creativeCtrl
}

// CreativeResult returns the last render, or nil.
func (s *State) CreativeResult() *creative.Result {
	if s.creativeCtrl == nil {
		return nil
	}
	return s.creativeCtrl.Result()
}

// rebuildCreative replaces the controller with one rendering bg and logo.
// The images are only kept once that render succeeds.
func (s *State) rebuildCreative(bg, logo goimage.Image) error {
	st := s.CreativeState()
	ctrl, err := interact.NewCreativeController(st, func(st creative.State) (*creative.Result, error) {
		return s.renderer.Render(bg, logo, st)
	})
	if err != nil {
		return s.fail(EventError, "creative", err)
	}
	s.creativeBG, s.creativeLogo = bg, logo
	ctrl.OnChange(func(st creative.State) {
		s.creative = st
		s.Emit(EventCreativeChanged, ctrl.Result())
	})
	s.creativeCtrl = ctrl
	s.Emit(EventCreativeChanged, ctrl.Result())
	return nil
}

// SaveCreative stores the rendered creative with its settings.
func (s *State) SaveCreative(ctx context.Context) (string, error) {
	res := s.CreativeResult()
	if res == nil {
		return "", creative.ErrNoBackground
	}
	st := s.CreativeState()
	return s.SaveImage(ctx, res.Image, library.Meta{
		Kind:     library.KindCreative,
		Name:     st.Headline,
		Settings: settingsJSON(st),
	})
}
