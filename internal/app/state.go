// Package app holds the application state shared by the windows: the open
// documents, the AI client, persistence and an event bus.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	goimage "image"
	"io"
	"log/slog"
	"sync"

	"product-studio/internal/blend"
	"product-studio/internal/config"
	"product-studio/internal/creative"
	"product-studio/internal/edit"
	"product-studio/internal/image"
	"product-studio/internal/interact"
	"product-studio/internal/library"
	"product-studio/internal/refine"
)

var (
	// ErrBusy is returned when an AI action is requested while one is running.
	ErrBusy = errors.New("another AI request is in progress")
	// ErrNoDocument is returned by edit actions before a product image is loaded.
	ErrNoDocument = errors.New("no product image loaded")
	// ErrNoAI is returned when no AI client is configured.
	ErrNoAI = errors.New("AI service is not configured")
	// ErrNoLibrary is returned by save actions when no store is configured.
	ErrNoLibrary = errors.New("no library configured")
)

// AI is the generative service used by the studio.
type AI interface {
	edit.Editor
	blend.Generator
}

// EventType identifies different application events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventEditApplied
	EventEditFailed
	EventCreativeChanged
	EventLayersChanged
	EventHistoryChanged
	EventBusy
	EventSaved
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Options wires the collaborators of a State.
type Options struct {
	Config config.Config
	AI     AI
	Store  library.Store
	Logger *slog.Logger
}

// State holds the application state. Create one in main and pass it to the
// windows. Document objects (edit session, creative controller, blend
// session) are driven from the UI goroutine; AI calls run on worker
// goroutines and are serialised by the busy flag.
type State struct {
	mu sync.RWMutex

	cfg    config.Config
	ai     AI
	store  library.Store
	loader *image.Loader
	logger *slog.Logger

	busy  bool
	batch *edit.Batch

	// Editor tab
	editSession *edit.Session
	productPath string

	// Creative tab
	renderer     *creative.Renderer
	creative     creative.State
	creativeBG   goimage.Image
	creativeLogo goimage.Image
	creativeCtrl *interact.CreativeController

	// Blender tab
	blendSession *blend.Session

	listeners map[EventType][]EventListener
}

// NewState creates the application state.
func NewState(opts Options) *State {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := opts.Config

	s := &State{
		cfg:    cfg,
		ai:     opts.AI,
		store:  opts.Store,
		logger: logger,
		loader: image.NewLoader(image.LoaderOptions{TTL: cfg.CacheTTL, Logger: logger}),
		renderer: creative.NewRenderer(creative.Options{
			Fonts:  creative.NewFonts(cfg.CacheTTL),
			Logger: logger,
		}),
		creative:  creative.DefaultState(),
		listeners: make(map[EventType][]EventListener),
	}
	s.blendSession = blend.NewSession(blend.Options{
		Stage:  image.StageSpec{Width: cfg.StageWidth, Height: cfg.StageHeight},
		Logger: logger,
	})
	s.blendSession.OnChange(func() {
		s.Emit(EventLayersChanged, nil)
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Config returns the loaded configuration.
func (s *State) Config() config.Config {
	return s.cfg
}

// Logger returns the application logger.
func (s *State) Logger() *slog.Logger {
	return s.logger
}

// Busy reports whether an AI request is running.
func (s *State) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// beginAI claims the busy flag.
func (s *State) beginAI() (AI, error) {
	s.mu.Lock()
	if s.ai == nil {
		s.mu.Unlock()
		return nil, ErrNoAI
	}
	if err := s.cfg.RequireAPIKey(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	ai := s.ai
	s.mu.Unlock()
	s.Emit(EventBusy, true)
	return ai, nil
}

func (s *State) endAI() {
	s.mu.Lock()
	s.busy = false
	s.batch = nil
	s.mu.Unlock()
	s.Emit(EventBusy, false)
}

func (s *State) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// fail logs err, emits it and returns it.
func (s *State) fail(event EventType, op string, err error) error {
	s.logger.Warn(op+" failed", "error", err)
	s.Emit(event, err)
	return err
}

// LoadImage decodes an image through the shared loader cache.
func (s *State) LoadImage(path string) (goimage.Image, error) {
	img, err := s.loader.Load(path)
	if err != nil {
		return nil, s.fail(EventError, "load image", err)
	}
	return img, nil
}

// Library returns the image library, or nil when none is configured.
func (s *State) Library() library.Store {
	return s.store
}

// SaveImage stores img in the library.
func (s *State) SaveImage(ctx context.Context, img goimage.Image, meta library.Meta) (string, error) {
	if s.store == nil {
		return "", ErrNoLibrary
	}
	if img == nil {
		return "", image.ErrNoImage
	}
	id, err := s.store.Save(ctx, img, meta)
	if err != nil {
		return "", s.fail(EventError, "save", err)
	}
	s.logger.Info("image saved", "id", id, "kind", meta.Kind)
	s.Emit(EventSaved, id)
	return id, nil
}

// settingsJSON is used to attach the creative state to saved creatives.
func settingsJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// wrapOp adds the operation name to an error.
func wrapOp(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// refiner returns the mask refiner configured by MASK_GROW_PX.
func (s *State) refiner() edit.Refiner {
	if s.cfg.MaskGrowPx <= 0 {
		return nil
	}
	return refine.Grower{Px: s.cfg.MaskGrowPx}
}
