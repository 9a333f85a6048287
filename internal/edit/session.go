package edit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"product-studio/internal/history"
	studioimage "product-studio/internal/image"
	"product-studio/internal/mask"

	"github.com/google/uuid"
)

var (
	// ErrEmptyPrompt is returned when an edit is requested without text.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrEmptyMask is returned when nothing has been painted.
	ErrEmptyMask = errors.New("mask is empty: paint the area to edit first")
	// ErrNoBase is returned when a session is created without an image.
	ErrNoBase = errors.New("no base image")
	// ErrLayerNotFound is returned for an unknown edit layer id.
	ErrLayerNotFound = errors.New("edit layer not found")
)

// ServiceError wraps a failure of the AI service. Reason is the message to
// show the user.
type ServiceError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// reasoner is implemented by service errors that carry a user-facing reason.
type reasoner interface {
	Reason() string
}

func newServiceError(op string, err error) *ServiceError {
	reason := err.Error()
	var r reasoner
	if errors.As(err, &r) && r.Reason() != "" {
		reason = r.Reason()
	}
	return &ServiceError{Op: op, Reason: reason, Err: err}
}

// Options configures a Session.
type Options struct {
	Refiner      Refiner
	BrushRadius  float64
	HistoryLimit int
	Logger       *slog.Logger
}

// Session is one masked-edit document: an immutable base image, the mask
// painter and the stack of edit results. Methods may be called while Apply
// waits on the service; the layer stack is guarded by mu.
type Session struct {
	mu      sync.RWMutex
	base    image.Image
	painter *mask.Painter
	layers  []EditLayer
	history *history.History[[]EditLayer]
	refiner Refiner
	logger  *slog.Logger
}

// NewSession starts editing base.
func NewSession(base image.Image, opts Options) (*Session, error) {
	if base == nil || base.Bounds().Empty() {
		return nil, ErrNoBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := base.Bounds()
	painter := mask.NewPainter(b.Dx(), b.Dy())
	if opts.BrushRadius > 0 {
		painter.SetBrushRadius(opts.BrushRadius)
	}
	return &Session{
		base:    base,
		painter: painter,
		history: history.New([]EditLayer(nil), history.WithLimit(opts.HistoryLimit)),
		refiner: opts.Refiner,
		logger:  opts.Logger,
	}, nil
}

// Base returns the original image.
func (s *Session) Base() image.Image {
	return s.base
}

// Painter returns the mask painter, in base image pixel coordinates.
func (s *Session) Painter() *mask.Painter {
	return s.painter
}

// Layers returns a copy of the edit layers, oldest first.
func (s *Session) Layers() []EditLayer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLayers(s.layers)
}

// Composite returns the base with all visible edit layers applied. With no
// visible layers the base itself is returned.
func (s *Session) Composite() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.composite()
}

func (s *Session) composite() image.Image {
	visible := false
	for _, l := range s.layers {
		if l.Visible && l.Opacity > 0 {
			visible = true
			break
		}
	}
	if !visible {
		return s.base
	}
	b := s.base.Bounds()
	return studioimage.Flatten(s.base, toLayers(s.layers, b.Dx(), b.Dy()))
}

// Finish returns the flattened result as a new bitmap.
func (s *Session) Finish() *image.NRGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.base.Bounds()
	return studioimage.Flatten(s.base, toLayers(s.layers, b.Dx(), b.Dy()))
}

// Apply sends the current composite, the painted mask and prompt to editor.
// On success exactly one EditLayer is added, history is committed and the
// painter is cleared. On failure the session is left as it was. The service
// call runs without holding the session lock.
func (s *Session) Apply(ctx context.Context, editor Editor, prompt string) (*EditLayer, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	m := s.painter.Mask()
	if mask.IsEmpty(m) {
		return nil, ErrEmptyMask
	}
	if s.refiner != nil {
		refined, err := s.refiner.Refine(m)
		if err != nil {
			return nil, fmt.Errorf("refine mask: %w", err)
		}
		m = refined
	}

	kind := Classify(prompt)
	s.mu.RLock()
	req := Request{
		Base:        s.composite(),
		Mask:        m,
		Prompt:      prompt,
		Instruction: Instruction(kind, prompt),
		EditType:    kind,
	}
	count := len(s.layers)
	s.mu.RUnlock()
	s.logger.Info("applying edit",
		"type", kind, "coverage", mask.Coverage(m), "layers", count)

	start := time.Now()
	result, err := editor.Edit(ctx, req)
	if err != nil {
		s.logger.Warn("edit failed", "error", err, "elapsed", time.Since(start))
		return nil, newServiceError("edit", err)
	}
	if result == nil || result.Bounds().Empty() {
		return nil, newServiceError("edit", errors.New("service returned no image"))
	}

	layer := EditLayer{
		ID:      uuid.NewString(),
		Image:   result,
		Opacity: 1,
		Visible: true,
		Params: EditParams{
			Mask:       m,
			UserPrompt: prompt,
			SentPrompt: req.Instruction,
			EditType:   kind,
		},
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.commit(append(cloneLayers(s.layers), layer))
	s.mu.Unlock()
	s.painter.Clear()
	s.logger.Info("edit applied", "layer", layer.ID, "elapsed", time.Since(start))
	return &layer, nil
}

// SetOpacity changes a layer's opacity, clamped to [0,1].
func (s *Session) SetOpacity(id string, opacity float64) error {
	return s.modify(id, func(l *EditLayer) {
		l.Opacity = max(0, min(1, opacity))
	})
}

// SetVisible toggles a layer.
func (s *Session) SetVisible(id string, visible bool) error {
	return s.modify(id, func(l *EditLayer) {
		l.Visible = visible
	})
}

// Remove deletes a layer.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	next := cloneLayers(s.layers)
	next = append(next[:i], next[i+1:]...)
	s.commit(next)
	return nil
}

func (s *Session) modify(id string, fn func(*EditLayer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	next := cloneLayers(s.layers)
	fn(&next[i])
	s.commit(next)
	return nil
}

func (s *Session) index(id string) int {
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) commit(layers []EditLayer) {
	s.layers = layers
	s.history.Commit(cloneLayers(layers))
}

// Undo steps back one history entry.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Undo()
	if ok {
		s.layers = cloneLayers(snap)
	}
	return ok
}

// Redo steps forward one history entry.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.history.Redo()
	if ok {
		s.layers = cloneLayers(snap)
	}
	return ok
}

func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// HistoryLen returns the number of history entries.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}
