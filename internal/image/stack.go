package image

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"product-studio/pkg/geometry"
)

var (
	// ErrLayerNotFound is returned for operations on an unknown layer id.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrNoImage is returned when adding a layer without a bitmap.
	ErrNoImage = errors.New("layer has no image")
	// ErrInvalidChange is returned for non-finite geometry values.
	ErrInvalidChange = errors.New("invalid layer change")
)

// Direction selects the neighbour used by Reorder.
type Direction int

const (
	Up   Direction = iota // Towards the top of the stack
	Down                  // Towards the bottom of the stack
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// cascadeStep offsets each default-placed layer so new inputs don't stack exactly.
const cascadeStep = 20.0

// Placement is the initial transform for a new layer. Zero width or height
// means the bitmap's native size.
type Placement struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// Changes is a partial update; nil fields are left unchanged.
type Changes struct {
	Name      *string
	X         *float64
	Y         *float64
	Width     *float64
	Height    *float64
	Rotation  *float64
	Opacity   *float64
	Visible   *bool
	BlendMode *BlendMode
}

// Ptr returns a pointer to v, for building Changes.
func Ptr[T any](v T) *T {
	return &v
}

// Stack is an ordered collection of layers with a single selection.
// It is not safe for concurrent use.
type Stack struct {
	layers   []*Layer
	selected string
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Len returns the number of layers.
func (s *Stack) Len() int {
	return len(s.layers)
}

// Add creates a layer for img above every existing layer.
func (s *Stack) Add(img image.Image, p *Placement) (*Layer, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty bitmap", ErrNoImage)
	}

	l := NewLayer(img)
	if p != nil {
		l.X, l.Y, l.Rotation = p.X, p.Y, p.Rotation
		if p.Width > 0 {
			l.Width = math.Max(p.Width, MinLayerSize)
		}
		if p.Height > 0 {
			l.Height = math.Max(p.Height, MinLayerSize)
		}
	} else {
		offset := cascadeStep * float64(len(s.layers))
		l.X, l.Y = offset, offset
	}
	l.ZOrder = s.nextZ()
	s.layers = append(s.layers, l)
	return l, nil
}

// Insert adds an existing layer value (for example a restored one), keeping
// its id and z-order.
func (s *Stack) Insert(l *Layer) {
	s.layers = append(s.layers, l)
}

func (s *Stack) nextZ() int {
	if len(s.layers) == 0 {
		return 0
	}
	maxZ := s.layers[0].ZOrder
	for _, l := range s.layers[1:] {
		if l.ZOrder > maxZ {
			maxZ = l.ZOrder
		}
	}
	return maxZ + 1
}

// Get returns the layer with the given id.
func (s *Stack) Get(id string) (*Layer, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.layers[i], true
}

func (s *Stack) index(id string) int {
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Update applies changes to a layer. Width and height below MinLayerSize are
// clamped to it and opacity is clamped to [0,1]. Nothing is applied when the
// change set is invalid.
func (s *Stack) Update(id string, c Changes) error {
	l, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}

	next := *l
	for _, v := range []*float64{c.X, c.Y, c.Width, c.Height, c.Rotation, c.Opacity} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidChange)
		}
	}
	if c.Name != nil {
		next.Name = *c.Name
	}
	if c.X != nil {
		next.X = *c.X
	}
	if c.Y != nil {
		next.Y = *c.Y
	}
	if c.Width != nil {
		next.Width = math.Max(*c.Width, MinLayerSize)
	}
	if c.Height != nil {
		next.Height = math.Max(*c.Height, MinLayerSize)
	}
	if c.Rotation != nil {
		next.Rotation = normalizeDegrees(*c.Rotation)
	}
	if c.Opacity != nil {
		next.Opacity = math.Max(0, math.Min(1, *c.Opacity))
	}
	if c.Visible != nil {
		next.Visible = *c.Visible
	}
	if c.BlendMode != nil {
		next.BlendMode = *c.BlendMode
	}

	*l = next
	return nil
}

// normalizeDegrees maps an angle into (-180, 180].
func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// Remove deletes a layer, clearing the selection if it was selected.
func (s *Stack) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	return nil
}

// Reorder swaps the layer's z-order with its nearest neighbour in the given
// direction. It is a no-op at either end of the stack.
func (s *Stack) Reorder(id string, dir Direction) error {
	l, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}

	var neighbour *Layer
	for _, other := range s.layers {
		if other == l {
			continue
		}
		switch dir {
		case Up:
			if other.ZOrder > l.ZOrder && (neighbour == nil || other.ZOrder < neighbour.ZOrder) {
				neighbour = other
			}
		case Down:
			if other.ZOrder < l.ZOrder && (neighbour == nil || other.ZOrder > neighbour.ZOrder) {
				neighbour = other
			}
		}
	}
	if neighbour == nil {
		return nil
	}
	l.ZOrder, neighbour.ZOrder = neighbour.ZOrder, l.ZOrder
	return nil
}

// SortedByZOrder returns the layers in ascending z-order; the last element
// paints on top.
func (s *Stack) SortedByZOrder() []*Layer {
	return sortByZ(s.layers)
}

func sortByZ(layers []*Layer) []*Layer {
	out := make([]*Layer, len(layers))
	copy(out, layers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZOrder < out[j].ZOrder
	})
	return out
}

// TopmostAt returns the highest visible layer under p.
func (s *Stack) TopmostAt(p geometry.Point2D) (*Layer, bool) {
	sorted := s.SortedByZOrder()
	for i := len(sorted) - 1; i >= 0; i-- {
		l := sorted[i]
		if l.Visible && l.HitTest(p) {
			return l, true
		}
	}
	return nil, false
}

// Select marks a layer as the active one; an empty id clears the selection.
func (s *Stack) Select(id string) error {
	if id != "" && s.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, id)
	}
	s.selected = id
	return nil
}

// Selected returns the active layer, if any.
func (s *Stack) Selected() (*Layer, bool) {
	if s.selected == "" {
		return nil, false
	}
	return s.Get(s.selected)
}

// Snapshot returns value copies of all layers. Bitmaps are shared since they
// are never mutated.
func (s *Stack) Snapshot() []Layer {
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = *l
	}
	return out
}

// Restore replaces the stack contents with a snapshot. The selection is kept
// when the selected layer still exists.
func (s *Stack) Restore(snapshot []Layer) {
	s.layers = make([]*Layer, len(snapshot))
	for i := range snapshot {
		l := snapshot[i]
		s.layers[i] = &l
	}
	if s.selected != "" && s.index(s.selected) < 0 {
		s.selected = ""
	}
}
