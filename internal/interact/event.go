// Package interact turns pointer input into edits of a creative or a layer
// stack. Controllers are driven from the UI thread only.
package interact

import "product-studio/pkg/geometry"

// PointerKind is the phase of a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerLeave
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// PointerEvent is a mouse or touch event in client coordinates.
type PointerEvent struct {
	Kind   PointerKind
	Client geometry.Point2D
	Touch  bool
}

// TouchPhase is the phase reported by a touch source.
type TouchPhase int

const (
	TouchStart TouchPhase = iota
	TouchMove
	TouchEnd
	TouchCancel
)

// FromTouch maps a touch phase onto the pointer model. A cancelled touch
// behaves like the pointer leaving the canvas.
func FromTouch(phase TouchPhase, client geometry.Point2D) PointerEvent {
	kind := PointerLeave
	switch phase {
	case TouchStart:
		kind = PointerDown
	case TouchMove:
		kind = PointerMove
	case TouchEnd:
		kind = PointerUp
	}
	return PointerEvent{Kind: kind, Client: client, Touch: true}
}

// Mode is the controller state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeTransforming
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModeTransforming:
		return "transforming"
	default:
		return "idle"
	}
}

// Cursor is the pointer shape a controller asks the UI to show.
type Cursor int

const (
	CursorDefault Cursor = iota
	CursorGrab
	CursorGrabbing
	CursorResize
	CursorRotate
	CursorCrosshair
)

// Handler is implemented by every controller.
type Handler interface {
	Handle(ev PointerEvent) (bool, error)
	Cursor() Cursor
	SetViewport(vp geometry.Viewport)
}
