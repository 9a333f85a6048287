// Package history implements a linear undo/redo timeline of state snapshots.
package history

// History is an ordered list of snapshots with a cursor at the current one.
// Committing after an undo discards the redo branch. Snapshots are stored as
// given, so callers should commit values that are not mutated afterwards.
type History[T any] struct {
	entries []T
	cursor  int
	limit   int
}

// Option configures a History.
type Option func(*settings)

type settings struct {
	limit int
}

// WithLimit caps the number of retained snapshots; the oldest are dropped.
// Values below 1 mean unlimited.
func WithLimit(n int) Option {
	return func(s *settings) {
		s.limit = n
	}
}

// New creates a history holding only the initial snapshot.
func New[T any](initial T, opts ...Option) *History[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return &History[T]{entries: []T{initial}, limit: s.limit}
}

// Commit records s as the new current snapshot.
func (h *History[T]) Commit(s T) {
	h.entries = append(h.entries[:h.cursor+1], s)
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append(h.entries[:0:0], h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo moves back one snapshot. It returns false when already at the start.
func (h *History[T]) Undo() (T, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo moves forward one snapshot. It returns false when already at the end.
func (h *History[T]) Redo() (T, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Reset discards everything and starts again from s.
func (h *History[T]) Reset(s T) {
	h.entries = []T{s}
	h.cursor = 0
}

// Current returns the snapshot at the cursor.
func (h *History[T]) Current() T {
	return h.entries[h.cursor]
}

func (h *History[T]) CanUndo() bool {
	return h.cursor > 0
}

func (h *History[T]) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

func (h *History[T]) Len() int {
	return len(h.entries)
}

func (h *History[T]) Cursor() int {
	return h.cursor
}

// Entries returns a copy of the snapshot list.
func (h *History[T]) Entries() []T {
	return append([]T(nil), h.entries...)
}
