// Package history keeps a bounded linear undo/redo stack of opaque scene
// snapshots.
package history

import (
	"bytes"
	"sync"
)

// DefaultCapacity is the number of undoable states retained.
const DefaultCapacity = 20

// Entry is one committed snapshot.
type Entry struct {
	Seq      uint64
	Snapshot []byte
}

// History is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	capacity int
	past     []Entry
	current  Entry
	redo     []Entry
	seq      uint64
}

// New returns a history whose current state is initial. A capacity below
// one uses DefaultCapacity.
func New(capacity int, initial []byte) *History {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	h := &History{capacity: capacity}
	h.current = h.entry(initial)
	return h
}

func (h *History) entry(snapshot []byte) Entry {
	h.seq++
	return Entry{Seq: h.seq, Snapshot: bytes.Clone(snapshot)}
}

// Commit makes snapshot the current state unless it equals it already.
// The previous state becomes undoable, the oldest one is dropped past
// capacity, and any redo entries are discarded. It reports whether an
// entry was added.
func (h *History) Commit(snapshot []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if bytes.Equal(h.current.Snapshot, snapshot) {
		return false
	}
	h.past = append(h.past, h.current)
	if over := len(h.past) - h.capacity; over > 0 {
		h.past = append(h.past[:0:0], h.past[over:]...)
	}
	h.current = h.entry(snapshot)
	h.redo = nil
	return true
}

// Undo steps back one state. With nothing left to undo it returns the
// current snapshot and false.
func (h *History) Undo() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.past) == 0 {
		return bytes.Clone(h.current.Snapshot), false
	}
	h.redo = append(h.redo, h.current)
	h.current = h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	return bytes.Clone(h.current.Snapshot), true
}

// Redo re-applies the most recently undone state. With nothing to redo it
// returns the current snapshot and false.
func (h *History) Redo() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redo) == 0 {
		return bytes.Clone(h.current.Snapshot), false
	}
	h.past = append(h.past, h.current)
	h.current = h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return bytes.Clone(h.current.Snapshot), true
}

// Current returns the current state.
func (h *History) Current() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Entry{Seq: h.current.Seq, Snapshot: bytes.Clone(h.current.Snapshot)}
}

// Len is the number of undoable states.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past)
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Reset discards everything and starts over from initial.
func (h *History) Reset(initial []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.redo = nil
	h.current = h.entry(initial)
}
