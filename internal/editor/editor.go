// Package editor owns a live customization: the scene, its surface, the
// selection and drag state, and the undo history.
//
// Every method takes the editor's lock, so one editor is a single writer
// even when events arrive from several goroutines. Commits are taken
// after the triggering event's mutations have all been applied.
package editor

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/inkpress/storefront/internal/history"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/render"
	"github.com/inkpress/storefront/internal/scene"
)

const (
	DefaultCommitDelay   = 300 * time.Millisecond
	DefaultDragThreshold = 4.0
)

// ErrNotAnImage is returned by ApplyFilter for non-image elements.
var ErrNotAnImage = errors.New("element is not an image")

// State is the interaction state.
type State int

const (
	Idle State = iota
	Selected
	Dragging
	EditingProperty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	case EditingProperty:
		return "editing_property"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventType names what an Event reports.
type EventType string

const (
	EventChanged   EventType = "changed"
	EventCommitted EventType = "committed"
	EventSelection EventType = "selection"
	EventRestored  EventType = "restored"
)

// Event is delivered to listeners after the editor changes.
type Event struct {
	Type     EventType `json:"type"`
	State    string    `json:"state"`
	Selected string    `json:"selected,omitempty"`
	Elements int       `json:"elements"`
	CanUndo  bool      `json:"canUndo"`
	CanRedo  bool      `json:"canRedo"`
}

// Listener receives editor events. It runs with the editor locked and
// must not block or call back into the editor.
type Listener func(Event)

type Option func(*Editor)

func WithHistoryCapacity(n int) Option {
	return func(e *Editor) { e.historyCapacity = n }
}

// WithCommitDelay sets the window in which edits to the same property
// collapse into one history entry. Zero commits every edit.
func WithCommitDelay(d time.Duration) Option {
	return func(e *Editor) { e.commitDelay = d }
}

// WithDragThreshold sets how far, in display pixels, the pointer must
// travel before a press turns into a drag.
func WithDragThreshold(px float64) Option {
	return func(e *Editor) { e.dragThreshold = px }
}

func WithRenderer(r *render.Renderer) Option {
	return func(e *Editor) { e.renderer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithScene seeds the editor. The scene is cloned.
func WithScene(s *scene.Scene) Option {
	return func(e *Editor) { e.seed = s }
}

func WithListener(l Listener) Option {
	return func(e *Editor) { e.listeners = append(e.listeners, l) }
}

// Editor is the interaction controller for one print area.
type Editor struct {
	mu sync.Mutex

	area     printarea.PrintArea
	scene    *scene.Scene
	history  *history.History
	renderer *render.Renderer
	logger   *slog.Logger

	surface *render.Surface
	dirty   bool

	state    State
	selected string
	drag     dragState
	pending  *pendingCommit

	historyCapacity int
	commitDelay     time.Duration
	dragThreshold   float64
	seed            *scene.Scene
	listeners       []Listener
}

type dragState struct {
	pressed        bool
	startX, startY float64 // pointer position at press
	grabX, grabY   float64 // pointer offset from the element anchor
	origX, origY   float64 // element anchor at press
}

type pendingCommit struct {
	id, prop string
	timer    *time.Timer
}

// New creates an editor for area. Without WithRenderer a renderer with the
// bundled fonts and no asset source is used.
func New(area printarea.PrintArea, opts ...Option) (*Editor, error) {
	if err := area.Validate(); err != nil {
		return nil, err
	}
	e := &Editor{
		area:            area,
		logger:          slog.Default(),
		historyCapacity: history.DefaultCapacity,
		commitDelay:     DefaultCommitDelay,
		dragThreshold:   DefaultDragThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		fonts, err := render.NewFontRegistry(e.logger)
		if err != nil {
			return nil, err
		}
		e.renderer = render.NewRenderer(fonts, nil, e.logger)
	}

	w, h := area.DisplayWidth(), area.DisplayHeight()
	if e.seed != nil {
		e.scene = e.seed.Clone()
		e.scene.CanvasWidth, e.scene.CanvasHeight = float64(w), float64(h)
		e.seed = nil
	} else {
		e.scene = scene.New(float64(w), float64(h))
	}
	initial, err := e.scene.Serialize()
	if err != nil {
		return nil, err
	}
	e.history = history.New(e.historyCapacity, initial)
	e.surface = render.NewSurface(w, h)
	e.dirty = true
	return e, nil
}

// Area returns the print area being edited.
func (e *Editor) Area() printarea.PrintArea {
	return e.area
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Selection returns the selected element id, or "".
func (e *Editor) Selection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Scene returns a deep copy of the live scene.
func (e *Editor) Scene() *scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Clone()
}

// Snapshot serializes the live scene.
func (e *Editor) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene.Serialize()
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Select makes id the selection. An empty id clears it.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == "" {
		e.setSelection("")
		return nil
	}
	if _, ok := e.scene.Get(id); !ok {
		return fmt.Errorf("%w: %s", scene.ErrElementNotFound, id)
	}
	e.setSelection(id)
	return nil
}

// Flush commits a pending coalesced edit now.
func (e *Editor) Flush() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

// Close stops the pending commit timer after committing it.
func (e *Editor) Close() {
	e.Flush()
}

// Freeze flushes pending edits and returns a snapshot together with a copy
// of the clean on-screen surface, both taken at the same instant.
func (e *Editor) Freeze() ([]byte, *image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
	data, err := e.scene.Serialize()
	if err != nil {
		return nil, nil, err
	}
	e.redrawLocked()
	return data, e.surface.Snapshot(), nil
}

func (e *Editor) setSelection(id string) {
	if id == e.selected && (id == "") == (e.state == Idle) {
		return
	}
	e.selected = id
	if id == "" {
		e.state = Idle
	} else if e.state == Idle {
		e.state = Selected
	}
	e.dirty = true
	e.emit(EventSelection)
}

// commitLocked snapshots the scene into history.
func (e *Editor) commitLocked() bool {
	data, err := e.scene.Serialize()
	if err != nil {
		e.logger.Error("Failed to snapshot scene", "error", err)
		return false
	}
	if !e.history.Commit(data) {
		return false
	}
	e.emit(EventCommitted)
	return true
}

func (e *Editor) flushLocked() bool {
	p := e.pending
	if p == nil {
		return false
	}
	p.timer.Stop()
	e.pending = nil
	if e.state == EditingProperty {
		e.state = e.restingState()
	}
	return e.commitLocked()
}

func (e *Editor) restingState() State {
	if e.selected == "" {
		return Idle
	}
	return Selected
}

func (e *Editor) emit(t EventType) {
	if len(e.listeners) == 0 {
		return
	}
	ev := Event{
		Type:     t,
		State:    e.state.String(),
		Selected: e.selected,
		Elements: e.scene.Len(),
		CanUndo:  e.history.CanUndo(),
		CanRedo:  e.history.CanRedo(),
	}
	for _, l := range e.listeners {
		l(ev)
	}
}
