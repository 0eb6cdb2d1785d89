package editor

import (
	"math"

	"github.com/inkpress/storefront/internal/scene"
)

// HitTest returns the id of the topmost element under (x, y), or "".
func (e *Editor) HitTest(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hitTest(x, y)
}

// hitTest walks the elements top to bottom so the first match is the one
// drawn last.
func (e *Editor) hitTest(x, y float64) string {
	els := e.scene.Elements()
	for i := len(els) - 1; i >= 0; i-- {
		if e.renderer.Contains(els[i], x, y) {
			return els[i].Common().ID
		}
	}
	return ""
}

// PointerDown selects the topmost element under the pointer and arms a
// drag. Pressing empty canvas clears the selection. It returns the id of
// the element hit, if any.
func (e *Editor) PointerDown(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flushLocked()
	id := e.hitTest(x, y)
	if id == "" {
		e.drag = dragState{}
		e.setSelection("")
		return ""
	}
	el, _ := e.scene.Get(id)
	b := el.Common()
	e.drag = dragState{
		pressed: true,
		startX:  x,
		startY:  y,
		grabX:   x - b.X,
		grabY:   y - b.Y,
		origX:   b.X,
		origY:   b.Y,
	}
	e.state = Selected
	e.setSelection(id)
	return id
}

// PointerMove moves the selected element once the pointer has travelled
// past the drag threshold. Moves are live and not committed until
// PointerUp.
func (e *Editor) PointerMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drag.pressed || e.selected == "" {
		return
	}
	if e.state != Dragging {
		dx, dy := x-e.drag.startX, y-e.drag.startY
		if math.Sqrt(dx*dx+dy*dy) <= e.dragThreshold {
			return
		}
		e.state = Dragging
	}
	err := e.scene.Update(e.selected, func(el scene.Element) error {
		b := el.Common()
		b.X = x - e.drag.grabX
		b.Y = y - e.drag.grabY
		return nil
	})
	if err != nil {
		e.logger.Warn("Dropping drag for missing element", "element", e.selected, "error", err)
		e.drag = dragState{}
		e.state = e.restingState()
		return
	}
	e.dirty = true
	e.emit(EventChanged)
}

// PointerUp ends a press. A drag that moved the element commits one
// history entry; a press that never crossed the threshold commits nothing.
func (e *Editor) PointerUp() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasDragging := e.state == Dragging
	orig := e.drag
	e.drag = dragState{}
	if !wasDragging {
		return false
	}
	e.state = e.restingState()
	el, ok := e.scene.Get(e.selected)
	if !ok {
		return false
	}
	b := el.Common()
	if b.X == orig.origX && b.Y == orig.origY {
		return false
	}
	return e.commitLocked()
}
