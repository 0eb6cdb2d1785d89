package editor

import (
	"image"

	"github.com/inkpress/storefront/internal/render"
)

// Frame returns the live surface with the selection outline drawn on top.
// The returned image is a copy.
func (e *Editor) Frame() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.redrawLocked()
	frame := e.surface.Clone()
	if el, ok := e.scene.Get(e.selected); ok {
		if err := render.DrawSelection(frame, e.renderer.Bounds(el), render.Identity()); err != nil {
			return nil, err
		}
	}
	return frame.Image(), nil
}

// Surface returns a copy of the live surface without any overlay. It is
// what the preview is encoded from.
func (e *Editor) Surface() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.redrawLocked()
	return e.surface.Snapshot()
}

// redrawLocked re-renders the scene onto the surface when it has changed
// since the last frame. A frame that skipped an unresolved image stays
// dirty so the image appears once its asset arrives.
func (e *Editor) redrawLocked() {
	if !e.dirty {
		return
	}
	elements := e.scene.Elements()
	e.surface.Clear()
	if err := e.renderer.RenderScene(e.surface, elements, render.Identity()); err != nil {
		e.logger.Error("Failed to render frame", "error", err)
	}
	e.dirty = len(e.renderer.Unresolved(elements)) > 0
}
