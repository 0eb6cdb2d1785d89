package render

import "fmt"

// Selection outline style. The inset is in surface pixels and does not
// scale with the transform.
const (
	SelectionInset = 4.0
	SelectionColor = "#3b82f6"
	selectionWidth = 1.5
)

// DrawSelection outlines rect (display space) with a dashed border on dst.
// It belongs to the editor's overlay pass and is never part of an export.
func DrawSelection(dst *Surface, rect Rect, xf Transform) error {
	box := rect.Map(xf).Inset(-SelectionInset)
	ctx, at, ok := newLayer(box.Inset(-selectionWidth), dst.img.Rect)
	if !ok {
		return nil
	}
	defer ctx.Close()

	c, _ := ParseColor(SelectionColor)
	ctx.SetColor(c.Color())
	ctx.SetLineWidth(selectionWidth)
	ctx.SetDash(6, 4)
	ctx.DrawRectangle(box.X-float64(at.X), box.Y-float64(at.Y), box.W, box.H)
	if err := ctx.Stroke(); err != nil {
		return fmt.Errorf("failed to draw selection: %w", err)
	}
	dst.composite(layerImage(ctx), at, 1)
	return nil
}
