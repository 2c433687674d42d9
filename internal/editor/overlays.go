package editor

import (
	"fmt"

	"github.com/dashkids/canvas-tools-mcp/internal/overlay"
	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// AddOverlay places a new text or emoji overlay at the canvas center,
// replacing any uncommitted one. An empty color uses the paint color.
func (e *Editor) AddOverlay(content string, kind overlay.Kind, col string) (overlay.Overlay, error) {
	c := e.tool.color
	if col != "" {
		var err error
		if c, err = raster.ParseColor(col); err != nil {
			return overlay.Overlay{}, err
		}
	}
	e.finishStroke()
	o, err := e.comp.Add(e.buf, content, kind, c)
	if err != nil {
		return overlay.Overlay{}, err
	}
	e.logger.Debug("overlay added", "id", o.ID, "kind", o.Kind)
	return o, nil
}

// Sticker is one entry of the sticker set.
type Sticker struct {
	Content string `json:"content"`
	// Available is false when the overlay font has no glyph for it.
	Available bool `json:"available"`
}

// Stickers lists overlay.Emojis with whether the current overlay font can
// draw each one.
func (e *Editor) Stickers() []Sticker {
	checker, _ := e.renderer.(interface{ HasGlyphs(string) bool })
	out := make([]Sticker, len(overlay.Emojis))
	for i, s := range overlay.Emojis {
		out[i] = Sticker{Content: s, Available: checker == nil || checker.HasGlyphs(s)}
	}
	return out
}

// OverlayTransform is a partial update; nil fields are left alone.
type OverlayTransform struct {
	Size     *int
	Rotation *float64
	X        *int
	Y        *int
}

// TransformOverlay applies t to the placed overlay and redraws its preview.
func (e *Editor) TransformOverlay(t OverlayTransform) (overlay.Overlay, error) {
	o, ok := e.comp.Overlay()
	if !ok {
		return overlay.Overlay{}, overlay.ErrNoOverlay
	}
	if t.Size != nil {
		if err := e.comp.SetSize(e.buf, *t.Size); err != nil {
			return overlay.Overlay{}, err
		}
	}
	if t.Rotation != nil {
		if err := e.comp.SetRotation(e.buf, *t.Rotation); err != nil {
			return overlay.Overlay{}, err
		}
	}
	if t.X != nil || t.Y != nil {
		x, y := o.X, o.Y
		if t.X != nil {
			x = *t.X
		}
		if t.Y != nil {
			y = *t.Y
		}
		if err := e.comp.MoveTo(e.buf, x, y); err != nil {
			return overlay.Overlay{}, err
		}
	}
	o, _ = e.comp.Overlay()
	return o, nil
}

// DragOverlay grabs the placed overlay at (fromX, fromY) and drops it at
// (toX, toY), keeping the grab offset. A grab point outside the overlay
// fails with ErrOverlayMiss.
func (e *Editor) DragOverlay(fromX, fromY, toX, toY int) (overlay.Overlay, error) {
	if !e.comp.Active() {
		return overlay.Overlay{}, overlay.ErrNoOverlay
	}
	if !e.comp.DragStart(fromX, fromY) {
		return overlay.Overlay{}, fmt.Errorf("%w: (%d,%d)", ErrOverlayMiss, fromX, fromY)
	}
	err := e.comp.DragMove(e.buf, toX, toY)
	e.comp.DragEnd()
	if err != nil {
		return overlay.Overlay{}, err
	}
	o, _ := e.comp.Overlay()
	return o, nil
}

// LockOverlay commits the placed overlay into the canvas and records
// history. ok is false when nothing was placed.
func (e *Editor) LockOverlay() (o overlay.Overlay, ok bool, err error) {
	o, ok, err = e.comp.Commit(e.buf)
	if err != nil || !ok {
		return o, ok, err
	}
	e.hist.Push(e.buf.Snapshot())
	e.logger.Debug("overlay locked", "id", o.ID, "history", e.hist.Len())
	return o, true, nil
}

// CancelOverlay discards the placed overlay and restores the canvas.
func (e *Editor) CancelOverlay() (bool, error) {
	return e.comp.Cancel(e.buf)
}
