package overlay

import (
	"fmt"
	"image/color"

	"github.com/google/uuid"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// State is the compositor's position in the overlay lifecycle.
type State int

const (
	StateIdle State = iota
	StatePlaced
	StateDragging
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePlaced:
		return "placed"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// DefaultPreviewOpacity is the alpha applied to an uncommitted overlay.
const DefaultPreviewOpacity = 0.5

// Compositor manages at most one uncommitted overlay on a buffer.
//
// Every transform change restores the pre-overlay snapshot before drawing
// the preview, so the buffer never holds more than one copy of the overlay.
// The compositor does not own the buffer; callers pass it to each call and
// must not mutate it while an overlay is placed.
type Compositor struct {
	renderer Renderer
	opacity  float64

	state   State
	overlay *Overlay
	pre     raster.Snapshot
	offX    int
	offY    int
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithPreviewOpacity sets the preview alpha, clamped to [0, 1].
func WithPreviewOpacity(a float64) Option {
	return func(c *Compositor) {
		if a < 0 {
			a = 0
		}
		if a > 1 {
			a = 1
		}
		c.opacity = a
	}
}

// NewCompositor creates an idle compositor drawing with r.
func NewCompositor(r Renderer, opts ...Option) *Compositor {
	c := &Compositor{renderer: r, opacity: DefaultPreviewOpacity}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the lifecycle state.
func (c *Compositor) State() State { return c.state }

// Active reports whether an overlay is placed or being dragged.
func (c *Compositor) Active() bool { return c.state != StateIdle }

// Overlay returns a copy of the current overlay.
func (c *Compositor) Overlay() (Overlay, bool) {
	if c.overlay == nil {
		return Overlay{}, false
	}
	return *c.overlay, true
}

// Add discards any current overlay, captures the buffer and places a new
// overlay at the buffer center with the kind's default size.
func (c *Compositor) Add(buf *raster.Buffer, content string, kind Kind, col color.NRGBA) (Overlay, error) {
	if content == "" {
		return Overlay{}, ErrEmptyContent
	}
	if _, err := c.Cancel(buf); err != nil {
		return Overlay{}, err
	}

	col.A = 255
	c.pre = buf.Snapshot()
	c.overlay = &Overlay{
		ID:      uuid.NewString(),
		Content: content,
		Kind:    kind,
		X:       buf.Width() / 2,
		Y:       buf.Height() / 2,
		Size:    kind.DefaultSize(),
		Color:   col,
	}
	c.state = StatePlaced

	if err := c.preview(buf); err != nil {
		_, _ = c.Cancel(buf)
		return Overlay{}, err
	}
	return *c.overlay, nil
}

// SetSize changes the overlay size, clamped to the kind's range.
func (c *Compositor) SetSize(buf *raster.Buffer, size int) error {
	if c.overlay == nil {
		return ErrNoOverlay
	}
	c.overlay.Size = c.overlay.Kind.ClampSize(size)
	return c.preview(buf)
}

// SetRotation changes the clockwise rotation in degrees.
func (c *Compositor) SetRotation(buf *raster.Buffer, deg float64) error {
	if c.overlay == nil {
		return ErrNoOverlay
	}
	c.overlay.Rotation = NormalizeRotation(deg)
	return c.preview(buf)
}

// MoveTo moves the anchor.
func (c *Compositor) MoveTo(buf *raster.Buffer, x, y int) error {
	if c.overlay == nil {
		return ErrNoOverlay
	}
	c.overlay.X, c.overlay.Y = x, y
	return c.preview(buf)
}

// DragStart begins a drag when (x, y) grabs the placed overlay.
func (c *Compositor) DragStart(x, y int) bool {
	if c.state != StatePlaced || !c.overlay.Contains(x, y) {
		return false
	}
	c.offX = x - c.overlay.X
	c.offY = y - c.overlay.Y
	c.state = StateDragging
	return true
}

// DragMove keeps the grab offset while following the pointer. It does
// nothing unless a drag is in progress.
func (c *Compositor) DragMove(buf *raster.Buffer, x, y int) error {
	if c.state != StateDragging {
		return nil
	}
	c.overlay.X = x - c.offX
	c.overlay.Y = y - c.offY
	return c.preview(buf)
}

// DragEnd finishes a drag and reports whether one was in progress.
func (c *Compositor) DragEnd() bool {
	if c.state != StateDragging {
		return false
	}
	c.state = StatePlaced
	return true
}

// Commit draws the overlay at full opacity into the buffer and returns to
// idle. ok is false when nothing was placed. The caller records history.
//
// If the final render fails the preview is drawn again and the overlay
// stays placed, so the caller can retry or cancel.
func (c *Compositor) Commit(buf *raster.Buffer) (committed Overlay, ok bool, err error) {
	if c.overlay == nil {
		return Overlay{}, false, nil
	}
	if err := buf.Restore(c.pre); err != nil {
		return Overlay{}, false, err
	}
	if err := c.renderer.Render(buf.Image(), *c.overlay, 1); err != nil {
		_ = c.preview(buf)
		return Overlay{}, false, fmt.Errorf("failed to render overlay: %w", err)
	}
	committed = *c.overlay
	committed.Locked = true
	c.reset()
	return committed, true, nil
}

// Cancel restores the pre-overlay buffer and discards the overlay. It
// reports whether an overlay was discarded.
func (c *Compositor) Cancel(buf *raster.Buffer) (bool, error) {
	if c.overlay == nil {
		return false, nil
	}
	err := buf.Restore(c.pre)
	c.reset()
	return true, err
}

// Discard drops the overlay without touching any buffer. Use it when the
// buffer the overlay was placed on has been replaced.
func (c *Compositor) Discard() {
	c.reset()
}

func (c *Compositor) preview(buf *raster.Buffer) error {
	if err := buf.Restore(c.pre); err != nil {
		return err
	}
	if err := c.renderer.Render(buf.Image(), *c.overlay, c.opacity); err != nil {
		return fmt.Errorf("failed to render overlay: %w", err)
	}
	return nil
}

func (c *Compositor) reset() {
	c.overlay = nil
	c.pre = raster.Snapshot{}
	c.state = StateIdle
	c.offX, c.offY = 0, 0
}
