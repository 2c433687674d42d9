package editor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/dashkids/canvas-tools-mcp/internal/config"
	"github.com/dashkids/canvas-tools-mcp/internal/overlay"
	"github.com/dashkids/canvas-tools-mcp/internal/paint"
	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// Tool is the active canvas tool.
type Tool string

const (
	ToolFill   Tool = "fill"
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

var (
	// ErrInvalidTool is returned by ParseTool for unknown names.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrNotBrush is returned by Stroke when the fill tool is selected.
	ErrNotBrush = errors.New("stroke needs the brush or eraser tool")
)

// ParseTool converts a tool name.
func ParseTool(s string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(s))); t {
	case ToolFill, ToolBrush, ToolEraser:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTool, s)
}

type toolState struct {
	tool  Tool
	color color.NRGBA
	size  int
}

// ToolState is the caller-visible tool selection.
type ToolState struct {
	Tool        Tool   `json:"tool"`
	Color       string `json:"color"`
	BrushSize   int    `json:"brush_size"`
	BrushRadius int    `json:"brush_radius"`
}

// ToolState returns the current tool selection.
func (e *Editor) ToolState() ToolState {
	return ToolState{
		Tool:        e.tool.tool,
		Color:       raster.Hex(e.tool.color),
		BrushSize:   e.tool.size,
		BrushRadius: e.tool.size / 2,
	}
}

// SelectTool switches tools. A placed overlay is cancelled and an open
// stroke is closed.
func (e *Editor) SelectTool(t Tool) error {
	if _, err := ParseTool(string(t)); err != nil {
		return err
	}
	if _, err := e.comp.Cancel(e.buf); err != nil {
		return err
	}
	e.finishStroke()
	e.tool.tool = t
	return nil
}

// SetColor sets the paint color. Malformed input leaves it unchanged.
func (e *Editor) SetColor(s string) error {
	c, err := raster.ParseColor(s)
	if err != nil {
		return err
	}
	e.tool.color = c
	return nil
}

// SetBrushSize sets the brush diameter, clamped to the allowed range, and
// returns the resulting radius.
func (e *Editor) SetBrushSize(size int) int {
	e.tool.size = config.ClampBrushSize(size)
	return e.tool.size / 2
}

func (e *Editor) brush() paint.Brush {
	bg := e.background
	if e.cfg.Canvas.EraseTransparent {
		bg = color.NRGBA{}
	}
	return paint.Brush{
		Radius:      e.tool.size / 2,
		Paint:       e.tool.color,
		Background:  bg,
		Interpolate: e.cfg.Canvas.Interpolate,
	}
}

func (e *Editor) brushMode() paint.Mode {
	if e.tool.tool == ToolEraser {
		return paint.ModeErase
	}
	return paint.ModePaint
}

// Action names reported by pointer events.
const (
	ActionNone      = "none"
	ActionFill      = "fill"
	ActionStroke    = "stroke"
	ActionStamp     = "stamp"
	ActionDrag      = "drag"
	ActionDragEnd   = "drag_end"
	ActionStrokeEnd = "stroke_end"
)

// PointerResult reports what a pointer event did.
type PointerResult struct {
	Action  string `json:"action"`
	Changed bool   `json:"changed"`
	Pixels  int    `json:"pixels,omitempty"`
	History int    `json:"history"`
}

func (e *Editor) result(action string, changed bool, pixels int) PointerResult {
	return PointerResult{Action: action, Changed: changed, Pixels: pixels, History: e.hist.Len()}
}

// PointerDown handles a press at (x, y).
//
// A press on a placed overlay starts dragging it. A press elsewhere while
// an overlay is placed fails with ErrOverlayActive. Otherwise the fill tool
// fills and records history when pixels changed, and the brush and eraser
// start a stroke.
func (e *Editor) PointerDown(x, y int) (PointerResult, error) {
	if e.comp.Active() {
		if e.comp.DragStart(x, y) {
			return e.result(ActionDrag, false, 0), nil
		}
		return e.result(ActionNone, false, 0), ErrOverlayActive
	}

	if e.tool.tool == ToolFill {
		res, err := e.fillColor(x, y, e.tool.color)
		if err != nil {
			return e.result(ActionNone, false, 0), err
		}
		return e.result(ActionFill, res.Changed, res.Pixels), nil
	}

	e.finishStroke()
	e.stroke.Begin(e.buf, e.brush(), e.brushMode(), x, y)
	return e.result(ActionStroke, true, 0), nil
}

// PointerMove handles motion: it drags a grabbed overlay or stamps the open
// stroke. Otherwise it does nothing.
func (e *Editor) PointerMove(x, y int) (PointerResult, error) {
	if e.comp.State() == overlay.StateDragging {
		if err := e.comp.DragMove(e.buf, x, y); err != nil {
			return e.result(ActionNone, false, 0), err
		}
		return e.result(ActionDrag, true, 0), nil
	}
	if e.stroke.Active() {
		e.stroke.Move(e.buf, x, y)
		return e.result(ActionStamp, true, 0), nil
	}
	return e.result(ActionNone, false, 0), nil
}

// PointerUp ends a drag or a stroke. A finished stroke that wrote pixels
// records one history entry.
func (e *Editor) PointerUp(x, y int) (PointerResult, error) {
	if e.comp.DragEnd() {
		return e.result(ActionDragEnd, false, 0), nil
	}
	if e.finishStroke() {
		n := e.stroke.Pixels()
		return e.result(ActionStrokeEnd, n > 0, n), nil
	}
	return e.result(ActionNone, false, 0), nil
}

// finishStroke closes an open stroke and reports whether one was open. The
// stroke is recorded only when it wrote at least one pixel.
func (e *Editor) finishStroke() bool {
	if !e.stroke.End() {
		return false
	}
	if e.stroke.Pixels() == 0 {
		e.logger.Debug("stroke outside canvas", "stamps", e.stroke.Stamps())
		return true
	}
	e.hist.Push(e.buf.Snapshot())
	e.logger.Debug("stroke recorded", "stamps", e.stroke.Stamps(), "pixels", e.stroke.Pixels(), "history", e.hist.Len())
	return true
}

// Stroke replays a whole brush or eraser gesture through points and records
// one history entry.
func (e *Editor) Stroke(points []image.Point) (PointerResult, error) {
	if e.tool.tool == ToolFill {
		return e.result(ActionNone, false, 0), ErrNotBrush
	}
	if len(points) == 0 {
		return e.result(ActionNone, false, 0), nil
	}
	if e.comp.Active() {
		return e.result(ActionNone, false, 0), ErrOverlayActive
	}

	e.finishStroke()
	e.stroke.Begin(e.buf, e.brush(), e.brushMode(), points[0].X, points[0].Y)
	for _, p := range points[1:] {
		e.stroke.Move(e.buf, p.X, p.Y)
	}
	e.finishStroke()
	n := e.stroke.Pixels()
	return e.result(ActionStrokeEnd, n > 0, n), nil
}

// Fill flood-fills from (x, y) with the given color, or with the current
// color when fill is empty. A seed outside the canvas is ignored.
func (e *Editor) Fill(x, y int, fill string) (paint.FillResult, error) {
	c := e.tool.color
	if fill != "" {
		var err error
		if c, err = raster.ParseColor(fill); err != nil {
			return paint.FillResult{}, err
		}
	}
	if e.comp.Active() {
		return paint.FillResult{}, ErrOverlayActive
	}
	e.finishStroke()
	return e.fillColor(x, y, c)
}

func (e *Editor) fillColor(x, y int, c color.NRGBA) (paint.FillResult, error) {
	res, err := paint.FillColor(e.buf, x, y, c)
	if errors.Is(err, raster.ErrOutOfBounds) {
		return paint.FillResult{}, nil
	}
	if err != nil {
		return res, err
	}
	if res.Changed {
		e.hist.Push(e.buf.Snapshot())
		e.logger.Debug("fill recorded", "x", x, "y", y, "pixels", res.Pixels, "history", e.hist.Len())
	}
	return res, nil
}
