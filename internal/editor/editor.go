package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dashkids/canvas-tools-mcp/internal/config"
	"github.com/dashkids/canvas-tools-mcp/internal/history"
	"github.com/dashkids/canvas-tools-mcp/internal/overlay"
	"github.com/dashkids/canvas-tools-mcp/internal/paint"
	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

var (
	// ErrUnknownCharacter is returned when a character name or index does
	// not match the configured list.
	ErrUnknownCharacter = errors.New("unknown character")

	// ErrOverlayActive is returned by painting operations while an
	// overlay is placed and the pointer misses it. Lock or cancel the
	// overlay first.
	ErrOverlayActive = errors.New("overlay placed: lock or cancel it first")

	// ErrOverlayMiss is returned by DragOverlay when the grab point is
	// outside the placed overlay.
	ErrOverlayMiss = errors.New("point misses the overlay")

	// ErrInvalidSize is returned for a non-positive canvas size.
	ErrInvalidSize = errors.New("invalid canvas size")
)

// Editor is one coloring session: a canvas, its undo history, the active
// tool and at most one uncommitted overlay.
//
// Editor is not safe for concurrent use; the server serializes calls.
type Editor struct {
	cfg    *config.Config
	logger *slog.Logger
	loader *raster.Loader

	buf        *raster.Buffer
	background color.NRGBA
	hist       *history.Stack
	renderer   overlay.Renderer
	comp       *overlay.Compositor
	stroke     paint.Stroke
	tool       toolState

	base     image.Image
	baseName string
}

// Option configures an Editor.
type Option func(*Editor)

// WithLoader replaces the source loader.
func WithLoader(l *raster.Loader) Option {
	return func(e *Editor) { e.loader = l }
}

// WithRenderer replaces the overlay renderer.
func WithRenderer(r overlay.Renderer) Option {
	return func(e *Editor) {
		e.renderer = r
		e.comp = overlay.NewCompositor(r, overlay.WithPreviewOpacity(e.cfg.Overlay.PreviewOpacity))
	}
}

// New creates a session with a blank canvas. A nil cfg uses the defaults
// and a nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Editor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bg, _ := raster.ParseColor(cfg.Canvas.Background)
	paintColor, _ := raster.ParseColor(cfg.Canvas.DefaultColor)

	var hopts []history.Option
	if cfg.History.Capacity > 0 {
		hopts = append(hopts, history.WithCapacity(cfg.History.Capacity))
	}
	if cfg.History.Compress {
		hopts = append(hopts, history.WithCompression())
	}
	hist, err := history.New(hopts...)
	if err != nil {
		return nil, err
	}

	e := &Editor{
		cfg:        cfg,
		logger:     logger,
		background: bg,
		hist:       hist,
		tool: toolState{
			tool:  ToolFill,
			color: paintColor,
			size:  config.ClampBrushSize(cfg.Canvas.DefaultBrushSize),
		},
	}
	for _, o := range opts {
		o(e)
	}

	if e.comp == nil {
		r, err := defaultRenderer(cfg.Overlay.FontPath)
		if err != nil {
			return nil, err
		}
		e.renderer = r
		e.comp = overlay.NewCompositor(r, overlay.WithPreviewOpacity(cfg.Overlay.PreviewOpacity))
	}
	if e.loader == nil {
		lopts := []raster.LoaderOption{raster.WithTimeout(cfg.Loader.Timeout)}
		if !cfg.Loader.Cache {
			lopts = append(lopts, raster.WithoutCache())
		}
		e.loader = raster.NewLoader(lopts...)
	}

	e.resetCanvas(cfg.Canvas.Width, cfg.Canvas.Height)
	return e, nil
}

func defaultRenderer(fontPath string) (overlay.Renderer, error) {
	if fontPath != "" {
		return overlay.LoadFontRenderer(fontPath)
	}
	return overlay.DefaultRenderer()
}

// resetCanvas replaces the buffer with a blank one and starts history over.
func (e *Editor) resetCanvas(w, h int) {
	e.comp.Discard()
	e.stroke.End()
	e.buf = raster.NewFilled(w, h, e.background)
	e.hist.Reset()
	e.hist.Push(e.buf.Snapshot())
	e.base = nil
	e.baseName = ""
}

// NewCanvas starts over on a blank canvas. Zero dimensions use the
// configured size.
func (e *Editor) NewCanvas(w, h int) error {
	if w == 0 {
		w = e.cfg.Canvas.Width
	}
	if h == 0 {
		h = e.cfg.Canvas.Height
	}
	if w < 0 || h < 0 || w > 8192 || h > 8192 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	e.resetCanvas(w, h)
	e.logger.Info("new canvas", "width", w, "height", h)
	return nil
}

// LoadBase paints the background and draws img scaled to the canvas, then
// makes that the only history entry. Any overlay or stroke is dropped.
func (e *Editor) LoadBase(img image.Image, name string) {
	e.comp.Discard()
	e.stroke.End()

	e.buf.Fill(e.background)
	fitted := raster.Fit(img, e.buf.Width(), e.buf.Height())
	draw.Draw(e.buf.Image(), e.buf.Bounds(), fitted, image.Point{}, draw.Over)

	e.hist.Reset()
	e.hist.Push(e.buf.Snapshot())
	e.base = img
	e.baseName = name
	e.logger.Info("base image loaded", "name", name, "width", e.buf.Width(), "height", e.buf.Height())
}

// LoadSource loads a file path, URL or ipfs:// URI as the base image. On
// failure the canvas is untouched and the error wraps raster.ErrSourceLoad.
func (e *Editor) LoadSource(ctx context.Context, ref string) error {
	img, err := e.loader.Load(ctx, ref)
	if err != nil {
		e.logger.Warn("source load failed", "ref", ref, "error", err)
		return err
	}
	e.LoadBase(img, ref)
	return nil
}

// Loader returns the source loader the session reads images through.
func (e *Editor) Loader() *raster.Loader { return e.loader }

// Characters returns the configured coloring pages.
func (e *Editor) Characters() []config.Character {
	return append([]config.Character(nil), e.cfg.Characters...)
}

// LoadCharacter loads a configured coloring page by name (case-insensitive)
// or by 0-based index.
func (e *Editor) LoadCharacter(ctx context.Context, ref string) (config.Character, error) {
	ch, err := e.findCharacter(ref)
	if err != nil {
		return config.Character{}, err
	}
	img, err := e.loader.Load(ctx, ch.Source)
	if err != nil {
		e.logger.Warn("character load failed", "character", ch.Name, "error", err)
		return config.Character{}, err
	}
	e.LoadBase(img, ch.Name)
	return ch, nil
}

func (e *Editor) findCharacter(ref string) (config.Character, error) {
	ref = strings.TrimSpace(ref)
	if i, err := strconv.Atoi(ref); err == nil {
		if i >= 0 && i < len(e.cfg.Characters) {
			return e.cfg.Characters[i], nil
		}
		return config.Character{}, fmt.Errorf("%w: index %d", ErrUnknownCharacter, i)
	}
	for _, ch := range e.cfg.Characters {
		if strings.EqualFold(ch.Name, ref) {
			return ch, nil
		}
	}
	return config.Character{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, ref)
}

// Clear reloads the active base image, or blanks the canvas when none is
// loaded. History starts over either way.
func (e *Editor) Clear() {
	if e.base != nil {
		e.LoadBase(e.base, e.baseName)
		return
	}
	e.resetCanvas(e.buf.Width(), e.buf.Height())
}

// ToLineArt turns the active base image (or the current canvas when none is
// loaded) into a black-on-white coloring page and loads it as the new base.
func (e *Editor) ToLineArt(threshold uint8) {
	src := e.base
	if src == nil {
		src = e.buf.Clone().Image()
	}
	name := "line art"
	if e.baseName != "" {
		name = e.baseName + " (line art)"
	}
	e.LoadBase(raster.LineArt(src, threshold).Image(), name)
}

// Undo restores the previous history entry. Any overlay is cancelled and
// an open stroke is closed first. It reports whether anything was undone;
// undoing past the oldest entry is a silent no-op.
func (e *Editor) Undo() (bool, error) {
	if _, err := e.comp.Cancel(e.buf); err != nil {
		return false, err
	}
	e.finishStroke()

	snap, err := e.hist.Undo()
	if errors.Is(err, history.ErrUnderflow) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := e.buf.Restore(snap); err != nil {
		return false, err
	}
	e.logger.Debug("undo", "cursor", e.hist.Cursor())
	return true, nil
}

// Pixel returns the canvas color at (x, y).
func (e *Editor) Pixel(x, y int) color.NRGBA { return e.buf.Get(x, y) }

// Snapshot copies the canvas.
func (e *Editor) Snapshot() raster.Snapshot { return e.buf.Snapshot() }

// Image returns a copy of the canvas.
func (e *Editor) Image() *image.NRGBA { return e.buf.Clone().Image() }

// Sample describes the canvas pixel at (x, y).
func (e *Editor) Sample(x, y int) (*raster.ColorResult, error) {
	return raster.SampleColor(e.buf.Image(), x, y)
}

// ExportPNG encodes the canvas, scaled by factor.
func (e *Editor) ExportPNG(scale float64) (*raster.ExportResult, error) {
	return raster.ExportPNG(e.buf.Image(), scale)
}

// WritePNG writes the canvas to path.
func (e *Editor) WritePNG(path string, scale float64) (*raster.ExportResult, error) {
	return raster.WritePNG(path, e.buf.Image(), scale)
}

// PrintPDF writes a printable page of the canvas.
func (e *Editor) PrintPDF(w io.Writer) error {
	return raster.PrintPDF(w, e.buf.Image(), e.title())
}

// WritePDF writes a printable page of the canvas to path.
func (e *Editor) WritePDF(path string) (*raster.ExportResult, error) {
	return raster.WritePDF(path, e.buf.Image(), e.title())
}

func (e *Editor) title() string {
	if e.baseName != "" {
		return e.baseName
	}
	return "Coloring Page"
}

// State summarizes the session.
type State struct {
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Base         string           `json:"base,omitempty"`
	Tool         ToolState        `json:"tool"`
	History      history.Stats    `json:"history"`
	CanUndo      bool             `json:"can_undo"`
	Stroking     bool             `json:"stroking"`
	Pending      bool             `json:"pending"`
	OverlayState string           `json:"overlay_state"`
	Overlay      *overlay.Overlay `json:"overlay,omitempty"`
}

// Pending reports whether the canvas differs from the current history
// entry, as it does during an open stroke or an overlay preview.
func (e *Editor) Pending() bool {
	cur, ok, err := e.hist.Current()
	if err != nil || !ok {
		return true
	}
	return !e.buf.Snapshot().Equal(cur)
}

// State returns a summary of the session.
func (e *Editor) State() State {
	s := State{
		Width:        e.buf.Width(),
		Height:       e.buf.Height(),
		Base:         e.baseName,
		Tool:         e.ToolState(),
		History:      e.hist.Stats(),
		CanUndo:      e.hist.CanUndo(),
		Stroking:     e.stroke.Active(),
		Pending:      e.Pending(),
		OverlayState: e.comp.State().String(),
	}
	if o, ok := e.comp.Overlay(); ok {
		s.Overlay = &o
	}
	return s
}
