package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// ErrMissingGlyph is returned when the font cannot draw a character of the
// overlay content. Go Regular, the default face, has no emoji glyphs.
var ErrMissingGlyph = errors.New("font has no glyph for character")

// Renderer draws an overlay onto dst. opacity scales the overlay color's
// alpha and lies in [0, 1].
type Renderer interface {
	Render(dst draw.Image, o Overlay, opacity float64) error
}

// FontRenderer draws overlay content with an OpenType font, centered on the
// anchor and rotated around it.
//
// The default face is Go Regular, which has no emoji glyphs. Load a
// monochrome emoji font such as Noto Emoji with LoadFontRenderer to draw
// stickers. Content with a character the font lacks fails with
// ErrMissingGlyph rather than drawing the font's placeholder box.
// Variation selectors and zero width joiners are dropped before drawing.
type FontRenderer struct {
	font   *opentype.Font
	filter draw.Interpolator
}

// NewFontRenderer parses an OpenType/TrueType font. A nil slice selects Go
// Regular.
func NewFontRenderer(ttf []byte) (*FontRenderer, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &FontRenderer{font: f, filter: draw.BiLinear}, nil
}

// LoadFontRenderer reads a font file from disk.
func LoadFontRenderer(path string) (*FontRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	return NewFontRenderer(data)
}

var (
	defaultOnce     sync.Once
	defaultRenderer *FontRenderer
	defaultErr      error
)

// DefaultRenderer returns a shared Go Regular renderer.
func DefaultRenderer() (*FontRenderer, error) {
	defaultOnce.Do(func() {
		defaultRenderer, defaultErr = NewFontRenderer(nil)
	})
	return defaultRenderer, defaultErr
}

// Render implements Renderer.
//
// Parameters:
//   - dst: Image drawn onto with the Over operator. Nothing outside the
//     rotated glyph run is touched.
//   - o: Overlay whose Content is drawn Size pixels tall, centered on
//     (X, Y) and rotated clockwise by Rotation degrees.
//   - opacity: Alpha scale for o.Color, clamped to [0, 1].
//
// # Errors
//
//   - ErrEmptyContent when o.Content is empty
//   - ErrMissingGlyph when the font lacks a character of o.Content; dst is
//     left untouched
//   - a wrapped error when the font face cannot be created
func (r *FontRenderer) Render(dst draw.Image, o Overlay, opacity float64) error {
	if o.Content == "" {
		return ErrEmptyContent
	}
	if ch, ok := r.missingGlyph(o.Content); ok {
		return fmt.Errorf("%w: %U in %q", ErrMissingGlyph, ch, o.Content)
	}

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(o.Size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	glyphs := rasterizeRun(face, stripJoiners(o.Content), scaleAlpha(o.Color, opacity))
	if glyphs == nil {
		return nil
	}

	// Glyph run center maps onto the anchor.
	cx := float64(glyphs.Bounds().Dx()) / 2
	cy := float64(glyphs.Bounds().Dy()) / 2
	sin, cos := math.Sincos(o.Rotation * math.Pi / 180)
	x, y := float64(o.X), float64(o.Y)

	s2d := f64.Aff3{
		cos, -sin, x - cos*cx + sin*cy,
		sin, cos, y - sin*cx - cos*cy,
	}
	r.filter.Transform(dst, s2d, glyphs, glyphs.Bounds(), draw.Over, nil)
	return nil
}

// HasGlyphs reports whether every drawn character of text has a glyph in
// the font.
func (r *FontRenderer) HasGlyphs(text string) bool {
	_, missing := r.missingGlyph(text)
	return !missing
}

// missingGlyph returns the first character of text that maps to glyph 0,
// the font's notdef box.
func (r *FontRenderer) missingGlyph(text string) (rune, bool) {
	var buf sfnt.Buffer
	for _, ch := range stripJoiners(text) {
		idx, err := r.font.GlyphIndex(&buf, ch)
		if err != nil || idx == 0 {
			return ch, true
		}
	}
	return 0, false
}

// stripJoiners removes variation selectors and zero width joiners, which
// modify neighboring emoji but have no outline of their own.
func stripJoiners(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f') {
			return -1
		}
		return r
	}, text)
}

// rasterizeRun draws text onto a tight transparent image. It returns nil
// when the run has no extent.
func rasterizeRun(face font.Face, text string, c color.NRGBA) *image.NRGBA {
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	d.DrawString(text)
	return img
}

func scaleAlpha(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}
