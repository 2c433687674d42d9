package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// NamedColor is a palette entry offered to the coloring tools.
type NamedColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Palette is the coloring studio's swatch list, in display order.
var Palette = []NamedColor{
	{"Red", "#FF6B6B"}, {"Turquoise", "#4ECDC4"}, {"Sky Blue", "#45B7D1"}, {"Light Salmon", "#FFA07A"},
	{"Mint", "#98D8C8"}, {"Golden Yellow", "#F7DC6F"}, {"Purple", "#BB8FCE"}, {"Light Blue", "#85C1E2"},
	{"Orange", "#F8B739"}, {"Green", "#52B788"}, {"Crimson", "#E63946"}, {"Steel Blue", "#457B9D"},
	{"Coral", "#F4A261"}, {"Teal", "#2A9D8F"}, {"Dark Orange", "#E76F51"}, {"Dark Slate", "#264653"},
	{"Black", "#000000"}, {"White", "#FFFFFF"}, {"Brown", "#8B4513"}, {"Light Pink", "#FFB6C1"},
}

// ParseColor converts a color string into an opaque NRGBA value.
//
// Accepted forms are "#RRGGBB", "#RGB" (the leading '#' is optional) and the
// name of a Palette entry, compared case-insensitively. Anything else fails
// with ErrInvalidColor.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string: %w", ErrInvalidColor)
	}
	for _, nc := range Palette {
		if strings.EqualFold(nc.Name, s) {
			s = nc.Hex
			break
		}
	}
	if s[0] != '#' {
		s = "#" + s
	}
	if !isHexDigits(s[1:]) || (len(s) != 4 && len(s) != 7) {
		return color.NRGBA{}, fmt.Errorf("parse %q: %w", s, ErrInvalidColor)
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse %q: %w", s, ErrInvalidColor)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

func isHexDigits(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Hex formats a color as "#RRGGBB", ignoring alpha.
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B)
}

// RGBAColor holds 8-bit color components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"` // 0 = fully transparent, 255 = opaque
}

// HSLColor holds a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult describes one pixel in several notations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // "#RRGGBB", alpha excluded
	RGBA RGBAColor `json:"rgba"` // straight (non-premultiplied) components
	HSL  HSLColor  `json:"hsl"`
	Name string    `json:"name,omitempty"` // palette name on exact match
}

// SampleColor reads the pixel at (x, y).
//
// Unlike Buffer.Get, sampling reports out-of-range coordinates as
// ErrOutOfBounds so that callers inspecting the canvas get a clear answer.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if !(image.Point{X: x, Y: y}).In(bounds) {
		return nil, fmt.Errorf("sample (%d,%d): %w", x, y, ErrOutOfBounds)
	}

	n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	h, s, l := colorful.Color{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
	}.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	res := &ColorResult{
		Hex:  Hex(n),
		RGBA: RGBAColor{R: n.R, G: n.G, B: n.B, A: n.A},
		HSL:  HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
	}
	for _, nc := range Palette {
		if nc.Hex == res.Hex {
			res.Name = nc.Name
			break
		}
	}
	return res, nil
}
