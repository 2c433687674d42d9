package overlay

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"
)

var (
	// ErrNoOverlay is returned by operations that need a placed overlay.
	ErrNoOverlay = errors.New("no overlay placed")

	// ErrEmptyContent is returned when an overlay has nothing to draw.
	ErrEmptyContent = errors.New("overlay content is empty")

	// ErrInvalidKind is returned by ParseKind for unknown kinds.
	ErrInvalidKind = errors.New("invalid overlay kind")
)

// Kind distinguishes emoji stickers from text labels. The two kinds differ
// only in their size range and default size.
type Kind string

const (
	KindEmoji Kind = "emoji"
	KindText  Kind = "text"
)

// Size limits in pixels.
const (
	EmojiMinSize     = 20
	EmojiMaxSize     = 150
	EmojiDefaultSize = 50

	TextMinSize     = 12
	TextMaxSize     = 80
	TextDefaultSize = 32
)

// Emojis is the sticker set offered by the coloring studio.
var Emojis = []string{"⭐", "🔥", "💯", "😎", "😍", "🌀", "💥", "🕊️", "⚡", "🌈"}

// ParseKind converts a kind name. An empty string means emoji.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "emoji":
		return KindEmoji, nil
	case "text":
		return KindText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// SizeRange returns the allowed size range for the kind.
func (k Kind) SizeRange() (lo, hi int) {
	if k == KindText {
		return TextMinSize, TextMaxSize
	}
	return EmojiMinSize, EmojiMaxSize
}

// DefaultSize returns the size a new overlay of this kind starts with.
func (k Kind) DefaultSize() int {
	if k == KindText {
		return TextDefaultSize
	}
	return EmojiDefaultSize
}

// ClampSize limits size to the kind's range.
func (k Kind) ClampSize(size int) int {
	lo, hi := k.SizeRange()
	if size < lo {
		return lo
	}
	if size > hi {
		return hi
	}
	return size
}

// Overlay is a glyph run anchored at (X, Y), drawn Size pixels tall and
// rotated clockwise by Rotation degrees around the anchor.
type Overlay struct {
	ID       string      `json:"id"`
	Content  string      `json:"content"`
	Kind     Kind        `json:"kind"`
	X        int         `json:"x"`
	Y        int         `json:"y"`
	Size     int         `json:"size"`
	Rotation float64     `json:"rotation"`
	Color    color.NRGBA `json:"-"`
	Locked   bool        `json:"locked"`
}

// Contains reports whether (x, y) grabs the overlay: the pointer lies
// strictly closer to the anchor than the overlay size.
func (o Overlay) Contains(x, y int) bool {
	dx := float64(x - o.X)
	dy := float64(y - o.Y)
	return math.Hypot(dx, dy) < float64(o.Size)
}

// NormalizeRotation maps any angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
