package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Sentinel errors shared by the engine packages.
var (
	// ErrInvalidColor is returned when a color string cannot be parsed.
	ErrInvalidColor = errors.New("invalid color")

	// ErrOutOfBounds is returned when a coordinate lies outside the buffer.
	// Tool logic treats it as a silent no-op.
	ErrOutOfBounds = errors.New("coordinates outside buffer")

	// ErrSizeMismatch is returned when a snapshot is restored into a buffer
	// of different dimensions.
	ErrSizeMismatch = errors.New("snapshot size does not match buffer")

	// ErrSourceLoad is returned when a source image cannot be loaded,
	// decoded, or fetched in time.
	ErrSourceLoad = errors.New("source image load failed")
)

// Buffer is a fixed-size raster of non-premultiplied RGBA pixels.
//
// The pixel data is a flat byte slice of 4*W*H bytes, row-major, with the
// origin at the top-left corner. Buffer implements draw.Image so it can be
// handed directly to image encoders and the x/image drawing routines.
//
// Set ignores coordinates outside [0,W)x[0,H) and At returns transparent
// black for them; neither ever panics. Buffer is not safe for concurrent
// mutation: exactly one engine call may hold it at a time.
type Buffer struct {
	img *image.NRGBA
}

// New creates a transparent buffer of the given size.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// NewFilled creates a buffer with every pixel set to c.
func NewFilled(width, height int, c color.Color) *Buffer {
	b := New(width, height)
	b.Fill(c)
	return b
}

// FromImage copies img into a new buffer whose origin is (0,0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	b := New(bounds.Dx(), bounds.Dy())
	draw.Draw(b.img, b.img.Bounds(), img, bounds.Min, draw.Src)
	return b
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.img.Rect.Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.img.Rect.Dy() }

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle { return b.img.Rect }

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color { return b.Get(x, y) }

// Set implements draw.Image. Out-of-range coordinates are ignored.
func (b *Buffer) Set(x, y int, c color.Color) {
	if !b.InBounds(x, y) {
		return
	}
	b.img.SetNRGBA(x, y, color.NRGBAModel.Convert(c).(color.NRGBA))
}

// Get returns the pixel at (x, y), or transparent black when out of range.
func (b *Buffer) Get(x, y int) color.NRGBA {
	if !b.InBounds(x, y) {
		return color.NRGBA{}
	}
	return b.img.NRGBAAt(x, y)
}

// SetNRGBA writes c at (x, y) without color model conversion.
func (b *Buffer) SetNRGBA(x, y int, c color.NRGBA) {
	if !b.InBounds(x, y) {
		return
	}
	i := b.img.PixOffset(x, y)
	p := b.img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// InBounds reports whether (x, y) addresses a pixel of the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.img.Rect.Max.X && y < b.img.Rect.Max.Y
}

// Pix exposes the underlying RGBA bytes. Writes through the slice mutate
// the buffer.
func (b *Buffer) Pix() []byte { return b.img.Pix }

// Image returns the buffer as an *image.NRGBA sharing the same pixels.
func (b *Buffer) Image() *image.NRGBA { return b.img }

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.Color) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	pix := b.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = n.R, n.G, n.B, n.A
	}
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]byte, len(b.img.Pix))
	copy(pix, b.img.Pix)
	return &Buffer{img: &image.NRGBA{Pix: pix, Stride: b.img.Stride, Rect: b.img.Rect}}
}

// Equal reports whether two buffers have the same size and identical bytes.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil {
		return false
	}
	return b.img.Rect == other.img.Rect && bytes.Equal(b.img.Pix, other.img.Pix)
}

// Snapshot is an immutable copy of a buffer's pixel data.
//
// The zero Snapshot is empty; IsZero reports that case.
type Snapshot struct {
	width  int
	height int
	pix    []byte
}

// Snapshot captures the current pixel data.
func (b *Buffer) Snapshot() Snapshot {
	pix := make([]byte, len(b.img.Pix))
	copy(pix, b.img.Pix)
	return Snapshot{width: b.Width(), height: b.Height(), pix: pix}
}

// Restore overwrites every pixel with the snapshot contents.
func (b *Buffer) Restore(s Snapshot) error {
	if s.width != b.Width() || s.height != b.Height() || len(s.pix) != len(b.img.Pix) {
		return fmt.Errorf("restore %dx%d into %dx%d: %w", s.width, s.height, b.Width(), b.Height(), ErrSizeMismatch)
	}
	copy(b.img.Pix, s.pix)
	return nil
}

// NewSnapshot builds a snapshot from raw RGBA bytes. The slice is copied.
func NewSnapshot(width, height int, pix []byte) (Snapshot, error) {
	if width < 0 || height < 0 || len(pix) != 4*width*height {
		return Snapshot{}, fmt.Errorf("snapshot %dx%d with %d bytes: %w", width, height, len(pix), ErrSizeMismatch)
	}
	cp := make([]byte, len(pix))
	copy(cp, pix)
	return Snapshot{width: width, height: height, pix: cp}, nil
}

// Width returns the snapshot width.
func (s Snapshot) Width() int { return s.width }

// Height returns the snapshot height.
func (s Snapshot) Height() int { return s.height }

// IsZero reports whether the snapshot holds no data.
func (s Snapshot) IsZero() bool { return s.pix == nil }

// Bytes returns a copy of the snapshot's RGBA bytes.
func (s Snapshot) Bytes() []byte {
	cp := make([]byte, len(s.pix))
	copy(cp, s.pix)
	return cp
}

// Len returns the number of pixel bytes held by the snapshot.
func (s Snapshot) Len() int { return len(s.pix) }

// Equal reports whether two snapshots hold identical pixels.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.width == other.width && s.height == other.height && bytes.Equal(s.pix, other.pix)
}
