package paint

import (
	"errors"
	"image/color"
	"testing"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
	red   = color.NRGBA{255, 0, 0, 255}
	blue  = color.NRGBA{0, 0, 255, 255}
)

// createBorderedBuffer returns a white buffer with a 1-pixel black border.
func createBorderedBuffer(width, height int) *raster.Buffer {
	b := raster.NewFilled(width, height, white)
	for x := 0; x < width; x++ {
		b.Set(x, 0, black)
		b.Set(x, height-1, black)
	}
	for y := 0; y < height; y++ {
		b.Set(0, y, black)
		b.Set(width-1, y, black)
	}
	return b
}

func TestFill_WholeBuffer(t *testing.T) {
	b := raster.NewFilled(10, 10, white)

	res, err := Fill(b, 0, 0, "#FF0000")
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if !res.Changed {
		t.Error("Changed: got false, want true")
	}
	if res.Pixels != 100 {
		t.Errorf("Pixels: got %d, want 100", res.Pixels)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := b.Get(x, y); got != red {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, got, red)
			}
		}
	}
}

func TestFill_RespectsBorder(t *testing.T) {
	b := createBorderedBuffer(12, 9)

	if _, err := FillColor(b, 5, 5, blue); err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}

	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			border := x == 0 || y == 0 || x == 11 || y == 8
			got := b.Get(x, y)
			if border && got != black {
				t.Fatalf("border pixel (%d,%d): got %v, want black", x, y, got)
			}
			if !border && got != blue {
				t.Fatalf("interior pixel (%d,%d): got %v, want blue", x, y, got)
			}
		}
	}
}

func TestFill_FourConnectedOnly(t *testing.T) {
	// Two white pixels touching only diagonally are separate regions.
	b := raster.NewFilled(3, 3, black)
	b.Set(0, 0, white)
	b.Set(1, 1, white)

	res, err := FillColor(b, 0, 0, red)
	if err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}
	if res.Pixels != 1 {
		t.Errorf("Pixels: got %d, want 1", res.Pixels)
	}
	if got := b.Get(1, 1); got != white {
		t.Errorf("diagonal neighbour: got %v, want white", got)
	}
}

func TestFill_Idempotent(t *testing.T) {
	b := raster.NewFilled(6, 6, red)
	before := b.Snapshot()

	res, err := FillColor(b, 2, 2, red)
	if err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}
	if res.Changed || res.Pixels != 0 {
		t.Errorf("result: got %+v, want no change", res)
	}
	if !b.Snapshot().Equal(before) {
		t.Error("no-op fill mutated the buffer")
	}

	// Filling twice gives the same bytes as filling once.
	b2 := createBorderedBuffer(6, 6)
	_, _ = FillColor(b2, 3, 3, blue)
	once := b2.Snapshot()
	res, _ = FillColor(b2, 3, 3, blue)
	if res.Changed || !b2.Snapshot().Equal(once) {
		t.Error("second fill changed the buffer")
	}
}

func TestFill_ForcesOpaqueAlpha(t *testing.T) {
	b := raster.NewFilled(4, 4, white)

	if _, err := FillColor(b, 0, 0, color.NRGBA{0, 0, 255, 10}); err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}
	if got := b.Get(3, 3); got != blue {
		t.Errorf("pixel: got %v, want opaque blue", got)
	}
}

func TestFill_ExactMatchIncludesAlpha(t *testing.T) {
	b := raster.NewFilled(4, 1, white)
	b.Set(2, 0, color.NRGBA{255, 255, 255, 128})

	res, err := FillColor(b, 0, 0, red)
	if err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}
	if res.Pixels != 2 {
		t.Errorf("Pixels: got %d, want 2", res.Pixels)
	}
	if got := b.Get(3, 0); got != white {
		t.Errorf("pixel past translucent boundary: got %v, want white", got)
	}
}

func TestFill_InvalidColor(t *testing.T) {
	b := raster.NewFilled(4, 4, white)
	before := b.Snapshot()

	_, err := Fill(b, 1, 1, "#XYZXYZ")
	if !errors.Is(err, raster.ErrInvalidColor) {
		t.Fatalf("Fill: got %v, want ErrInvalidColor", err)
	}
	if !b.Snapshot().Equal(before) {
		t.Error("invalid color mutated the buffer")
	}
}

func TestFill_OutOfBounds(t *testing.T) {
	b := raster.NewFilled(4, 4, white)
	before := b.Snapshot()

	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"negative y", 0, -1},
		{"x too large", 4, 0},
		{"y too large", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FillColor(b, tt.x, tt.y, red)
			if !errors.Is(err, raster.ErrOutOfBounds) {
				t.Errorf("FillColor: got %v, want ErrOutOfBounds", err)
			}
		})
	}
	if !b.Snapshot().Equal(before) {
		t.Error("out-of-bounds fill mutated the buffer")
	}
}

func TestFill_LargeRegion(t *testing.T) {
	b := raster.NewFilled(700, 700, white)

	res, err := FillColor(b, 350, 350, blue)
	if err != nil {
		t.Fatalf("FillColor failed: %v", err)
	}
	if res.Pixels != 700*700 {
		t.Errorf("Pixels: got %d, want %d", res.Pixels, 700*700)
	}
}

func TestFill_NarrowBuffers(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"single row", 40, 1},
		{"single column", 1, 40},
		{"wide", 37, 3},
		{"tall", 3, 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := raster.NewFilled(tt.w, tt.h, white)
			res, err := FillColor(b, tt.w-1, tt.h-1, red)
			if err != nil {
				t.Fatalf("FillColor failed: %v", err)
			}
			if res.Pixels != tt.w*tt.h {
				t.Errorf("Pixels: got %d, want %d", res.Pixels, tt.w*tt.h)
			}
			if got := b.Get(0, 0); got != red {
				t.Errorf("far corner: got %v, want red", got)
			}
		})
	}
}
