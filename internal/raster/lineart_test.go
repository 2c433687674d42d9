package raster

import (
	"image/color"
	"testing"
)

func TestLineArt(t *testing.T) {
	// A filled dark square on a light background has edges along its border
	// and nothing in the flat areas.
	src := NewFilled(40, 40, color.NRGBA{230, 230, 230, 255})
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			src.Set(x, y, color.NRGBA{20, 20, 20, 255})
		}
	}

	out := LineArt(src, 0)
	if out.Width() != 40 || out.Height() != 40 {
		t.Fatalf("size: got %dx%d, want 40x40", out.Width(), out.Height())
	}

	if got := out.Get(2, 2); got != white {
		t.Errorf("flat background: got %v, want white", got)
	}
	if got := out.Get(20, 20); got != white {
		t.Errorf("flat interior: got %v, want white", got)
	}

	black := color.NRGBA{0, 0, 0, 255}
	found := false
	for x := 8; x <= 11; x++ {
		if out.Get(x, 20) == black {
			found = true
			break
		}
	}
	if !found {
		t.Error("no outline found along the square's left edge")
	}

	for i := 0; i < len(out.Pix()); i += 4 {
		p := out.Pix()[i : i+4]
		if p[3] != 255 || (p[0] != 0 && p[0] != 255) {
			t.Fatalf("pixel %d is not pure black or white: %v", i/4, p)
		}
	}
}
