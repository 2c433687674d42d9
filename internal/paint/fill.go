package paint

import (
	"fmt"
	"image/color"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// FillResult describes the outcome of a flood fill.
type FillResult struct {
	// Changed is false when the seed already had the fill color. A fill that
	// did not change anything must not produce a history entry.
	Changed bool `json:"changed"`

	// Pixels is the number of pixels repainted.
	Pixels int `json:"pixels"`

	// Seed is the color that was replaced, as "#RRGGBB".
	Seed string `json:"seed"`
}

// Fill parses fill and floods the region around (x0, y0) with it.
//
// A malformed color aborts with raster.ErrInvalidColor before the buffer is
// read or written.
func Fill(buf *raster.Buffer, x0, y0 int, fill string) (FillResult, error) {
	c, err := raster.ParseColor(fill)
	if err != nil {
		return FillResult{}, err
	}
	return FillColor(buf, x0, y0, c)
}

// point is a pixel coordinate on the work stack.
type point struct{ x, y int }

// FillColor replaces the maximal 4-connected region of pixels whose color
// exactly equals the seed pixel's color with c. The alpha of c is forced
// to 255.
//
// The algorithm uses an explicit work stack and a visited bitmap indexed by
// y*W+x, so the stack grows with the filled area only:
//
//  1. Read the seed color at (x0, y0).
//  2. If it already equals the fill color, return without mutation.
//  3. Push (x0, y0). Pop until empty: skip visited or out-of-range points,
//     mark visited, skip pixels that differ from the seed (the boundary),
//     otherwise paint and push the four axis neighbors.
//
// Parameters:
//   - buf: Buffer filled in place.
//   - x0, y0: Seed pixel.
//   - c: Fill color. Its alpha is ignored.
//
// Returns:
//   - FillResult: Changed and Pixels describe the mutation; Seed is the
//     replaced color.
//   - error: Non-nil only for a seed outside the buffer.
//
// # Errors
//
//   - raster.ErrOutOfBounds when (x0, y0) is outside buf; nothing is
//     written
func FillColor(buf *raster.Buffer, x0, y0 int, c color.NRGBA) (FillResult, error) {
	if !buf.InBounds(x0, y0) {
		return FillResult{}, fmt.Errorf("fill seed (%d,%d): %w", x0, y0, raster.ErrOutOfBounds)
	}

	c.A = 255
	seed := buf.Get(x0, y0)
	res := FillResult{Seed: raster.Hex(seed)}
	if seed == c {
		return res, nil
	}

	w := buf.Width()
	visited := make([]bool, w*buf.Height())
	stack := []point{{x0, y0}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !buf.InBounds(p.x, p.y) {
			continue
		}
		idx := p.y*w + p.x
		if visited[idx] {
			continue
		}
		visited[idx] = true

		if buf.Get(p.x, p.y) != seed {
			continue
		}
		buf.SetNRGBA(p.x, p.y, c)
		res.Pixels++

		stack = append(stack,
			point{p.x + 1, p.y},
			point{p.x - 1, p.y},
			point{p.x, p.y + 1},
			point{p.x, p.y - 1},
		)
	}

	res.Changed = res.Pixels > 0
	return res, nil
}
