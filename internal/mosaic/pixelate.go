package mosaic

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// Prepare draws src into a size x size working buffer.
//
// A nil or empty source fails with raster.ErrSourceLoad.
func Prepare(src image.Image, size int) (*raster.Buffer, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty mosaic source", raster.ErrSourceLoad)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: working size %d", ErrInvalidPlan, size)
	}
	return raster.FromImage(raster.Fit(src, size, size)), nil
}

// Pixelate renders one frame: work is reduced to cells x cells with
// nearest-neighbor sampling, then scaled back to its own size with
// nearest-neighbor so every block is one flat color.
//
// Cell counts above the working size are clamped to it. The frame depends
// only on work and cells.
func Pixelate(work *raster.Buffer, cells int) *raster.Buffer {
	w, h := work.Width(), work.Height()
	cw, ch := clampCells(cells, w), clampCells(cells, h)

	small := imaging.Resize(work.Image(), cw, ch, imaging.NearestNeighbor)
	return raster.FromImage(imaging.Resize(small, w, h, imaging.NearestNeighbor))
}

func clampCells(cells, dim int) int {
	if cells < 1 {
		return 1
	}
	if cells > dim {
		return dim
	}
	return cells
}

// Frames renders every step of plan synchronously.
func Frames(work *raster.Buffer, plan Plan) []*raster.Buffer {
	frames := make([]*raster.Buffer, len(plan.Cells))
	for i, c := range plan.Cells {
		frames[i] = Pixelate(work, c)
	}
	return frames
}
