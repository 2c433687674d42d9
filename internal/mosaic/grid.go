package mosaic

import (
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// GridOverlay draws the block boundaries of a cells x cells frame onto a
// copy of frame.
//
// Boundaries follow the same nearest-neighbor mapping Pixelate uses, so the
// lines sit exactly on the color changes between blocks even when the frame
// size is not a multiple of cells.
func GridOverlay(frame image.Image, cells int, lineColor color.NRGBA) *raster.Buffer {
	result := raster.FromImage(frame)
	width, height := result.Width(), result.Height()
	if cells <= 1 {
		return result
	}

	// Vertical lines
	for x := 1; x < width; x++ {
		if cellOf(x, cells, width) == cellOf(x-1, cells, width) {
			continue
		}
		for y := 0; y < height; y++ {
			result.SetNRGBA(x, y, lineColor)
		}
	}

	// Horizontal lines
	for y := 1; y < height; y++ {
		if cellOf(y, cells, height) == cellOf(y-1, cells, height) {
			continue
		}
		for x := 0; x < width; x++ {
			result.SetNRGBA(x, y, lineColor)
		}
	}

	return result
}

// cellOf maps pixel p of an axis of length dim to its cell.
func cellOf(p, cells, dim int) int {
	if cells > dim {
		cells = dim
	}
	return int((float64(p) + 0.5) * float64(cells) / float64(dim))
}

// PaletteColor is one distinct color of a frame.
type PaletteColor struct {
	Hex        string  `json:"hex"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // share of pixels (0-100)
	R          uint8   `json:"r"`
	G          uint8   `json:"g"`
	B          uint8   `json:"b"`
}

// Palette returns the n most frequent exact colors of frame, most common
// first. Ties are ordered by hex value. n <= 0 returns every color.
//
// Pixelated frames hold few distinct colors, so no quantization is applied.
func Palette(frame image.Image, n int) []PaletteColor {
	bounds := frame.Bounds()
	counts := make(map[color.NRGBA]int)
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(frame.At(x, y)).(color.NRGBA)
			c.A = 255
			counts[c]++
			total++
		}
	}

	colors := make([]PaletteColor, 0, len(counts))
	for c, cnt := range counts {
		hex := strings.ToUpper(colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}.Hex())
		colors = append(colors, PaletteColor{
			Hex:        hex,
			Count:      cnt,
			Percentage: float64(cnt) / float64(total) * 100,
			R:          c.R,
			G:          c.G,
			B:          c.B,
		})
	}

	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Count != colors[j].Count {
			return colors[i].Count > colors[j].Count
		}
		return colors[i].Hex < colors[j].Hex
	})

	if n > 0 && len(colors) > n {
		colors = colors[:n]
	}
	return colors
}
