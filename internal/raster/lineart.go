package raster

import (
	"image"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// DefaultLineArtThreshold is the edge strength (0-255) above which a pixel
// becomes an outline.
const DefaultLineArtThreshold = 96

// LineArt turns an arbitrary picture into a coloring page: black outlines
// on a white background.
//
// The pipeline is:
//
//  1. Grayscale conversion
//  2. Sobel gradient magnitude of the image and of its negative, merged
//     with a lighten blend so rising and falling edges both register
//  3. Threshold at the given level, giving white edges on black
//  4. Inversion, giving black edges on white
//
// The result is opaque so flood fill regions are well defined: every pixel
// is either pure black or pure white.
func LineArt(img image.Image, threshold uint8) *Buffer {
	if threshold == 0 {
		threshold = DefaultLineArtThreshold
	}
	gray := effect.Grayscale(img)
	edges := blend.Lighten(effect.Sobel(gray), effect.Sobel(effect.Invert(gray)))
	mask := segment.Threshold(edges, threshold)
	return FromImage(effect.Invert(mask))
}
