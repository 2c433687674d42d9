package paint

import (
	"image/color"

	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// Mode selects what a brush stamp writes.
type Mode int

const (
	// ModePaint writes the brush's paint color.
	ModePaint Mode = iota
	// ModeErase writes the background color.
	ModeErase
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeErase {
		return "erase"
	}
	return "paint"
}

// Brush is a circular stamp.
type Brush struct {
	// Radius is the disc radius in pixels. A radius of 0 paints one pixel.
	Radius int

	// Paint is the color written in ModePaint.
	Paint color.NRGBA

	// Background is the color written in ModeErase: the canvas background,
	// or transparent when the canvas erases to transparency.
	Background color.NRGBA

	// Interpolate stamps along the segment between successive samples of a
	// stroke instead of only at each sample.
	Interpolate bool
}

func (b Brush) colorFor(mode Mode) color.NRGBA {
	if mode == ModeErase {
		return b.Background
	}
	return b.Paint
}

// Stamp composites one filled disc centered at (x, y). Pixels outside the
// buffer are skipped. It returns the number of pixels written.
func (b Brush) Stamp(buf *raster.Buffer, x, y int, mode Mode) int {
	return StampDisc(buf, x, y, b.Radius, b.colorFor(mode))
}

// StampDisc writes c to every pixel whose center lies within radius of
// (cx, cy), i.e. dx*dx + dy*dy <= radius*radius.
func StampDisc(buf *raster.Buffer, cx, cy, radius int, c color.NRGBA) int {
	if radius < 0 {
		radius = 0
	}
	r2 := radius * radius
	n := 0
	for dy := -radius; dy <= radius; dy++ {
		y := cy + dy
		if y < 0 || y >= buf.Height() {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			x := cx + dx
			if !buf.InBounds(x, y) {
				continue
			}
			buf.SetNRGBA(x, y, c)
			n++
		}
	}
	return n
}

// Segment stamps the brush at every point of the Bresenham line from
// (x0, y0) to (x1, y1), both ends included.
func (b Brush) Segment(buf *raster.Buffer, x0, y0, x1, y1 int, mode Mode) int {
	c := b.colorFor(mode)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	n := 0
	for {
		n += StampDisc(buf, x0, y0, b.Radius, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
	return n
}

// Stroke tracks one pointer-down .. pointer-up gesture.
//
// Each Move issues stamps immediately; nothing is buffered. Callers capture
// history once, after End, when Pixels reports that the stroke touched the
// buffer.
type Stroke struct {
	brush  Brush
	mode   Mode
	active bool
	lastX  int
	lastY  int
	stamps int
	pixels int
}

// Begin starts a stroke and stamps at the initial point.
func (s *Stroke) Begin(buf *raster.Buffer, b Brush, mode Mode, x, y int) {
	s.brush = b
	s.mode = mode
	s.active = true
	s.stamps = 0
	s.pixels = 0
	s.lastX, s.lastY = x, y
	s.pixels += b.Stamp(buf, x, y, mode)
	s.stamps++
}

// Move stamps at (x, y), or along the segment from the previous sample when
// the brush interpolates. It is a no-op when no stroke is active.
func (s *Stroke) Move(buf *raster.Buffer, x, y int) {
	if !s.active {
		return
	}
	if s.brush.Interpolate {
		s.pixels += s.brush.Segment(buf, s.lastX, s.lastY, x, y, s.mode)
	} else {
		s.pixels += s.brush.Stamp(buf, x, y, s.mode)
	}
	s.lastX, s.lastY = x, y
	s.stamps++
}

// End finishes the stroke and reports whether one was active.
func (s *Stroke) End() bool {
	was := s.active
	s.active = false
	return was
}

// Active reports whether a stroke is in progress.
func (s *Stroke) Active() bool { return s.active }

// Stamps returns the number of stamp calls issued by the current or last
// stroke.
func (s *Stroke) Stamps() int { return s.stamps }

// Pixels returns the number of in-bounds pixel writes of the current or
// last stroke. Zero means every stamp fell outside the buffer.
func (s *Stroke) Pixels() int { return s.pixels }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
