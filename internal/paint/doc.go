// Package paint implements the coloring tools that mutate a raster.Buffer in
// place: flood fill and the circular paint/erase brush.
//
// Both tools run to completion synchronously. Neither records history; the
// caller snapshots the buffer at the completion point (a fill that changed
// pixels, or the end of a stroke).
//
// # Flood Fill
//
// FillColor repaints the 4-connected region of pixels whose RGBA value
// exactly equals the seed pixel. There is no color tolerance. The
// traversal uses an explicit stack and a visited set, so very large regions
// never deepen the Go call stack.
//
// # Brush
//
// A Brush stamps filled discs. By default every pointer sample produces
// exactly one stamp and fast pointer motion can leave gaps between stamps;
// setting Interpolate walks a Bresenham line between samples instead.
package paint
