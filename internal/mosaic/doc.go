// Package mosaic turns a source picture into blocky pixel art through a
// short animation of ever finer grids.
//
// # Frames
//
// Prepare draws the source into a D x D working buffer once (D defaults to
// 512). Pixelate then renders one frame from that working buffer: a
// nearest-neighbor reduction to N x N cells followed by a nearest-neighbor
// enlargement back to D x D. Frames never derive from one another, so the
// last frame of a run is byte-identical to pixelating straight at the
// target grid, and repeated runs over the same source produce the same
// bytes.
//
// # Plans
//
// A Plan lists the grid resolutions to step through, in cells per axis.
// DefaultPlan is 4, 6, 8, 10, 12, 16, 20, 24, 28, 32. FromBlockSizes
// accepts block sizes in pixels instead and converts each to
// ceil(D/blockSize) cells.
//
// # Runs
//
// Pixelator.Run plays a plan on a goroutine, writing frame i after i
// intervals (150ms by default). Starting a new run cancels the previous one
// with ErrSuperseded and waits for its goroutine before the new one starts;
// Cancel does the same with ErrCancelled. One interval after the last frame
// the run is finalized, which enables Export, and Status reports a short
// completion pulse.
//
// Status labels advance with progress: label index is
// min(floor(i/total*6), 5) for step index i.
//
// # Thread Safety
//
// Pixelator is safe for concurrent use. Prepare, Pixelate, Frames,
// GridOverlay and Palette are pure functions.
package mosaic
