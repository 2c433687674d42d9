// Package editor runs one coloring session: the canvas, the selected tool,
// undo history and the overlay being placed.
//
// Pointer events arrive as PointerDown, PointerMove and PointerUp. With the
// fill tool a press fills the region under the pointer; with the brush or
// eraser a press opens a stroke, every move stamps once (or along the
// segment from the previous sample when interpolation is configured) and
// the release closes it.
//
// History is recorded only at completion points: a fill that changed
// pixels, the end of a stroke, a locked overlay, and a newly loaded or
// cleared base image, which also discards all earlier entries.
//
// While an overlay is placed, presses that miss it fail with
// ErrOverlayActive. Selecting another tool, undoing, or loading a new base
// cancels the overlay without recording history.
package editor
