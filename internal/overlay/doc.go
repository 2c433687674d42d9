// Package overlay places transient text and emoji stickers on a coloring
// page before they become permanent pixels.
//
// # Lifecycle
//
// A Compositor moves through three states:
//
//	idle --Add--> placed --DragStart--> dragging --DragEnd--> placed
//	placed --Commit/Cancel--> idle
//
// Add captures a snapshot of the buffer. Each later transform update
// (size, rotation, move or drag) restores that snapshot and draws the
// overlay again as a semi-transparent preview. Commit draws it once more at
// full opacity and leaves the pixels in place; Cancel restores the snapshot.
//
// The compositor never records history. The editor pushes a history entry
// after a successful Commit.
//
// # Rendering
//
// Drawing goes through the Renderer interface. FontRenderer rasterizes the
// glyph run with golang.org/x/image/font/opentype onto a scratch image, then
// maps it onto the buffer with an affine transform (golang.org/x/image/draw)
// that centers it on the anchor and rotates it clockwise.
package overlay
