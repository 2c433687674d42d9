// Package raster provides the pixel buffer shared by every canvas tool, plus
// the image plumbing around it: color parsing, source loading, export and
// line-art conversion.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// A Buffer never rejects a coordinate by panicking. Set ignores pixels
// outside [0,W)x[0,H) and Get returns transparent black for them. Tools that
// need to know (flood fill, color sampling) report ErrOutOfBounds instead,
// and the editor treats that as a silent no-op.
//
// # Pixel Format
//
// Buffers store straight (non-premultiplied) RGBA, 8 bits per channel,
// 4*W*H bytes in row-major order. This matches what an HTML canvas exposes
// through ImageData and keeps exact-equality flood fill meaningful for
// partially transparent pixels.
//
// # Snapshots
//
// Snapshot is an immutable full copy of a buffer's bytes. Snapshots are the
// unit stored in undo history and the overlay compositor's restore point.
// Restore overwrites the whole buffer and refuses snapshots of a different
// size with ErrSizeMismatch.
//
// # Sources
//
// Loader resolves file paths, http(s) URLs and ipfs:// URIs, decodes PNG,
// JPEG, GIF, BMP and WebP, and applies a load timeout. Every failure wraps
// ErrSourceLoad so callers can abort a fill or pixelation sequence without
// touching their output buffers.
//
// # Thread Safety
//
// SourceCache and Loader are safe for concurrent use. Buffer is not: the
// editing session owns its buffer and passes it explicitly to one engine
// call at a time.
package raster
