// Package server implements the MCP (Model Context Protocol) server for the
// coloring canvas.
//
// This package provides a JSON-RPC 2.0 server that exposes one coloring
// session through the MCP protocol: a canvas with flood fill and brush
// tools, undo history, emoji and text overlays, and an animated pixel art
// generator.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Canvas Setup:
//   - canvas_new: Blank canvas
//   - canvas_load: Load a picture (path, URL or ipfs://) as the page
//   - canvas_load_character: Load a built-in character page
//   - canvas_characters: List character pages
//   - canvas_palette: List named swatch colors
//
// Tools and Painting:
//   - canvas_tool: Select tool, color and brush size
//   - canvas_pointer: Pointer down/move/up events
//   - canvas_fill: Flood fill at a point
//   - canvas_stroke: Paint a whole stroke
//   - canvas_undo: Undo the last action
//   - canvas_clear: Reload the page and clear history
//   - canvas_state: Session summary
//   - canvas_sample_color: Color at a pixel
//   - canvas_lineart: Convert the page to outlines
//
// Output:
//   - canvas_export: PNG export
//   - canvas_print: A4 PDF page
//
// Overlays:
//   - overlay_add, overlay_stickers, overlay_transform, overlay_drag,
//     overlay_lock, overlay_cancel
//
// Pixel Art Mosaic:
//   - mosaic_run, mosaic_status, mosaic_cancel, mosaic_export,
//     mosaic_grid, mosaic_palette
//
// # Session Model
//
// Requests are handled one at a time, so the editor session needs no
// locking. A mosaic run continues in the background after mosaic_run
// returns; its frames are written by the pixelator under its own lock and
// polled with mosaic_status. Runs live until the server closes.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv, err := server.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run()
package server
