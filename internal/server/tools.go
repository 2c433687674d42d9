package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// noArgs is the schema of tools that take no arguments.
func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Canvas Setup
		{
			Name:        "canvas_new",
			Description: "Start over on a blank white canvas. History is cleared.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas width in pixels. Default from config (700)",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas height in pixels. Default from config (700)",
					},
				},
			},
		},
		{
			Name:        "canvas_load",
			Description: "Load a picture as the coloring page. It is scaled to the canvas over the background color and history restarts from it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "File path, http(s) URL or ipfs:// URI of the image",
					},
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Read a file source from disk again instead of the cached copy",
					},
				},
				"required": []string{"source"},
			},
		},
		{
			Name:        "canvas_load_character",
			Description: "Load one of the built-in character coloring pages by name or 0-based index.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"character": map[string]interface{}{
						"type":        "string",
						"description": "Character name (case-insensitive) or index, see canvas_characters",
					},
				},
				"required": []string{"character"},
			},
		},
		{
			Name:        "canvas_characters",
			Description: "List the character coloring pages available to canvas_load_character.",
			InputSchema: noArgs(),
		},
		{
			Name:        "canvas_palette",
			Description: "List the named swatch colors. Names are accepted wherever a color is.",
			InputSchema: noArgs(),
		},

		// Tools and Painting
		{
			Name:        "canvas_tool",
			Description: "Select the active tool, paint color and brush size. Omitted fields are left unchanged. Switching tools cancels an unlocked overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"fill", "brush", "eraser"},
						"description": "Tool to select",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Paint color as #RRGGBB, #RGB or a swatch name",
					},
					"brush_size": map[string]interface{}{
						"type":        "integer",
						"description": "Brush diameter in pixels, clamped to 5-50",
					},
				},
			},
		},
		{
			Name:        "canvas_pointer",
			Description: "Send a pointer event. With fill, 'down' fills the region. With brush or eraser, 'down' starts a stroke, 'move' stamps and 'up' finishes it. On a placed overlay the events drag it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"event": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"down", "move", "up"},
						"description": "Pointer event type",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"event", "x", "y"},
			},
		},
		{
			Name:        "canvas_fill",
			Description: "Flood fill the 4-connected region of identical color at (x, y). Filling with the region's own color changes nothing and records no history.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Seed X coordinate",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Seed Y coordinate",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Fill color. Default: current paint color",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "canvas_stroke",
			Description: "Paint a whole brush or eraser stroke through the given points and record it as one undo step.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "integer"},
								"y": map[string]interface{}{"type": "integer"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Pointer samples in order",
					},
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "canvas_undo",
			Description: "Undo the last fill, stroke or locked overlay. Undoing past the loaded page does nothing.",
			InputSchema: noArgs(),
		},
		{
			Name:        "canvas_clear",
			Description: "Reload the current coloring page (or blank the canvas) and clear history.",
			InputSchema: noArgs(),
		},
		{
			Name:        "canvas_state",
			Description: "Report canvas size, tool, history and overlay state.",
			InputSchema: noArgs(),
		},
		{
			Name:        "canvas_sample_color",
			Description: "Get the exact color value at a canvas pixel.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "canvas_lineart",
			Description: "Turn the current page into black outlines on white and load that as the coloring page.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Edge strength 1-255 that becomes an outline. Default 96",
						"default":     96,
					},
				},
			},
		},

		// Output
		{
			Name:        "canvas_export",
			Description: "Export the canvas as PNG, returned as base64 or written to output_path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file path. Relative paths use the configured output directory",
					},
				},
			},
		},
		{
			Name:        "canvas_print",
			Description: "Lay the canvas out on a printable A4 PDF page, returned as base64 or written to output_path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file path. Relative paths use the configured output directory",
					},
				},
			},
		},

		// Overlays
		{
			Name:        "overlay_add",
			Description: "Place an emoji sticker or text at the canvas center as a semi-transparent preview. Replaces any unlocked overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Emoji or text to place",
					},
					"kind": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"emoji", "text"},
						"description": "Overlay kind. Default emoji",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Overlay color. Default: current paint color",
					},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        "overlay_stickers",
			Description: "List the emoji sticker set. available is false for stickers the overlay font cannot draw; set overlay.font_path to an emoji font such as Noto Emoji.",
			InputSchema: noArgs(),
		},
		{
			Name:        "overlay_transform",
			Description: "Resize, rotate or move the placed overlay. Sizes are clamped (emoji 20-150, text 12-80) and rotation is normalized to [0, 360).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Size in pixels",
					},
					"rotation": map[string]interface{}{
						"type":        "number",
						"description": "Rotation in degrees, clockwise",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Anchor X coordinate",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Anchor Y coordinate",
					},
				},
			},
		},
		{
			Name:        "overlay_drag",
			Description: "Grab the placed overlay at (from_x, from_y) and drop it at (to_x, to_y). The grab point must lie on the overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"from_x": map[string]interface{}{"type": "integer"},
					"from_y": map[string]interface{}{"type": "integer"},
					"to_x":   map[string]interface{}{"type": "integer"},
					"to_y":   map[string]interface{}{"type": "integer"},
				},
				"required": []string{"from_x", "from_y", "to_x", "to_y"},
			},
		},
		{
			Name:        "overlay_lock",
			Description: "Draw the placed overlay into the canvas at full opacity and record an undo step.",
			InputSchema: noArgs(),
		},
		{
			Name:        "overlay_cancel",
			Description: "Remove the placed overlay and restore the canvas.",
			InputSchema: noArgs(),
		},

		// Pixel Art Mosaic
		{
			Name:        "mosaic_run",
			Description: "Start the animated pixel art effect on the canvas or on a source image. Frames go from coarse to fine cell grids. Starting a new run supersedes a running one.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Optional file path, URL or ipfs:// URI. Default: the current canvas",
					},
					"grids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Cells per side for each frame. Default from config (4 ... 32)",
					},
					"blocks": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Block edge lengths in pixels, converted to cell counts. Ignored when grids is set",
					},
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Block until the run is finalized. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "mosaic_status",
			Description: "Report progress of the current pixel art run.",
			InputSchema: noArgs(),
		},
		{
			Name:        "mosaic_cancel",
			Description: "Stop the current pixel art run. Frames already written stay in the output.",
			InputSchema: noArgs(),
		},
		{
			Name:        "mosaic_export",
			Description: "Export the finished pixel art as PNG. Only available once the run is finalized.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file path. Relative paths use the configured output directory",
					},
				},
			},
		},
		{
			Name:        "mosaic_grid",
			Description: "Return the latest pixel art frame with cell boundary lines drawn on it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Line color. Default #000000",
					},
				},
			},
		},
		{
			Name:        "mosaic_palette",
			Description: "List the most frequent colors of the latest pixel art frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to return. Default 16, 0 for all",
						"default":     16,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
