package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/dashkids/canvas-tools-mcp/internal/editor"
	"github.com/dashkids/canvas-tools-mcp/internal/mosaic"
	"github.com/dashkids/canvas-tools-mcp/internal/overlay"
	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "canvas_fill", "mosaic_run").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Calls the editor session or the mosaic pixelator
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Canvas Setup
	case "canvas_new":
		return s.handleCanvasNew(args)
	case "canvas_load":
		return s.handleCanvasLoad(args)
	case "canvas_load_character":
		return s.handleCanvasLoadCharacter(args)
	case "canvas_characters":
		return s.handleCanvasCharacters()
	case "canvas_palette":
		return raster.Palette, nil

	// Tools and Painting
	case "canvas_tool":
		return s.handleCanvasTool(args)
	case "canvas_pointer":
		return s.handleCanvasPointer(args)
	case "canvas_fill":
		return s.handleCanvasFill(args)
	case "canvas_stroke":
		return s.handleCanvasStroke(args)
	case "canvas_undo":
		return s.handleCanvasUndo()
	case "canvas_clear":
		s.editor.Clear()
		return s.editor.State(), nil
	case "canvas_state":
		return s.editor.State(), nil
	case "canvas_sample_color":
		return s.handleCanvasSampleColor(args)
	case "canvas_lineart":
		return s.handleCanvasLineArt(args)

	// Output
	case "canvas_export":
		return s.handleCanvasExport(args)
	case "canvas_print":
		return s.handleCanvasPrint(args)

	// Overlays
	case "overlay_add":
		return s.handleOverlayAdd(args)
	case "overlay_stickers":
		return s.editor.Stickers(), nil
	case "overlay_transform":
		return s.handleOverlayTransform(args)
	case "overlay_drag":
		return s.handleOverlayDrag(args)
	case "overlay_lock":
		return s.handleOverlayLock()
	case "overlay_cancel":
		return s.handleOverlayCancel()

	// Pixel Art Mosaic
	case "mosaic_run":
		return s.handleMosaicRun(args)
	case "mosaic_status":
		return s.mosaic.Status(), nil
	case "mosaic_cancel":
		return map[string]interface{}{"cancelled": s.mosaic.Cancel()}, nil
	case "mosaic_export":
		return s.handleMosaicExport(args)
	case "mosaic_grid":
		return s.handleMosaicGrid(args)
	case "mosaic_palette":
		return s.handleMosaicPalette(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// outputPath resolves a relative output path against the configured
// output directory.
func (s *Server) outputPath(p string) string {
	if p == "" || filepath.IsAbs(p) || s.cfg.OutputDir == "" {
		return p
	}
	return filepath.Join(s.cfg.OutputDir, p)
}

// === Canvas Setup Handlers ===

type canvasNewArgs struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleCanvasNew(args json.RawMessage) (interface{}, error) {
	var a canvasNewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.editor.NewCanvas(a.Width, a.Height); err != nil {
		return nil, err
	}
	return s.editor.State(), nil
}

type canvasLoadArgs struct {
	Source string `json:"source"`
	Reload bool   `json:"reload"`
}

func (s *Server) handleCanvasLoad(args json.RawMessage) (interface{}, error) {
	var a canvasLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if c := s.loader.Cache(); a.Reload && c != nil {
		c.Evict(a.Source)
	}
	if err := s.editor.LoadSource(s.ctx, a.Source); err != nil {
		return nil, err
	}
	return s.editor.State(), nil
}

type canvasLoadCharacterArgs struct {
	Character string `json:"character"`
}

func (s *Server) handleCanvasLoadCharacter(args json.RawMessage) (interface{}, error) {
	var a canvasLoadCharacterArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ch, err := s.editor.LoadCharacter(s.ctx, a.Character)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"character": ch,
		"state":     s.editor.State(),
	}, nil
}

// CharacterInfo is one entry of canvas_characters.
type CharacterInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

func (s *Server) handleCanvasCharacters() (interface{}, error) {
	chars := s.editor.Characters()
	out := make([]CharacterInfo, len(chars))
	for i, ch := range chars {
		out[i] = CharacterInfo{Index: i, Name: ch.Name, Source: ch.Source}
	}
	return out, nil
}

// === Tool and Painting Handlers ===

type canvasToolArgs struct {
	Tool      string `json:"tool"`
	Color     string `json:"color"`
	BrushSize *int   `json:"brush_size"`
}

func (s *Server) handleCanvasTool(args json.RawMessage) (interface{}, error) {
	var a canvasToolArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	// Validate everything before changing anything
	var tool editor.Tool
	if a.Tool != "" {
		t, err := editor.ParseTool(a.Tool)
		if err != nil {
			return nil, err
		}
		tool = t
	}
	if a.Color != "" {
		if _, err := raster.ParseColor(a.Color); err != nil {
			return nil, err
		}
	}

	if tool != "" {
		if err := s.editor.SelectTool(tool); err != nil {
			return nil, err
		}
	}
	if a.Color != "" {
		if err := s.editor.SetColor(a.Color); err != nil {
			return nil, err
		}
	}
	if a.BrushSize != nil {
		s.editor.SetBrushSize(*a.BrushSize)
	}
	return s.editor.ToolState(), nil
}

type canvasPointerArgs struct {
	Event string `json:"event"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

func (s *Server) handleCanvasPointer(args json.RawMessage) (interface{}, error) {
	var a canvasPointerArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	switch strings.ToLower(a.Event) {
	case "down":
		return s.editor.PointerDown(a.X, a.Y)
	case "move":
		return s.editor.PointerMove(a.X, a.Y)
	case "up":
		return s.editor.PointerUp(a.X, a.Y)
	default:
		return nil, fmt.Errorf("invalid pointer event: %q (use down, move or up)", a.Event)
	}
}

type canvasFillArgs struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

func (s *Server) handleCanvasFill(args json.RawMessage) (interface{}, error) {
	var a canvasFillArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, err := s.editor.Fill(a.X, a.Y, a.Color)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"fill":    res,
		"history": s.editor.State().History,
	}, nil
}

type canvasStrokeArgs struct {
	Points []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"points"`
}

func (s *Server) handleCanvasStroke(args json.RawMessage) (interface{}, error) {
	var a canvasStrokeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	points := make([]image.Point, len(a.Points))
	for i, p := range a.Points {
		points[i] = image.Pt(p.X, p.Y)
	}
	return s.editor.Stroke(points)
}

func (s *Server) handleCanvasUndo() (interface{}, error) {
	undone, err := s.editor.Undo()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"undone":  undone,
		"history": s.editor.State().History,
	}, nil
}

type canvasSampleColorArgs struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleCanvasSampleColor(args json.RawMessage) (interface{}, error) {
	var a canvasSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.editor.Sample(a.X, a.Y)
}

type canvasLineArtArgs struct {
	Threshold int `json:"threshold"`
}

func (s *Server) handleCanvasLineArt(args json.RawMessage) (interface{}, error) {
	var a canvasLineArtArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Threshold < 0 || a.Threshold > 255 {
		return nil, fmt.Errorf("threshold must be 0-255, got %d", a.Threshold)
	}
	s.editor.ToLineArt(uint8(a.Threshold))
	return s.editor.State(), nil
}

// === Output Handlers ===

type exportArgs struct {
	Scale      float64 `json:"scale"`
	OutputPath string  `json:"output_path"`
}

func (s *Server) handleCanvasExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.OutputPath != "" {
		return s.editor.WritePNG(s.outputPath(a.OutputPath), a.Scale)
	}
	return s.editor.ExportPNG(a.Scale)
}

// PrintResult describes a printable PDF page.
type PrintResult struct {
	PDFBase64 string `json:"pdf_base64,omitempty"`
	MimeType  string `json:"mime_type"`
	Path      string `json:"path,omitempty"`
	Bytes     int    `json:"bytes"`
}

type canvasPrintArgs struct {
	OutputPath string `json:"output_path"`
}

func (s *Server) handleCanvasPrint(args json.RawMessage) (interface{}, error) {
	var a canvasPrintArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath != "" {
		res, err := s.editor.WritePDF(s.outputPath(a.OutputPath))
		if err != nil {
			return nil, err
		}
		return PrintResult{MimeType: res.MimeType, Path: res.Path, Bytes: res.Bytes}, nil
	}

	var buf bytes.Buffer
	if err := s.editor.PrintPDF(&buf); err != nil {
		return nil, err
	}
	return PrintResult{
		PDFBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:  "application/pdf",
		Bytes:     buf.Len(),
	}, nil
}

// === Overlay Handlers ===

type overlayAddArgs struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
	Color   string `json:"color"`
}

func (s *Server) handleOverlayAdd(args json.RawMessage) (interface{}, error) {
	var a overlayAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	kind, err := overlay.ParseKind(a.Kind)
	if err != nil {
		return nil, err
	}
	return s.editor.AddOverlay(a.Content, kind, a.Color)
}

type overlayTransformArgs struct {
	Size     *int     `json:"size"`
	Rotation *float64 `json:"rotation"`
	X        *int     `json:"x"`
	Y        *int     `json:"y"`
}

func (s *Server) handleOverlayTransform(args json.RawMessage) (interface{}, error) {
	var a overlayTransformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.editor.TransformOverlay(editor.OverlayTransform{
		Size:     a.Size,
		Rotation: a.Rotation,
		X:        a.X,
		Y:        a.Y,
	})
}

type overlayDragArgs struct {
	FromX int `json:"from_x"`
	FromY int `json:"from_y"`
	ToX   int `json:"to_x"`
	ToY   int `json:"to_y"`
}

func (s *Server) handleOverlayDrag(args json.RawMessage) (interface{}, error) {
	var a overlayDragArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.editor.DragOverlay(a.FromX, a.FromY, a.ToX, a.ToY)
}

func (s *Server) handleOverlayLock() (interface{}, error) {
	o, ok, err := s.editor.LockOverlay()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, overlay.ErrNoOverlay
	}
	return map[string]interface{}{
		"overlay": o,
		"history": s.editor.State().History,
	}, nil
}

func (s *Server) handleOverlayCancel() (interface{}, error) {
	cancelled, err := s.editor.CancelOverlay()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"cancelled": cancelled}, nil
}

// === Mosaic Handlers ===

type mosaicRunArgs struct {
	Source string `json:"source"`
	Grids  []int  `json:"grids"`
	Blocks []int  `json:"blocks"`
	Wait   bool   `json:"wait"`
}

// MosaicRunResult describes a started mosaic run.
type MosaicRunResult struct {
	TaskID string        `json:"task_id"`
	Cells  []int         `json:"cells"`
	Status mosaic.Status `json:"status"`
}

func (s *Server) handleMosaicRun(args json.RawMessage) (interface{}, error) {
	var a mosaicRunArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	plan, err := s.mosaicPlan(a.Grids, a.Blocks)
	if err != nil {
		return nil, err
	}

	var src image.Image
	if a.Source != "" {
		if src, err = s.loader.Load(s.ctx, a.Source); err != nil {
			return nil, err
		}
	} else {
		src = s.editor.Image()
	}

	task, err := s.mosaic.Run(s.ctx, src, plan)
	if err != nil {
		return nil, err
	}
	if a.Wait {
		if err := task.Wait(s.ctx); err != nil {
			return nil, err
		}
	}
	return MosaicRunResult{
		TaskID: task.ID,
		Cells:  task.Plan.Cells,
		Status: s.mosaic.Status(),
	}, nil
}

func (s *Server) mosaicPlan(grids, blocks []int) (mosaic.Plan, error) {
	switch {
	case len(grids) > 0:
		return mosaic.FromGridSizes(grids)
	case len(blocks) > 0:
		return mosaic.FromBlockSizes(s.mosaic.Size(), blocks)
	default:
		return mosaic.FromGridSizes(s.cfg.Mosaic.Grids)
	}
}

func (s *Server) handleMosaicExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.OutputPath == "" {
		return s.mosaic.Export(a.Scale)
	}
	out, finalized := s.mosaic.Output()
	if out == nil || !finalized {
		return nil, mosaic.ErrNotFinalized
	}
	return raster.WritePNG(s.outputPath(a.OutputPath), out.Image(), a.Scale)
}

type mosaicGridArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleMosaicGrid(args json.RawMessage) (interface{}, error) {
	var a mosaicGridArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = "#000000"
	}
	lineColor, err := raster.ParseColor(a.Color)
	if err != nil {
		return nil, err
	}
	frame, ok := s.mosaic.Latest()
	if !ok {
		return nil, mosaic.ErrNoOutput
	}
	grid := mosaic.GridOverlay(frame.Buffer.Image(), frame.Cells, lineColor)
	return raster.ExportPNG(grid.Image(), 1)
}

type mosaicPaletteArgs struct {
	Count *int `json:"count"`
}

func (s *Server) handleMosaicPalette(args json.RawMessage) (interface{}, error) {
	var a mosaicPaletteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	n := 16
	if a.Count != nil {
		n = *a.Count
	}
	out, _ := s.mosaic.Output()
	if out == nil {
		return nil, mosaic.ErrNoOutput
	}
	return mosaic.Palette(out.Image(), n), nil
}
