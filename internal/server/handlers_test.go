package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/draw"

	"github.com/dashkids/canvas-tools-mcp/internal/config"
	"github.com/dashkids/canvas-tools-mcp/internal/editor"
	"github.com/dashkids/canvas-tools-mcp/internal/overlay"
)

// dotRenderer draws a single pixel at the overlay anchor.
type dotRenderer struct{}

func (dotRenderer) Render(dst draw.Image, o overlay.Overlay, opacity float64) error {
	c := o.Color
	c.A = uint8(255 * opacity)
	dst.Set(o.X, o.Y, c)
	return nil
}

// createTestImageFile writes a solid PNG into dir and returns its path.
func createTestImageFile(t *testing.T, dir string, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request. On success it decodes the text
// content into out (when non-nil) and returns nil; on failure it returns
// the JSON-RPC error.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result should be a map, got %T", resp.Result)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if out != nil {
		text := content[0]["text"].(string)
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode %s result: %v", name, err)
		}
	}
	return nil
}

// mustCall is callTool for calls expected to succeed.
func mustCall(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	if e := callTool(t, s, name, args, out); e != nil {
		t.Fatalf("%s failed: %s (%v)", name, e.Message, e.Data)
	}
}

type historyView struct {
	Entries int `json:"entries"`
	Cursor  int `json:"cursor"`
}

type stateView struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Base   string `json:"base"`
	Tool   struct {
		Tool        string `json:"tool"`
		Color       string `json:"color"`
		BrushSize   int    `json:"brush_size"`
		BrushRadius int    `json:"brush_radius"`
	} `json:"tool"`
	History      historyView `json:"history"`
	CanUndo      bool        `json:"can_undo"`
	OverlayState string      `json:"overlay_state"`
}

func sampleHex(t *testing.T, s *Server, x, y int) string {
	t.Helper()
	var c struct {
		Hex string `json:"hex"`
	}
	mustCall(t, s, "canvas_sample_color", map[string]int{"x": x, "y": y}, &c)
	return c.Hex
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		tool     string
		args     interface{}
		wantCode int
	}{
		{"unknown tool", "image_load", nil, -32000},
		{"invalid color", "canvas_fill", map[string]interface{}{"x": 1, "y": 1, "color": "#XYZXYZ"}, -32000},
		{"bad pointer event", "canvas_pointer", map[string]interface{}{"event": "hover", "x": 1, "y": 1}, -32000},
		{"stroke with fill tool", "canvas_stroke", map[string]interface{}{"points": []map[string]int{{"x": 1, "y": 1}}}, -32000},
		{"bad threshold", "canvas_lineart", map[string]int{"threshold": 300}, -32000},
		{"lock without overlay", "overlay_lock", nil, -32000},
		{"transform without overlay", "overlay_transform", map[string]int{"size": 40}, -32000},
		{"bad overlay kind", "overlay_add", map[string]string{"content": "A", "kind": "shape"}, -32000},
		{"empty overlay", "overlay_add", map[string]string{"content": ""}, -32000},
		{"unknown character", "canvas_load_character", map[string]string{"character": "Nobody"}, -32000},
		{"export before run", "mosaic_export", nil, -32000},
		{"grid before run", "mosaic_grid", nil, -32000},
		{"invalid plan", "mosaic_run", map[string]interface{}{"grids": []int{4, 0}}, -32000},
		{"wrong argument type", "canvas_fill", map[string]string{"x": "left"}, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := callTool(t, s, tt.tool, tt.args, nil)
			if e == nil {
				t.Fatal("expected error")
			}
			if e.Code != tt.wantCode {
				t.Errorf("Code: got %d, want %d", e.Code, tt.wantCode)
			}
			if e.Data == "" {
				t.Error("Data should carry the error text")
			}
		})
	}

	var st stateView
	mustCall(t, s, "canvas_state", nil, &st)
	if st.History.Entries != 1 || st.OverlayState != "idle" {
		t.Errorf("failed calls changed the session: %+v", st)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      7,
		Method:  "tools/call",
		Params:  json.RawMessage(`"canvas_state"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("Error: got %+v, want -32602", resp.Error)
	}
}

func TestFillAndUndo(t *testing.T) {
	s := newTestServer(t, nil)

	var fill struct {
		Fill struct {
			Changed bool `json:"changed"`
			Pixels  int  `json:"pixels"`
		} `json:"fill"`
		History historyView `json:"history"`
	}
	mustCall(t, s, "canvas_fill", map[string]interface{}{"x": 3, "y": 3, "color": "Sky Blue"}, &fill)
	if !fill.Fill.Changed || fill.Fill.Pixels != 32*32 || fill.History.Entries != 2 {
		t.Errorf("fill: %+v", fill)
	}
	if got := sampleHex(t, s, 31, 31); got != "#45B7D1" {
		t.Errorf("sample after fill: got %s", got)
	}

	// Same color again is a no-op
	mustCall(t, s, "canvas_fill", map[string]interface{}{"x": 0, "y": 0, "color": "#45b7d1"}, &fill)
	if fill.Fill.Changed || fill.History.Entries != 2 {
		t.Errorf("repeat fill: %+v", fill)
	}

	var undo struct {
		Undone  bool        `json:"undone"`
		History historyView `json:"history"`
	}
	mustCall(t, s, "canvas_undo", nil, &undo)
	if !undo.Undone || undo.History.Cursor != 0 {
		t.Errorf("undo: %+v", undo)
	}
	if got := sampleHex(t, s, 31, 31); got != "#FFFFFF" {
		t.Errorf("sample after undo: got %s", got)
	}
	mustCall(t, s, "canvas_undo", nil, &undo)
	if undo.Undone {
		t.Error("undo past the oldest entry should be a no-op")
	}
}

func TestToolAndPointer(t *testing.T) {
	s := newTestServer(t, nil)

	var ts struct {
		Tool        string `json:"tool"`
		Color       string `json:"color"`
		BrushSize   int    `json:"brush_size"`
		BrushRadius int    `json:"brush_radius"`
	}
	mustCall(t, s, "canvas_tool", map[string]interface{}{"tool": "brush", "color": "#000", "brush_size": 100}, &ts)
	if ts.Tool != "brush" || ts.Color != "#000000" || ts.BrushSize != 50 || ts.BrushRadius != 25 {
		t.Errorf("tool state: %+v", ts)
	}

	// A bad color rejects the whole call
	if e := callTool(t, s, "canvas_tool", map[string]interface{}{"tool": "eraser", "color": "nope"}, nil); e == nil {
		t.Fatal("expected error for bad color")
	}
	var st stateView
	mustCall(t, s, "canvas_state", nil, &st)
	if st.Tool.Tool != "brush" {
		t.Errorf("tool changed by rejected call: %s", st.Tool.Tool)
	}

	mustCall(t, s, "canvas_tool", map[string]interface{}{"brush_size": 6}, nil)
	for _, ev := range []map[string]interface{}{
		{"event": "down", "x": 4, "y": 4},
		{"event": "move", "x": 8, "y": 4},
		{"event": "up", "x": 8, "y": 4},
	} {
		mustCall(t, s, "canvas_pointer", ev, nil)
	}
	if got := sampleHex(t, s, 8, 4); got != "#000000" {
		t.Errorf("stroke pixel: got %s", got)
	}

	mustCall(t, s, "canvas_tool", map[string]interface{}{"tool": "eraser"}, nil)
	var stroke struct {
		Action  string `json:"action"`
		History int    `json:"history"`
	}
	mustCall(t, s, "canvas_stroke", map[string]interface{}{
		"points": []map[string]int{{"x": 4, "y": 4}, {"x": 8, "y": 4}},
	}, &stroke)
	if stroke.Action != "stroke_end" || stroke.History != 3 {
		t.Errorf("stroke: %+v", stroke)
	}
	if got := sampleHex(t, s, 8, 4); got != "#FFFFFF" {
		t.Errorf("erased pixel: got %s", got)
	}
}

func TestOverlayStickersTool(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		available bool
	}{
		{"emoji-capable renderer", []Option{WithEditorOptions(editor.WithRenderer(dotRenderer{}))}, true},
		{"default font", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Characters = nil
			s, err := New(cfg, nil, tt.opts...)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer s.Close()

			var stickers []editor.Sticker
			mustCall(t, s, "overlay_stickers", nil, &stickers)
			if len(stickers) != len(overlay.Emojis) {
				t.Fatalf("stickers: got %d, want %d", len(stickers), len(overlay.Emojis))
			}
			for _, st := range stickers {
				if st.Available != tt.available {
					t.Errorf("%s: available=%v, want %v", st.Content, st.Available, tt.available)
				}
			}

			e := callTool(t, s, "overlay_add", map[string]string{"content": stickers[0].Content}, nil)
			if tt.available && e != nil {
				t.Errorf("overlay_add: unexpected error %+v", e)
			}
			if !tt.available && (e == nil || !strings.Contains(e.Data.(string), "no glyph")) {
				t.Errorf("overlay_add with default font: got %+v, want missing glyph error", e)
			}
		})
	}
}

func TestOverlayTools(t *testing.T) {
	s := newTestServer(t, nil)

	var o struct {
		ID       string  `json:"id"`
		Kind     string  `json:"kind"`
		X        int     `json:"x"`
		Y        int     `json:"y"`
		Size     int     `json:"size"`
		Rotation float64 `json:"rotation"`
		Locked   bool    `json:"locked"`
	}
	mustCall(t, s, "overlay_add", map[string]string{"content": "Hi", "kind": "text", "color": "#0000FF"}, &o)
	if o.ID == "" || o.Kind != "text" || o.X != 16 || o.Y != 16 || o.Size != overlay.TextDefaultSize {
		t.Errorf("overlay_add: %+v", o)
	}

	mustCall(t, s, "overlay_transform", map[string]interface{}{"size": 1, "rotation": 370}, &o)
	if o.Size != overlay.TextMinSize || o.Rotation != 10 {
		t.Errorf("overlay_transform: %+v", o)
	}

	mustCall(t, s, "overlay_drag", map[string]int{"from_x": 17, "from_y": 16, "to_x": 6, "to_y": 5}, &o)
	if o.X != 5 || o.Y != 5 {
		t.Errorf("overlay_drag: %+v", o)
	}
	if e := callTool(t, s, "overlay_drag", map[string]int{"from_x": 31, "from_y": 31, "to_x": 0, "to_y": 0}, nil); e == nil {
		t.Error("drag from outside the overlay should fail")
	}

	// Painting elsewhere is refused while the overlay is placed
	if e := callTool(t, s, "canvas_fill", map[string]int{"x": 30, "y": 30}, nil); e == nil {
		t.Error("fill should be refused while an overlay is placed")
	}

	var lock struct {
		Overlay struct {
			Locked bool `json:"locked"`
		} `json:"overlay"`
		History historyView `json:"history"`
	}
	mustCall(t, s, "overlay_lock", nil, &lock)
	if !lock.Overlay.Locked || lock.History.Entries != 2 {
		t.Errorf("overlay_lock: %+v", lock)
	}
	if got := sampleHex(t, s, 5, 5); got != "#0000FF" {
		t.Errorf("locked overlay pixel: got %s", got)
	}

	// Add then cancel leaves canvas and history alone
	mustCall(t, s, "overlay_add", map[string]string{"content": "⭐"}, nil)
	var cancel struct {
		Cancelled bool `json:"cancelled"`
	}
	mustCall(t, s, "overlay_cancel", nil, &cancel)
	if !cancel.Cancelled {
		t.Error("overlay_cancel: nothing cancelled")
	}
	if got := sampleHex(t, s, 16, 16); got != "#FFFFFF" {
		t.Errorf("cancelled overlay left pixel %s", got)
	}
	var st stateView
	mustCall(t, s, "canvas_state", nil, &st)
	if st.History.Entries != 2 || st.OverlayState != "idle" {
		t.Errorf("state after cancel: %+v", st)
	}
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()
	page := createTestImageFile(t, dir, 16, 16, color.NRGBA{0, 128, 0, 255})
	s := newTestServer(t, func(c *config.Config) {
		c.Characters = []config.Character{{Name: "Leafy", Source: page}}
	})

	var chars []CharacterInfo
	mustCall(t, s, "canvas_characters", nil, &chars)
	if len(chars) != 1 || chars[0].Name != "Leafy" || chars[0].Index != 0 {
		t.Fatalf("canvas_characters: %+v", chars)
	}

	var loaded struct {
		Character struct {
			Name string `json:"name"`
		} `json:"character"`
		State stateView `json:"state"`
	}
	mustCall(t, s, "canvas_load_character", map[string]string{"character": "0"}, &loaded)
	if loaded.Character.Name != "Leafy" || loaded.State.Base != "Leafy" || loaded.State.History.Entries != 1 {
		t.Errorf("canvas_load_character: %+v", loaded)
	}
	if got := sampleHex(t, s, 10, 10); got != "#008000" {
		t.Errorf("page pixel: got %s", got)
	}

	mustCall(t, s, "canvas_fill", map[string]interface{}{"x": 0, "y": 0, "color": "#FFFF00"}, nil)
	mustCall(t, s, "canvas_clear", nil, nil)
	if got := sampleHex(t, s, 0, 0); got != "#008000" {
		t.Errorf("after clear: got %s", got)
	}

	// A failed load leaves the page in place
	if e := callTool(t, s, "canvas_load", map[string]string{"source": filepath.Join(dir, "missing.png")}, nil); e == nil {
		t.Fatal("expected load error")
	} else if !strings.Contains(e.Data.(string), "source image load failed") {
		t.Errorf("error data: %v", e.Data)
	}
	if got := sampleHex(t, s, 0, 0); got != "#008000" {
		t.Errorf("after failed load: got %s", got)
	}

	var st stateView
	mustCall(t, s, "canvas_new", map[string]int{"width": 20, "height": 10}, &st)
	if st.Width != 20 || st.Height != 10 || st.Base != "" {
		t.Errorf("canvas_new: %+v", st)
	}
	mustCall(t, s, "canvas_load", map[string]string{"source": page}, &st)
	if st.Base != page {
		t.Errorf("canvas_load base: %q", st.Base)
	}
}

func TestCanvasLoad_Reload(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, nil)

	page := createTestImageFile(t, dir, 8, 8, color.NRGBA{255, 0, 0, 255})
	mustCall(t, s, "canvas_load", map[string]string{"source": page}, nil)
	if got := sampleHex(t, s, 1, 1); got != "#FF0000" {
		t.Fatalf("first load: got %s", got)
	}

	// Same path, new pixels on disk.
	createTestImageFile(t, dir, 8, 8, color.NRGBA{0, 0, 255, 255})
	mustCall(t, s, "canvas_load", map[string]string{"source": page}, nil)
	if got := sampleHex(t, s, 1, 1); got != "#FF0000" {
		t.Errorf("cached load: got %s, want the cached red page", got)
	}

	mustCall(t, s, "canvas_load", map[string]interface{}{"source": page, "reload": true}, nil)
	if got := sampleHex(t, s, 1, 1); got != "#0000FF" {
		t.Errorf("reload: got %s, want #0000FF", got)
	}
}

func TestPaletteTool(t *testing.T) {
	s := newTestServer(t, nil)
	var pal []struct {
		Name string `json:"name"`
		Hex  string `json:"hex"`
	}
	mustCall(t, s, "canvas_palette", nil, &pal)
	if len(pal) == 0 || pal[0].Name != "Red" || pal[0].Hex != "#FF6B6B" {
		t.Errorf("canvas_palette: %+v", pal)
	}
}

func TestExportAndPrintTools(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer(t, func(c *config.Config) { c.OutputDir = dir })

	var exp struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ImageBase64 string `json:"image_base64"`
		Path        string `json:"path"`
	}
	mustCall(t, s, "canvas_export", map[string]float64{"scale": 2}, &exp)
	if exp.Width != 64 || exp.ImageBase64 == "" {
		t.Errorf("canvas_export: width %d", exp.Width)
	}
	raw, err := base64.StdEncoding.DecodeString(exp.ImageBase64)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Errorf("export is not a PNG: %v", err)
	}

	mustCall(t, s, "canvas_export", map[string]string{"output_path": "out/page.png"}, &exp)
	if exp.Path != filepath.Join(dir, "out", "page.png") {
		t.Errorf("export path: %s", exp.Path)
	}
	if _, err := os.Stat(exp.Path); err != nil {
		t.Errorf("export file: %v", err)
	}

	var pr PrintResult
	mustCall(t, s, "canvas_print", nil, &pr)
	pdf, err := base64.StdEncoding.DecodeString(pr.PDFBase64)
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) || pr.MimeType != "application/pdf" {
		t.Errorf("canvas_print: mime %s", pr.MimeType)
	}

	var saved PrintResult
	mustCall(t, s, "canvas_print", map[string]string{"output_path": "page.pdf"}, &saved)
	if saved.Path != filepath.Join(dir, "page.pdf") || saved.PDFBase64 != "" || saved.Bytes == 0 {
		t.Errorf("canvas_print to file: %+v", saved)
	}
}

func TestLineArtTool(t *testing.T) {
	s := newTestServer(t, nil)
	var st stateView
	mustCall(t, s, "canvas_lineart", nil, &st)
	if st.Base != "line art" || st.History.Entries != 1 {
		t.Errorf("canvas_lineart: %+v", st)
	}
}

func TestMosaicTools(t *testing.T) {
	s := newTestServer(t, nil)
	mustCall(t, s, "canvas_fill", map[string]interface{}{"x": 0, "y": 0, "color": "#FF0000"}, nil)

	var run MosaicRunResult
	mustCall(t, s, "mosaic_run", map[string]interface{}{"grids": []int{2, 4, 8}, "wait": true}, &run)
	if run.TaskID == "" || len(run.Cells) != 3 {
		t.Fatalf("mosaic_run: %+v", run)
	}
	if !run.Status.Finalized || run.Status.Progress != 100 || run.Status.Cells != 8 {
		t.Errorf("status after wait: %+v", run.Status)
	}

	var exp struct {
		Width int `json:"width"`
	}
	mustCall(t, s, "mosaic_export", nil, &exp)
	if exp.Width != 64 {
		t.Errorf("mosaic_export width: got %d, want 64", exp.Width)
	}

	var grid struct {
		ImageBase64 string `json:"image_base64"`
	}
	mustCall(t, s, "mosaic_grid", map[string]string{"color": "#FFFFFF"}, &grid)
	if grid.ImageBase64 == "" {
		t.Error("mosaic_grid returned no image")
	}

	var pal []struct {
		Hex   string `json:"hex"`
		Count int    `json:"count"`
	}
	mustCall(t, s, "mosaic_palette", nil, &pal)
	if len(pal) != 1 || pal[0].Hex != "#FF0000" || pal[0].Count != 64*64 {
		t.Errorf("mosaic_palette: %+v", pal)
	}

	var cancel struct {
		Cancelled bool `json:"cancelled"`
	}
	mustCall(t, s, "mosaic_cancel", nil, &cancel)
	if cancel.Cancelled {
		t.Error("cancel after completion should report nothing running")
	}
}

func TestMosaicRun_FromSourceAndBlocks(t *testing.T) {
	dir := t.TempDir()
	src := createTestImageFile(t, dir, 10, 10, color.NRGBA{0, 0, 255, 255})
	s := newTestServer(t, nil)

	var run MosaicRunResult
	mustCall(t, s, "mosaic_run", map[string]interface{}{"source": src, "blocks": []int{16, 8}, "wait": true}, &run)
	if len(run.Cells) != 2 || run.Cells[0] != 4 || run.Cells[1] != 8 {
		t.Errorf("cells: got %v, want [4 8]", run.Cells)
	}

	var pal []struct {
		Hex string `json:"hex"`
	}
	mustCall(t, s, "mosaic_palette", map[string]int{"count": 0}, &pal)
	if len(pal) != 1 || pal[0].Hex != "#0000FF" {
		t.Errorf("palette: %+v", pal)
	}

	if e := callTool(t, s, "mosaic_run", map[string]string{"source": filepath.Join(dir, "missing.png")}, nil); e == nil {
		t.Error("expected error for missing source")
	}
	var st struct {
		Finalized bool `json:"finalized"`
	}
	mustCall(t, s, "mosaic_status", nil, &st)
	if !st.Finalized {
		t.Error("failed run should leave the finished mosaic alone")
	}
}
