package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dashkids/canvas-tools-mcp/internal/config"
	"github.com/dashkids/canvas-tools-mcp/internal/editor"
	"github.com/dashkids/canvas-tools-mcp/internal/mosaic"
	"github.com/dashkids/canvas-tools-mcp/internal/raster"
)

// Name and ProtocolVersion are reported in the initialize handshake.
const (
	Name            = "canvas-tools-mcp"
	ProtocolVersion = "2024-11-05"
)

// Version is reported in serverInfo; cmd overrides it from ldflags.
var Version = "0.1.0"

// Server handles MCP protocol communication for one coloring session.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	loader *raster.Loader
	editor *editor.Editor
	mosaic *mosaic.Pixelator

	// ctx outlives individual requests; mosaic tasks run under it.
	ctx    context.Context
	cancel context.CancelFunc
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Option configures a Server.
type Option func(*options)

type options struct {
	editorOpts []editor.Option
}

// WithEditorOptions passes options through to the editor session.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(o *options) { o.editorOpts = append(o.editorOpts, opts...) }
}

// New creates a server with a fresh editor session and mosaic pixelator.
// A nil cfg uses the defaults and a nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	lopts := []raster.LoaderOption{raster.WithTimeout(cfg.Loader.Timeout)}
	if !cfg.Loader.Cache {
		lopts = append(lopts, raster.WithoutCache())
	}
	loader := raster.NewLoader(lopts...)

	eopts := append([]editor.Option{editor.WithLoader(loader)}, o.editorOpts...)
	ed, err := editor.New(cfg, logger.With("component", "editor"), eopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create editor: %w", err)
	}

	px := mosaic.NewPixelator(
		mosaic.WithSize(cfg.Mosaic.Size),
		mosaic.WithTarget(cfg.Mosaic.Target),
		mosaic.WithInterval(cfg.Mosaic.Interval),
		mosaic.WithPulse(cfg.Mosaic.Pulse),
		mosaic.WithLogger(logger.With("component", "mosaic")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger,
		loader: loader,
		editor: ed,
		mosaic: px,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Close stops any running mosaic task.
func (s *Server) Close() {
	s.mosaic.Cancel()
	s.cancel()
}

// Run serves MCP on stdin and stdout until stdin closes.
func (s *Server) Run() error {
	defer s.Close()
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// responses to w. Requests are handled one at a time.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Stroke point lists can be long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}
