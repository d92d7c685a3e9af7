package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/video-brightness-mcp/internal/config"
	"github.com/ironsheep/video-brightness-mcp/internal/video"
)

// Opener opens a video source by path.
type Opener func(path string, logger *zap.Logger) (video.Source, error)

// Server handles MCP protocol communication
type Server struct {
	logger  *zap.Logger
	open    Opener
	cfg     *config.AnalysisConfig
	version string

	mu      sync.Mutex
	session *session

	callMu sync.Mutex
	call   *inflight

	outMu sync.Mutex
	enc   *json.Encoder
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

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOpener replaces the function used by video_load.
func WithOpener(open Opener) Option {
	return func(s *Server) { s.open = open }
}

// WithConfig supplies default regions, delta, cache capacity and progress
// cadence for tool calls that omit them.
func WithConfig(cfg *config.AnalysisConfig) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithVersion sets the version reported by initialize.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		logger:  zap.NewNop(),
		open:    video.Open,
		cfg:     &config.AnalysisConfig{},
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves MCP on stdin and stdout until stdin closes or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// requestQueue is how many parsed requests may wait behind a running tool.
const requestQueue = 64

// Serve reads one JSON-RPC request per line from r and writes responses to
// w. Requests are handled in order; a long scan delays later requests.
//
// Lines are read on a separate goroutine so a notifications/cancelled for the
// running tools/call cancels its context while it runs. The scan then stops
// and still answers with its partial result marked cancelled. Cancelling a
// request that is still queued has no effect.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer func() {
		if err := s.closeSession(); err != nil {
			s.logger.Warn("failed to close video", zap.Error(err))
		}
	}()

	s.outMu.Lock()
	s.enc = json.NewEncoder(w)
	s.outMu.Unlock()

	done := make(chan struct{})
	defer close(done)
	reqs := make(chan *MCPRequest, requestQueue)
	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readRequests(r, reqs, done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-reqs:
			if !ok {
				return <-readErr
			}
			resp := s.dispatch(ctx, req)
			if resp != nil {
				if err := s.write(resp); err != nil {
					s.logger.Warn("failed to encode response", zap.Error(err))
				}
			}
		}
	}
}

// readRequests parses lines from r into reqs until r ends or done closes.
// Cancellation notifications are applied immediately instead of queued.
func (s *Server) readRequests(r io.Reader, reqs chan<- *MCPRequest, done <-chan struct{}) error {
	defer close(reqs)

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		req := &MCPRequest{}
		if err := json.Unmarshal(line, req); err != nil {
			s.logger.Warn("failed to parse request", zap.Error(err))
			continue
		}
		if req.Method == "notifications/cancelled" {
			s.cancelRequest(req.Params)
			continue
		}

		select {
		case reqs <- req:
		case <-done:
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanner error")
	}
	return nil
}

// inflight is the tools/call currently running.
type inflight struct {
	id     interface{}
	ctx    context.Context
	cancel context.CancelFunc
}

// dispatch runs one request. A tools/call gets its own context so a client
// can cancel it.
func (s *Server) dispatch(ctx context.Context, req *MCPRequest) *MCPResponse {
	if req.Method != "tools/call" {
		return s.handleRequest(ctx, req)
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.callMu.Lock()
	s.call = &inflight{id: req.ID, ctx: callCtx, cancel: cancel}
	s.callMu.Unlock()
	defer func() {
		s.callMu.Lock()
		s.call = nil
		s.callMu.Unlock()
	}()

	return s.handleRequest(callCtx, req)
}

type cancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// cancelRequest cancels the running tools/call when its id matches.
func (s *Server) cancelRequest(params json.RawMessage) {
	var p cancelledParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.Warn("failed to parse cancellation", zap.Error(err))
		return
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()
	if s.call == nil || !sameID(s.call.id, p.RequestID) {
		s.logger.Debug("cancellation for a request that is not running", zap.Any("id", p.RequestID))
		return
	}
	s.call.cancel()
	s.logger.Info("request cancelled", zap.Any("id", p.RequestID), zap.String("reason", p.Reason))
}

// sameID compares JSON-RPC ids, which decode as strings or float64.
func sameID(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return false
	}
}

// write encodes one message. Responses and progress notifications share the
// output stream.
func (s *Server) write(v interface{}) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.enc == nil {
		return errors.New("server output is not attached")
	}
	return s.enc.Encode(v)
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized", "notifications/cancelled":
		// Client notifications, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
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
				Message: "Method not found: " + req.Method,
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
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "video-brightness-mcp",
				"version": s.version,
			},
		},
	}
}
