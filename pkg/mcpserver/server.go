// Package mcpserver provides a small MCP (Model Context Protocol) server framework.
//
// It speaks JSON-RPC 2.0 over stdio or HTTP, keeps sessions for the HTTP transport,
// validates tool arguments against their input schemas and runs a middleware chain
// around every request.
//
// Quick Start:
//
//	server := mcpserver.New("my-server", "1.0.0")
//	server.RegisterTool(&MyTool{})
//	server.RunStdio(ctx) // or server.RunHTTP(ctx, ":8080")
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the MCP revision this server implements.
const ProtocolVersion = "2024-11-05"

// Server is the core MCP server that manages tools and handles JSON-RPC requests.
type Server struct {
	name       string
	version    string
	tools      map[string]ToolHandler
	toolsMu    sync.RWMutex
	sessions   map[string]time.Time
	sessionMu  sync.RWMutex
	middleware []Middleware
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a new MCP server with the given name and version.
func New(name, version string, opts ...Option) *Server {
	s := &Server{
		name:     name,
		version:  version,
		tools:    make(map[string]ToolHandler),
		sessions: make(map[string]time.Time),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTool adds a tool to the server. A later tool with the same name replaces the earlier one.
func (s *Server) RegisterTool(tool ToolHandler) {
	s.toolsMu.Lock()
	s.tools[tool.Name()] = tool
	s.toolsMu.Unlock()
	s.logger.Debug("registered tool", "name", tool.Name())
}

// RegisterTools adds multiple tools to the server.
func (s *Server) RegisterTools(tools ...ToolHandler) {
	for _, tool := range tools {
		s.RegisterTool(tool)
	}
}

// Tools returns the registered tool definitions sorted by name.
func (s *Server) Tools() []ToolDef {
	s.toolsMu.RLock()
	defer s.toolsMu.RUnlock()

	tools := make([]ToolDef, 0, len(s.tools))
	for _, h := range s.tools {
		def := ToolDef{
			Name:        h.Name(),
			Description: h.Description(),
			InputSchema: h.InputSchema(),
		}
		if ro, ok := h.(readOnlyTool); ok {
			def.Annotations = &ToolAnnotations{ReadOnlyHint: ro.IsReadOnly(), DestructiveHint: !ro.IsReadOnly()}
		}
		tools = append(tools, def)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Use adds middleware to the server's processing chain.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

// RunStdio serves on the process's stdin and stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.ServeStdio(ctx, os.Stdin, os.Stdout)
}

// ServeStdio reads newline-delimited JSON-RPC requests from r and writes responses to w
// until r is exhausted or ctx is cancelled. Requests are handled one at a time.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.Info("starting MCP server (stdio)", "name", s.name, "version", s.version, "tools", len(s.Tools()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type decoded struct {
		req JSONRPCRequest
		err error
	}
	requests := make(chan decoded)
	go func() {
		defer close(requests)
		decoder := json.NewDecoder(r)
		for {
			var d decoded
			d.err = decoder.Decode(&d.req)
			select {
			case requests <- d:
			case <-ctx.Done():
				return
			}
			if d.err != nil {
				return
			}
		}
	}()

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-requests:
			if !ok {
				return nil
			}
			if d.err != nil {
				if errors.Is(d.err, io.EOF) {
					return nil
				}
				encoder.Encode(&JSONRPCResponse{JSONRPC: "2.0", Error: &RPCError{Code: CodeParseError, Message: "Parse error"}})
				return fmt.Errorf("decode request: %w", d.err)
			}

			resp := s.HandleRequest(ctx, &d.req)
			if resp == nil {
				continue // Notification, no response needed
			}
			if err := encoder.Encode(resp); err != nil {
				return fmt.Errorf("encode response: %w", err)
			}
		}
	}
}

// HandleRequest processes a single JSON-RPC request and returns a response.
// Notifications return nil.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	handler := s.coreHandler
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler(ctx, req)
}

func (s *Server) coreHandler(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		resp.Result = s.handleInitialize()
	case "notifications/initialized", "notifications/cancelled":
		s.logger.Debug("client notification", "method", req.Method)
		return nil
	case "ping":
		resp.Result = struct{}{}
	case "tools/list":
		resp.Result = &ToolsListResult{Tools: s.Tools()}
	case "tools/call":
		params, err := decodeCallParams(req.Params)
		if err != nil {
			resp.Error = &RPCError{Code: CodeInvalidParams, Message: err.Error()}
			break
		}
		resp.Result = s.CallTool(ctx, params.Name, params.Arguments)
	default:
		resp.Error = &RPCError{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func (s *Server) handleInitialize() *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
		SessionID: s.createSession(),
	}
}

func decodeCallParams(params any) (*ToolCallParams, error) {
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("parse params: %w", err)
	}
	var callParams ToolCallParams
	if err := json.Unmarshal(paramsBytes, &callParams); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if callParams.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	return &callParams, nil
}

// CallTool validates args and runs the named tool. Failures are reported as error results.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) *ToolCallResult {
	s.toolsMu.RLock()
	tool, ok := s.tools[name]
	s.toolsMu.RUnlock()
	if !ok {
		return ErrorResult(fmt.Errorf("tool not found: %s", name))
	}

	validated, err := ValidateArgs(tool.InputSchema(), args)
	if err != nil {
		return ErrorResult(err)
	}

	result, err := tool.Execute(WithToolName(ctx, name), validated)
	if err != nil {
		return ErrorResult(err)
	}
	if result == nil {
		return TextResult("")
	}
	return result
}

// Session management

func (s *Server) createSession() string {
	id := uuid.NewString()
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	s.sessions[id] = time.Now()
	return id
}

// CheckSession verifies if a session ID is valid.
func (s *Server) CheckSession(id string) bool {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// EndSession forgets a session. It reports whether the session existed.
func (s *Server) EndSession(id string) bool {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}
