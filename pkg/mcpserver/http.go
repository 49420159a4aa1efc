package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPServer serves the MCP Server over HTTP with optional SSE framing.
type HTTPServer struct {
	server     *Server
	addr       string
	authSecret []byte
	metrics    http.Handler
	logger     *slog.Logger
}

// HTTPOption configures an HTTPServer.
type HTTPOption func(*HTTPServer)

// WithAuthSecret requires an HS256 bearer token signed with secret on the MCP and tool endpoints.
func WithAuthSecret(secret []byte) HTTPOption {
	return func(hs *HTTPServer) { hs.authSecret = secret }
}

// WithMetricsHandler exposes h on /metrics.
func WithMetricsHandler(h http.Handler) HTTPOption {
	return func(hs *HTTPServer) { hs.metrics = h }
}

// NewHTTPServer creates an HTTP transport for s.
func (s *Server) NewHTTPServer(addr string, opts ...HTTPOption) *HTTPServer {
	hs := &HTTPServer{
		server: s,
		addr:   addr,
		logger: s.logger,
	}
	for _, opt := range opts {
		opt(hs)
	}
	return hs
}

// RunHTTP serves s on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string, opts ...HTTPOption) error {
	return s.NewHTTPServer(addr, opts...).Serve(ctx)
}

// Handler returns the routed HTTP handler.
func (hs *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// MCP protocol endpoint (JSON-RPC 2.0)
	mux.Handle("/mcp", hs.requireAuth(http.HandlerFunc(hs.handleMCPRequest)))

	// RESTful endpoints
	mux.Handle("/api/tools", hs.requireAuth(http.HandlerFunc(hs.handleToolsList)))
	mux.Handle("/api/tools/", hs.requireAuth(http.HandlerFunc(hs.handleToolCall)))

	mux.HandleFunc("/health", hs.handleHealth)
	if hs.metrics != nil {
		mux.Handle("/metrics", hs.metrics)
	}

	return hs.corsMiddleware(mux)
}

// Serve listens on the configured address and shuts down gracefully when ctx is cancelled.
func (hs *HTTPServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              hs.addr,
		Handler:           hs.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		hs.logger.Info("starting HTTP server", "addr", hs.addr, "tools", len(hs.server.Tools()), "auth", len(hs.authSecret) > 0)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hs.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (hs *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (hs *HTTPServer) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodDelete:
		if !hs.server.EndSession(r.Header.Get("Mcp-Session-Id")) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.writeError(w, CodeParseError, "Parse error")
		return
	}

	// Validate session for non-initialize requests
	if req.Method != "initialize" {
		sessionID := r.Header.Get("Mcp-Session-Id")
		if sessionID == "" || !hs.server.CheckSession(sessionID) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
	}

	resp := hs.server.HandleRequest(r.Context(), &req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Set session ID header for initialize response
	if req.Method == "initialize" && resp.Error == nil {
		if result, ok := resp.Result.(*InitializeResult); ok && result.SessionID != "" {
			w.Header().Set("Mcp-Session-Id", result.SessionID)
		}
	}

	// Choose response format based on Accept header
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		hs.sendSSE(w, resp)
	} else {
		hs.sendJSON(w, resp)
	}
}

func (hs *HTTPServer) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hs.logger.Error("encode response", "error", err)
	}
}

func (hs *HTTPServer) sendSSE(w http.ResponseWriter, resp *JSONRPCResponse) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		hs.sendJSON(w, resp)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	respBytes, err := json.Marshal(resp)
	if err != nil {
		hs.logger.Error("encode response", "error", err)
		return
	}
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", respBytes)
	flusher.Flush()
}

func (hs *HTTPServer) handleToolsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hs.sendJSON(w, &ToolsListResult{Tools: hs.server.Tools()})
}

func (hs *HTTPServer) handleToolCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	toolName := strings.TrimPrefix(r.URL.Path, "/api/tools/")
	if toolName == "" {
		http.Error(w, "Tool name required", http.StatusBadRequest)
		return
	}

	var args map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	hs.sendJSON(w, hs.server.CallTool(r.Context(), toolName, args))
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs.sendJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"server":    hs.server.name,
		"version":   hs.server.version,
	})
}

func (hs *HTTPServer) writeError(w http.ResponseWriter, code int, message string) {
	hs.sendJSON(w, JSONRPCResponse{
		JSONRPC: "2.0",
		Error:   &RPCError{Code: code, Message: message},
	})
}
