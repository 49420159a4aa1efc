package mcpserver

import (
	"context"
	"log/slog"
	"time"
)

// Middleware is a function that wraps a request handler.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is a function that handles a JSON-RPC request.
type HandlerFunc func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse

// LoggingMiddleware logs all incoming requests and their results.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
			start := time.Now()
			resp := next(ctx, req)
			attrs := []any{"method", req.Method, "id", req.ID, "duration", time.Since(start)}
			if name := toolCallName(req); name != "" {
				attrs = append(attrs, "tool", name)
			}
			switch {
			case resp != nil && resp.Error != nil:
				logger.Error("mcp error", append(attrs, "code", resp.Error.Code, "message", resp.Error.Message)...)
			case resp != nil && isErrorResult(resp.Result):
				logger.Warn("mcp tool failed", attrs...)
			default:
				logger.Debug("mcp request", attrs...)
			}
			return resp
		}
	}
}

// RecoveryMiddleware catches panics and returns a JSON-RPC error.
func RecoveryMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *JSONRPCRequest) (resp *JSONRPCResponse) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in MCP handler", "method", req.Method, "panic", r)
					resp = &JSONRPCResponse{
						JSONRPC: "2.0",
						ID:      req.ID,
						Error: &RPCError{
							Code:    CodeInternalError,
							Message: "Internal error",
						},
					}
				}
			}()
			return next(ctx, req)
		}
	}
}

func toolCallName(req *JSONRPCRequest) string {
	if req.Method != "tools/call" {
		return ""
	}
	params, ok := req.Params.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := params["name"].(string)
	return name
}

func isErrorResult(result any) bool {
	r, ok := result.(*ToolCallResult)
	return ok && r.IsError
}
