package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDetailLen caps the remote error text copied into an APIError.
const maxDetailLen = 512

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithObserver registers an observer for every call.
func WithObserver(o Observer) InvokerOption {
	return func(inv *Invoker) { inv.observer = o }
}

// Invoker sends built requests. It does not retry and adds no deadline of its own;
// timeouts belong to the http.Client and the caller's context.
type Invoker struct {
	http     *http.Client
	observer Observer
}

// NewInvoker wraps client; nil means http.DefaultClient.
func NewInvoker(client *http.Client, opts ...InvokerOption) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	inv := &Invoker{http: client}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Send issues req and returns the raw JSON body of a 2xx response.
// An empty 2xx body (for example 204) is returned as JSON null.
func (inv *Invoker) Send(ctx context.Context, req *BuiltRequest) (json.RawMessage, error) {
	start := time.Now()
	status, body, err := inv.send(ctx, req)
	if inv.observer != nil {
		inv.observer.ObserveRequest(ctx, RequestEvent{
			Endpoint:   req.Endpoint,
			Method:     req.Method,
			Class:      req.Class,
			StatusCode: status,
			Duration:   time.Since(start),
			Err:        err,
		})
	}
	return body, err
}

func (inv *Invoker) send(ctx context.Context, req *BuiltRequest) (int, json.RawMessage, error) {
	var reqBody io.Reader
	if req.Body != nil {
		reqBody = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reqBody)
	if err != nil {
		return 0, nil, &ProtocolError{Kind: ProtocolNetwork, Endpoint: req.Endpoint, Method: req.Method, Err: fmt.Errorf("create request: %w", err)}
	}
	for name, values := range req.Header {
		httpReq.Header[name] = append([]string(nil), values...)
	}

	httpResp, err := inv.http.Do(httpReq)
	if err != nil {
		return 0, nil, &ProtocolError{Kind: ProtocolNetwork, Endpoint: req.Endpoint, Method: req.Method, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return httpResp.StatusCode, nil, &ProtocolError{Kind: ProtocolNetwork, Endpoint: req.Endpoint, Method: req.Method, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return httpResp.StatusCode, nil, &APIError{
			StatusCode:  httpResp.StatusCode,
			Status:      http.StatusText(httpResp.StatusCode),
			Endpoint:    req.Endpoint,
			Method:      req.Method,
			HeaderNames: req.HeaderNames(),
			Detail:      errorDetail(respBody),
		}
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 {
		return httpResp.StatusCode, json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return httpResp.StatusCode, nil, &ProtocolError{
			Kind:     ProtocolDecode,
			Endpoint: req.Endpoint,
			Method:   req.Method,
			Err:      fmt.Errorf("response is not JSON (%d bytes, content-type %q)", len(respBody), httpResp.Header.Get("Content-Type")),
		}
	}
	return httpResp.StatusCode, json.RawMessage(trimmed), nil
}

// errorDetail pulls a human-readable message out of an error body.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, s := range []string{parsed.Detail, parsed.Error, parsed.Message} {
			if s != "" {
				return truncate(s)
			}
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}
