package mcpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

var testSecret = []byte("test-secret")

func post(t *testing.T, url, token, session, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if session != "" {
		req.Header.Set("Mcp-Session-Id", session)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTP_SessionFlow(t *testing.T) {
	srv := httptest.NewServer(newTestServer().NewHTTPServer("").Handler())
	defer srv.Close()

	resp := post(t, srv.URL+"/mcp", "", "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	session := resp.Header.Get("Mcp-Session-Id")
	if resp.StatusCode != http.StatusOK || session == "" {
		t.Fatalf("expected session from initialize, got %d %q", resp.StatusCode, session)
	}

	resp = post(t, srv.URL+"/mcp", "", "", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without session, got %d", resp.StatusCode)
	}

	resp = post(t, srv.URL+"/mcp", "", session, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"x"}}}`)
	var rpc struct {
		Result mcpserver.ToolCallResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		t.Fatal(err)
	}
	if rpc.Result.Content[0].Text != "echo: x" {
		t.Fatalf("unexpected result %+v", rpc.Result)
	}

	resp = post(t, srv.URL+"/mcp", "", session, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 for notification, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/mcp", nil)
	req.Header.Set("Mcp-Session-Id", session)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", del.StatusCode)
	}
}

func TestHTTP_SSE(t *testing.T) {
	srv := httptest.NewServer(newTestServer().NewHTTPServer("").Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	req.Header.Set("Accept", "application/json, text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	if !bytes.HasPrefix(body, []byte("event: message\ndata: {")) {
		t.Fatalf("unexpected SSE body %q", body)
	}
}

func TestHTTP_RESTTools(t *testing.T) {
	srv := httptest.NewServer(newTestServer().NewHTTPServer("").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/tools")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list mcpserver.ToolsListResult
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Tools) != 1 || list.Tools[0].Name != "echo" {
		t.Fatalf("unexpected tools %+v", list.Tools)
	}

	callResp := post(t, srv.URL+"/api/tools/echo", "", "", `{"message":"rest"}`)
	var result mcpserver.ToolCallResult
	if err := json.NewDecoder(callResp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.IsError || result.Content[0].Text != "echo: rest" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHTTP_Auth(t *testing.T) {
	hs := newTestServer().NewHTTPServer("", mcpserver.WithAuthSecret(testSecret))
	srv := httptest.NewServer(hs.Handler())
	defer srv.Close()

	if resp := post(t, srv.URL+"/mcp", "", "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	forged, err := mcpserver.IssueToken([]byte("other-secret"), "agent", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if resp := post(t, srv.URL+"/mcp", forged, "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", resp.StatusCode)
	}

	token, err := mcpserver.IssueToken(testSecret, "agent", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if resp := post(t, srv.URL+"/mcp", token, "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("health must stay public, got %d", health.StatusCode)
	}
}

func TestHTTP_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "up 1\n") })
	srv := httptest.NewServer(newTestServer().NewHTTPServer("", mcpserver.WithMetricsHandler(metrics)).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "up 1\n" {
		t.Fatalf("unexpected metrics body %q", body)
	}
}

func TestTokens(t *testing.T) {
	token, err := mcpserver.IssueToken(testSecret, "cli", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := mcpserver.ParseToken(testSecret, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "cli" {
		t.Fatalf("expected subject cli, got %q", claims.Subject)
	}

	if _, err := mcpserver.IssueToken(nil, "cli", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := mcpserver.IssueToken(testSecret, "cli", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	if _, err := mcpserver.ParseToken(testSecret, "not.a.token"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestHTTP_ServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestServer().RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
