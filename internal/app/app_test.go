package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "futuur.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func discardLogger() *Options {
	return &Options{Logger: NewLogger(LogConfig{Level: "error"}, io.Discard), Version: "test"}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, marketapi.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, []string{"categories", "events"}, cfg.API.PublicPrefixes)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
api:
  base_url: https://staging.example.test/api/v1/
  public_prefixes: [events]
  timeout: 5s
server:
  transport: HTTP
  addr: 127.0.0.1:9000
render:
  locale: de
`)
	t.Setenv("FUTUUR_PUBLIC_KEY", "PK-env")
	t.Setenv("FUTUUR_PRIVATE_KEY", "SK-env")
	t.Setenv("FUTUUR_PUBLIC_PREFIXES", "events,categories,tags")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.test/api/v1/", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "de", cfg.Render.Locale)
	assert.Equal(t, []string{"events", "categories", "tags"}, cfg.API.PublicPrefixes)
	assert.Equal(t, marketapi.Credentials{PublicKey: "PK-env", PrivateKey: "SK-env"}, cfg.Credentials())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(writeConfig(t, dir, "server:\n  transport: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "server.transport")

	_, err = LoadConfig(writeConfig(t, dir, "api:\n  public_prefixes: ['/']\n"))
	assert.ErrorContains(t, err, "public_prefixes")
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/":
			if r.Header.Get("HMAC") == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			io.WriteString(w, `{"id": 1, "username": "oracle"}`)
		case "/categories/":
			io.WriteString(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_WiresObservers(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.PublicKey, cfg.API.PrivateKey = "PK1", "SECRET"
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	opts := discardLogger()
	opts.HTTPClient = srv.Client()
	a, err := New(context.Background(), cfg, *opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	res := a.Server.CallTool(context.Background(), "get_profile", nil)
	require.False(t, res.IsError, res.Content[0].Text)
	assert.Contains(t, res.Content[0].Text, "oracle")

	entries, err := a.Journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "get_profile", entries[0].Tool)
	assert.Equal(t, "authenticated", entries[0].Class)
	assert.Equal(t, 200, entries[0].Status)

	rec := httptest.NewRecorder()
	a.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `futuur_api_requests_total{class="authenticated",method="GET",outcome="ok"} 1`)
}

func TestReloadCredentials(t *testing.T) {
	srv := newFakeAPI(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "api:\n  base_url: "+srv.URL+"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	opts := discardLogger()
	opts.ConfigPath = path
	opts.HTTPClient = srv.Client()
	a, err := New(context.Background(), cfg, *opts)
	require.NoError(t, err)

	res := a.Server.CallTool(context.Background(), "get_profile", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "credentials are not configured")

	// Public tools work without keys.
	res = a.Server.CallTool(context.Background(), "list_categories", nil)
	assert.False(t, res.IsError, res.Content[0].Text)

	writeConfig(t, dir, "api:\n  base_url: "+srv.URL+"\n  public_key: PK1\n  private_key: SECRET\n")
	require.NoError(t, a.ReloadCredentials())

	res = a.Server.CallTool(context.Background(), "get_profile", nil)
	assert.False(t, res.IsError, res.Content[0].Text)
}

func TestServe_HTTPStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Transport = TransportHTTP
	cfg.Server.Addr = "127.0.0.1:0"

	a, err := New(context.Background(), cfg, *discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "futuur-mcp", userAgent("", "dev"))
	assert.Equal(t, "futuur-mcp/1.2.0", userAgent("", "1.2.0"))
	assert.Equal(t, "my-agent/1.2.0", userAgent("my-agent", "1.2.0"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "DEBUG", line["level"])
}
