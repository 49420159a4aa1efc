package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobinCoderZhao/futuur-mcp/internal/journal"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
)

func init() {
	color.NoColor = true
}

func TestParseRequest(t *testing.T) {
	req, err := parseRequest("get", "bets/", []string{"active=true", "outcome=1", "outcome=2"}, "")
	require.NoError(t, err)
	get, ok := req.(marketapi.Get)
	require.True(t, ok)
	assert.Equal(t, "bets/", get.Endpoint)

	req, err = parseRequest("PATCH", "bets/7/", nil, `{"sale":{"shares":1}}`)
	require.NoError(t, err)
	assert.IsType(t, marketapi.Patch{}, req)

	req, err = parseRequest("POST", "bets/", nil, "")
	require.NoError(t, err)
	assert.Nil(t, req.(marketapi.Post).Body)
}

func TestParseRequest_Rejects(t *testing.T) {
	cases := map[string]struct {
		method string
		params []string
		body   string
	}{
		"bad method":      {method: "DELETE"},
		"param no equals": {method: "GET", params: []string{"active"}},
		"get with body":   {method: "GET", body: `{}`},
		"post with param": {method: "POST", params: []string{"a=b"}},
		"invalid json":    {method: "POST", body: `{"a":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseRequest(tc.method, "bets/", tc.params, tc.body)
			assert.Error(t, err)
		})
	}
}

func TestPrintSigned(t *testing.T) {
	creds := marketapi.Credentials{PublicKey: "pub", PrivateKey: "very-secret"}
	store := marketapi.NewCredentialStore(marketapi.StaticSource(creds))
	classifier, err := marketapi.NewClassifier(marketapi.DefaultPublicPrefixes)
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	builder, err := marketapi.NewBuilder(marketapi.BuilderConfig{BaseURL: "https://api.example.test/api/v1"}, store, classifier,
		marketapi.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	req, err := parseRequest("GET", "bets/", []string{"active=true"}, "")
	require.NoError(t, err)
	built, err := builder.Build(req)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSigned(&buf, built, store))
	out := buf.String()

	assert.Contains(t, out, "https://api.example.test/api/v1/bets/?active=true")
	assert.Contains(t, out, "Timestamp: 1700000000")
	assert.Contains(t, out, marketapi.SigningString(built.SignedPairs, creds, now))
	assert.Contains(t, out, built.Header.Get(marketapi.HeaderHMAC))
	assert.NotContains(t, out, "very-secret")
}

func TestPrintSigned_Public(t *testing.T) {
	store := marketapi.NewCredentialStore(marketapi.StaticSource(marketapi.Credentials{}))
	classifier, err := marketapi.NewClassifier(marketapi.DefaultPublicPrefixes)
	require.NoError(t, err)
	builder, err := marketapi.NewBuilder(marketapi.BuilderConfig{}, store, classifier)
	require.NoError(t, err)

	built, err := builder.Build(marketapi.Get{Endpoint: "categories/"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSigned(&buf, built, store))
	assert.Contains(t, buf.String(), "sent unsigned")
	assert.NotContains(t, buf.String(), "HMAC:")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "no requests recorded\n", buf.String())

	buf.Reset()
	printHistory(&buf, []journal.Entry{
		{Tool: "get_profile", Method: "GET", Endpoint: "me/", Class: "authenticated", Status: 200, Outcome: "ok", Duration: 12 * time.Millisecond, CreatedAt: time.Now()},
		{Method: "POST", Endpoint: "bets/", Class: "authenticated", Status: 403, Outcome: "api_error", Error: "forbidden", CreatedAt: time.Now()},
	})
	out := buf.String()
	assert.Contains(t, out, "get_profile")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "api_error")
	assert.Contains(t, out, "    forbidden")
}
