package marketapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.futuur.com/api/v1/"

// BuilderConfig holds the fixed parts of every request.
type BuilderConfig struct {
	BaseURL   string
	UserAgent string
}

// BuiltRequest is a fully assembled outbound request.
type BuiltRequest struct {
	Method   string
	Endpoint string
	URL      string
	Header   http.Header
	Body     []byte
	Class    EndpointClass

	// SignedPairs is the payload that was authenticated; nil for public calls.
	SignedPairs []Pair
}

// HeaderNames returns the sorted names of the headers that will be sent.
func (r *BuiltRequest) HeaderNames() []string {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source used for signature timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// Builder turns logical requests into signed, encoded HTTP requests.
// It keeps no per-request state and is safe for concurrent use.
type Builder struct {
	base       string
	userAgent  string
	creds      *CredentialStore
	classifier *Classifier
	now        func() time.Time
}

// NewBuilder creates a Builder. An empty BaseURL means DefaultBaseURL.
func NewBuilder(cfg BuilderConfig, creds *CredentialStore, classifier *Classifier, opts ...BuilderOption) (*Builder, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("marketapi: invalid base URL %q", base)
	}
	if creds == nil || classifier == nil {
		return nil, fmt.Errorf("marketapi: builder needs a credential store and a classifier")
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "futuur-mcp"
	}

	b := &Builder{
		base:       strings.TrimRight(base, "/") + "/",
		userAgent:  ua,
		creds:      creds,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Classify reports how endpoint will be treated.
func (b *Builder) Classify(endpoint string) EndpointClass {
	return b.classifier.Classify(normalizeEndpoint(endpoint))
}

// Build assembles req. Authenticated endpoints fail with a *ConfigError when credentials are
// missing; an unsigned request is never produced for them.
func (b *Builder) Build(req Request) (*BuiltRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("marketapi: nil request")
	}
	endpoint := normalizeEndpoint(req.Path())
	if endpoint == "" {
		return nil, fmt.Errorf("marketapi: empty endpoint")
	}
	if strings.ContainsAny(endpoint, "?#") {
		return nil, fmt.Errorf("marketapi: endpoint %q must not carry a query or fragment", endpoint)
	}

	out := &BuiltRequest{
		Method:   req.Method(),
		Endpoint: endpoint,
		URL:      b.base + endpoint,
		Header:   make(http.Header),
		Class:    b.classifier.Classify(endpoint),
	}

	var payload []Pair
	switch r := req.(type) {
	case Get:
		pairs, err := r.Query.Pairs()
		if err != nil {
			return nil, fmt.Errorf("marketapi: build %s: %w", endpoint, err)
		}
		if len(pairs) > 0 {
			out.URL += "?" + encodePairs(pairs)
		}
		payload = pairs
	case Post:
		body, pairs, err := encodeBody(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marketapi: build %s: %w", endpoint, err)
		}
		out.Body, payload = body, pairs
	case Patch:
		body, pairs, err := encodeBody(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marketapi: build %s: %w", endpoint, err)
		}
		out.Body, payload = body, pairs
	default:
		return nil, fmt.Errorf("marketapi: unsupported request type %T", req)
	}

	out.Header.Set("User-Agent", b.userAgent)

	if out.Class == Authenticated {
		creds, err := b.creds.Load()
		if err != nil {
			return nil, err
		}
		Sign(payload, creds, b.now()).Apply(out.Header)
		out.SignedPairs = payload
	}

	if out.Body != nil {
		out.Header.Set("Content-Type", "application/json")
	}
	return out, nil
}

func normalizeEndpoint(endpoint string) string {
	return strings.TrimLeft(strings.TrimSpace(endpoint), "/")
}

// encodePairs keeps insertion order; the signer sorts its own copy.
func encodePairs(pairs []Pair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// encodeBody serialises body and extracts its top-level scalar fields for signing.
// Numbers are signed exactly as they appear in the transmitted JSON.
func encodeBody(body any) ([]byte, []Pair, error) {
	if body == nil {
		return []byte("{}"), nil, nil
	}

	var raw []byte
	switch b := body.(type) {
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, nil, fmt.Errorf("body must be a JSON object")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case nil:
			pairs = append(pairs, Pair{Key: k, Value: ""})
		case string:
			pairs = append(pairs, Pair{Key: k, Value: v})
		case json.Number:
			pairs = append(pairs, Pair{Key: k, Value: v.String()})
		case bool:
			pairs = append(pairs, Pair{Key: k, Value: fmt.Sprint(v)})
		}
		// Nested objects and arrays travel in the body but are not signed field by field.
	}
	return raw, pairs, nil
}
