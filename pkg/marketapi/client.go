// Package marketapi shapes, signs and sends requests to the Futuur prediction-market REST API.
//
// A call flows one way: Request -> Builder (Classifier, CredentialStore, Sign) -> Invoker ->
// remote service. Private endpoints are signed with HMAC-SHA512 over the sorted, form-encoded
// request parameters plus the public key and a unix timestamp; public catalogue endpoints go out
// unsigned. Nothing is cached between calls.
//
//	store := marketapi.NewCredentialStore(marketapi.EnvSource("FUTUUR_PUBLIC_KEY", "FUTUUR_PRIVATE_KEY"))
//	classifier, _ := marketapi.NewClassifier(marketapi.DefaultPublicPrefixes)
//	builder, _ := marketapi.NewBuilder(marketapi.BuilderConfig{}, store, classifier)
//	client := marketapi.NewClient(builder, marketapi.NewInvoker(nil))
//
//	var me Profile
//	err := client.Do(ctx, marketapi.Get{Endpoint: "me/"}, &me)
package marketapi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client ties a Builder to an Invoker.
type Client struct {
	builder *Builder
	invoker *Invoker
}

// NewClient creates a Client.
func NewClient(builder *Builder, invoker *Invoker) *Client {
	return &Client{builder: builder, invoker: invoker}
}

// Classify reports how endpoint will be treated.
func (c *Client) Classify(endpoint string) EndpointClass {
	return c.builder.Classify(endpoint)
}

// Build exposes the builder for diagnostics.
func (c *Client) Build(req Request) (*BuiltRequest, error) {
	return c.builder.Build(req)
}

// Do builds and sends req, decoding a successful response into out when out is non-nil.
// Errors come back unchanged: *ConfigError, *APIError or *ProtocolError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req == nil {
		return fmt.Errorf("marketapi: nil request")
	}
	built, err := c.builder.Build(req)
	if err != nil {
		if c.invoker.observer != nil {
			c.invoker.observer.ObserveRequest(ctx, RequestEvent{
				Endpoint: normalizeEndpoint(req.Path()),
				Method:   req.Method(),
				Class:    c.builder.Classify(req.Path()),
				Err:      err,
			})
		}
		return err
	}

	raw, err := c.invoker.Send(ctx, built)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{
			Kind:     ProtocolDecode,
			Endpoint: built.Endpoint,
			Method:   built.Method,
			Err:      fmt.Errorf("decode into %T: %w", out, err),
		}
	}
	return nil
}
