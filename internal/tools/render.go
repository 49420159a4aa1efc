package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/htmltext"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

// RenderError turns a failed call into a tool error result the agent can act on.
func RenderError(err error) *mcpserver.ToolCallResult {
	var (
		argErr   *ArgError
		cfgErr   *marketapi.ConfigError
		apiErr   *marketapi.APIError
		protoErr *marketapi.ProtocolError
		msg      string
	)
	switch {
	case errors.As(err, &argErr):
		msg = argErr.Error()
	case errors.As(err, &cfgErr):
		msg = "Futuur API credentials are not configured"
		if len(cfgErr.Missing) > 0 {
			msg += " (missing " + strings.Join(cfgErr.Missing, " and ") + ")"
		}
		msg += ". Set FUTUUR_PUBLIC_KEY and FUTUUR_PRIVATE_KEY, or api.public_key and api.private_key in the config file, then reload."
	case errors.As(err, &apiErr):
		msg = fmt.Sprintf("Futuur API rejected %s %s: %d %s", apiErr.Method, apiErr.Endpoint, apiErr.StatusCode, apiErr.Status)
		if apiErr.Detail != "" {
			msg += "\n\n" + apiErr.Detail
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			msg += "\n\nCheck that the API key pair is valid and that the system clock is accurate; signed requests carry a timestamp."
		case http.StatusNotFound:
			msg += "\n\nCheck the id."
		case http.StatusTooManyRequests:
			msg += "\n\nThe request was rate limited. Wait before retrying."
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = "The request was cancelled before Futuur answered. A position change may still have been applied; check list_positions before retrying."
	case errors.As(err, &protoErr) && protoErr.Kind == marketapi.ProtocolNetwork:
		msg = fmt.Sprintf("Could not reach the Futuur API (%s %s): %v", protoErr.Method, protoErr.Endpoint, protoErr.Err)
	case errors.As(err, &protoErr):
		msg = fmt.Sprintf("Futuur returned an unexpected response for %s %s: %v", protoErr.Method, protoErr.Endpoint, protoErr.Err)
	default:
		msg = err.Error()
	}
	return &mcpserver.ToolCallResult{
		Content: []mcpserver.Content{{Type: "text", Text: msg}},
		IsError: true,
	}
}

// formatter renders numbers for one locale.
type formatter struct {
	p *message.Printer
}

func newFormatter(locale string) formatter {
	tag := language.English
	if locale != "" {
		if t, err := language.Parse(locale); err == nil {
			tag = t
		}
	}
	return formatter{p: message.NewPrinter(tag)}
}

func (f formatter) num(v float64) string {
	return f.p.Sprint(number.Decimal(v, number.MaxFractionDigits(4)))
}

func (f formatter) amount(v float64, currency string) string {
	if currency == "" {
		return f.num(v)
	}
	return f.num(v) + " " + currency
}

// prices renders a currency->price map in a stable order.
func (f formatter) prices(p prices) string {
	if len(p) == 0 {
		return "no price"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + f.num(p[k])
	}
	return strings.Join(parts, ", ")
}

// fields renders the scalar members of obj as a Markdown list, flattening one level of nesting.
func (f formatter) fields(sb *strings.Builder, obj map[string]any, prefix string, depth int) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := prefix + k
		switch v := obj[k].(type) {
		case nil:
		case map[string]any:
			if depth == 0 {
				f.fields(sb, v, name+".", depth+1)
			}
		case []any:
			fmt.Fprintf(sb, "- **%s**: %s\n", name, f.list(v))
		default:
			fmt.Fprintf(sb, "- **%s**: %s\n", name, f.scalar(k, v))
		}
	}
}

func (f formatter) list(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if title, ok := v["title"].(string); ok {
				parts = append(parts, title)
				continue
			}
			return fmt.Sprintf("%d items", len(items))
		case []any:
			return fmt.Sprintf("%d items", len(items))
		default:
			parts = append(parts, f.scalar("", v))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func (f formatter) scalar(key string, v any) string {
	switch x := v.(type) {
	case json.Number:
		if isIdentifier(key) {
			return x.String()
		}
		if n, err := x.Float64(); err == nil {
			return f.num(n)
		}
		return x.String()
	case float64:
		if isIdentifier(key) {
			return fmt.Sprint(int64(x))
		}
		return f.num(x)
	case string:
		if strings.Contains(x, "<") && strings.Contains(x, ">") {
			return htmltext.Truncate(htmltext.ExtractText(x), 280)
		}
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprint(v)
}

func isIdentifier(key string) bool {
	return key == "id" || key == "outcome" || key == "event" || strings.HasSuffix(key, "_id")
}

// decodeObject decodes a JSON object keeping numbers exact.
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// listPage holds a decoded list response, paginated or bare.
type listPage[T any] struct {
	Items []T
	Total int
	More  bool
}

// decodeList accepts either a bare JSON array or a {"count", "next", "results"} page.
func decodeList[T any](raw json.RawMessage, endpoint string) (*listPage[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, listError(endpoint, err)
		}
		return &listPage[T]{Items: items, Total: len(items)}, nil
	}

	var page struct {
		Count   *int    `json:"count"`
		Next    *string `json:"next"`
		Results []T     `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, listError(endpoint, err)
	}
	if page.Results == nil && page.Count == nil {
		return nil, listError(endpoint, errors.New("response is neither a list nor a page of results"))
	}
	out := &listPage[T]{Items: page.Results, Total: len(page.Results), More: page.Next != nil && *page.Next != ""}
	if page.Count != nil {
		out.Total = *page.Count
	}
	return out, nil
}

func listError(endpoint string, err error) error {
	return &marketapi.ProtocolError{Kind: marketapi.ProtocolDecode, Endpoint: endpoint, Method: http.MethodGet, Err: err}
}
