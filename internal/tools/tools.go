// Package tools exposes Futuur API operations as MCP tools.
//
// Every tool receives arguments that the MCP host has already checked against its input
// schema, builds exactly one marketapi.Request, and renders the response as Markdown.
// Failures are rendered into error results with RenderError; a tool never returns a Go error
// for a remote or configuration problem.
package tools

import (
	"context"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

// Doer is the part of marketapi.Client the tools need.
type Doer interface {
	Do(ctx context.Context, req marketapi.Request, out any) error
}

// Options tunes rendering.
type Options struct {
	// Locale is a BCP 47 tag used to format numbers. Empty means English.
	Locale string
	// DescriptionLimit caps market descriptions, in characters. Zero means 2000.
	DescriptionLimit int
}

type env struct {
	api       Doer
	fmt       formatter
	descLimit int
}

// New returns every tool, bound to api.
func New(api Doer, opts Options) []mcpserver.ToolHandler {
	e := &env{
		api:       api,
		fmt:       newFormatter(opts.Locale),
		descLimit: opts.DescriptionLimit,
	}
	if e.descLimit <= 0 {
		e.descLimit = 2000
	}
	return []mcpserver.ToolHandler{
		newListMarkets(e),
		newGetMarket(e),
		newListCategories(e),
		newGetRates(e),
		newSimulatePosition(e),
		newPlacePosition(e),
		newSellPosition(e),
		newListPositions(e),
		newGetProfile(e),
	}
}

// Schema helpers keep the tool definitions readable.

func object(required []string, props map[string]any) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string, extra ...any) map[string]any {
	p := map[string]any{"type": typ, "description": description}
	for i := 0; i+1 < len(extra); i += 2 {
		p[extra[i].(string)] = extra[i+1]
	}
	return p
}

var (
	currencyProp = prop("string", "Currency code: OOM for play money, or a crypto currency such as BTC, ETH or USDC.", "default", "OOM")
	limitProp    = prop("integer", "Maximum number of results.", "minimum", 1, "maximum", 100, "default", 10)
	offsetProp   = prop("integer", "Number of results to skip.", "minimum", 0, "default", 0)
)
