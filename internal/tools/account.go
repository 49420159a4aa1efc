package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

type getRates struct {
	mcpserver.BaseTool
	env *env
}

func newGetRates(e *env) *getRates {
	return &getRates{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "get_rates",
			ToolDescription: "Get Futuur currency exchange rates (units per USD), and optionally convert an amount between two currencies.",
			ReadOnly:        true,
			ToolSchema: object(nil, map[string]any{
				"amount": prop("number", "Amount to convert.", "minimum", 0),
				"from":   prop("string", "Currency to convert from."),
				"to":     prop("string", "Currency to convert to."),
			}),
		},
	}
}

func (t *getRates) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	amount, convert := floatArg(args, "amount")
	from := strings.ToUpper(stringArg(args, "from"))
	to := strings.ToUpper(stringArg(args, "to"))
	if convert && (from == "" || to == "") {
		return RenderError(&ArgError{Name: "amount", Problem: "needs both from and to"}), nil
	}

	var raw map[string]any
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "bets/rates/"}, &raw); err != nil {
		return RenderError(err), nil
	}
	rates := numericRates(raw)

	var sb strings.Builder
	if convert {
		converted, err := Convert(rates, amount, from, to)
		if err != nil {
			return RenderError(err), nil
		}
		fmt.Fprintf(&sb, "%s = %s\n\n", t.env.fmt.amount(amount, from), t.env.fmt.amount(converted, to))
	}

	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	sb.WriteString("Rates per 1 USD:\n")
	for _, code := range codes {
		fmt.Fprintf(&sb, "- %s: %s\n", code, t.env.fmt.num(rates[code]))
	}
	return mcpserver.TextResult(sb.String()), nil
}

// numericRates keeps the numeric members of a rates response, keyed by upper-case currency code.
// A nested {"rates": {...}} envelope is unwrapped.
func numericRates(raw map[string]any) map[string]float64 {
	if inner, ok := raw["rates"].(map[string]any); ok {
		raw = inner
	}
	rates := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok && f > 0 {
			rates[strings.ToUpper(k)] = f
		}
	}
	return rates
}

// Convert converts amount between currencies given rates expressed in units per USD.
// USD itself is implied at 1 when the table does not list it.
func Convert(rates map[string]float64, amount float64, from, to string) (float64, error) {
	lookup := func(code string) (float64, error) {
		if r, ok := rates[code]; ok {
			return r, nil
		}
		if code == "USD" {
			return 1, nil
		}
		return 0, &ArgError{Name: "currency", Problem: fmt.Sprintf("no rate for %s", code)}
	}
	fromRate, err := lookup(from)
	if err != nil {
		return 0, err
	}
	toRate, err := lookup(to)
	if err != nil {
		return 0, err
	}
	return amount * toRate / fromRate, nil
}

type getProfile struct {
	mcpserver.BaseTool
	env *env
}

func newGetProfile(e *env) *getProfile {
	return &getProfile{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "get_profile",
			ToolDescription: "Get the authenticated Futuur account: username and wallet balances.",
			ReadOnly:        true,
			ToolSchema:      object(nil, map[string]any{}),
		},
	}
}

func (t *getProfile) Execute(ctx context.Context, _ map[string]any) (*mcpserver.ToolCallResult, error) {
	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "me/"}, &raw); err != nil {
		return RenderError(err), nil
	}
	return t.env.renderObject("Futuur account:", raw)
}
