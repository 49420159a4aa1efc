package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

var positionProp = prop("string", "l to buy (long) the outcome, s to sell it short.", "enum", []string{"l", "s"}, "default", "l")

type simulatePosition struct {
	mcpserver.BaseTool
	env *env
}

func newSimulatePosition(e *env) *simulatePosition {
	return &simulatePosition{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "simulate_position",
			ToolDescription: "Preview a purchase on a Futuur outcome: shares received and price impact. Nothing is bought.",
			ReadOnly:        true,
			ToolSchema: object([]string{"outcome", "amount"}, map[string]any{
				"outcome":  prop("integer", "Outcome id.", "minimum", 1),
				"amount":   prop("number", "Amount to spend, in currency units.", "minimum", 0),
				"currency": currencyProp,
				"position": positionProp,
			}),
		},
	}
}

func (t *simulatePosition) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	outcome, err := requireInt(args, "outcome")
	if err != nil {
		return RenderError(err), nil
	}
	amount, err := positiveAmount(args, "amount")
	if err != nil {
		return RenderError(err), nil
	}

	var q marketapi.Query
	q.Add("outcome", outcome).
		Add("currency", currencyArg(args)).
		Add("position", stringArg(args, "position")).
		Add("amount", amount)

	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "bets/simulate_purchase/", Query: q}, &raw); err != nil {
		return RenderError(err), nil
	}
	return t.env.renderObject(fmt.Sprintf("Simulated purchase of %s on outcome %d:", t.env.fmt.amount(amount, currencyArg(args)), outcome), raw)
}

// purchase is the body of a new position.
type purchase struct {
	Outcome  int64   `json:"outcome"`
	Currency string  `json:"currency"`
	Position string  `json:"position"`
	Amount   float64 `json:"amount"`
}

type placePosition struct {
	mcpserver.BaseTool
	env *env
}

func newPlacePosition(e *env) *placePosition {
	return &placePosition{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "place_position",
			ToolDescription: "Buy shares of a Futuur outcome. This spends funds; run simulate_position first.",
			ToolSchema: object([]string{"outcome", "amount"}, map[string]any{
				"outcome":  prop("integer", "Outcome id.", "minimum", 1),
				"amount":   prop("number", "Amount to spend, in currency units.", "minimum", 0),
				"currency": currencyProp,
				"position": positionProp,
			}),
		},
	}
}

func (t *placePosition) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	outcome, err := requireInt(args, "outcome")
	if err != nil {
		return RenderError(err), nil
	}
	amount, err := positiveAmount(args, "amount")
	if err != nil {
		return RenderError(err), nil
	}

	body := purchase{
		Outcome:  outcome,
		Currency: currencyArg(args),
		Position: stringArg(args, "position"),
		Amount:   amount,
	}
	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Post{Endpoint: "bets/", Body: body}, &raw); err != nil {
		return RenderError(err), nil
	}
	return t.env.renderObject(fmt.Sprintf("Position placed: %s on outcome %d.", t.env.fmt.amount(amount, body.Currency), outcome), raw)
}

// sale is the body of a (partial) position close. Exactly one of Amount and Shares is set,
// or neither to close the whole position.
type sale struct {
	Amount   *float64 `json:"amount,omitempty"`
	Shares   *float64 `json:"shares,omitempty"`
	Currency string   `json:"currency"`
}

type sellPosition struct {
	mcpserver.BaseTool
	env *env
}

func newSellPosition(e *env) *sellPosition {
	return &sellPosition{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "sell_position",
			ToolDescription: "Sell all or part of an open Futuur position. Give amount or shares to sell part; give neither to close it.",
			ToolSchema: object([]string{"id"}, map[string]any{
				"id":       prop("integer", "Position (bet) id.", "minimum", 1),
				"amount":   prop("number", "Currency amount to take out.", "minimum", 0),
				"shares":   prop("number", "Number of shares to sell.", "minimum", 0),
				"currency": currencyProp,
			}),
		},
	}
}

func (t *sellPosition) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	id, err := requireInt(args, "id")
	if err != nil {
		return RenderError(err), nil
	}

	body := sale{Currency: currencyArg(args)}
	if _, ok := args["amount"]; ok {
		v, err := positiveAmount(args, "amount")
		if err != nil {
			return RenderError(err), nil
		}
		body.Amount = &v
	}
	if _, ok := args["shares"]; ok {
		v, err := positiveAmount(args, "shares")
		if err != nil {
			return RenderError(err), nil
		}
		body.Shares = &v
	}
	if body.Amount != nil && body.Shares != nil {
		return RenderError(&ArgError{Name: "amount", Problem: "cannot be combined with shares"}), nil
	}

	endpoint := fmt.Sprintf("bets/%d/", id)
	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Patch{Endpoint: endpoint, Body: body}, &raw); err != nil {
		return RenderError(err), nil
	}

	headline := fmt.Sprintf("Position %d closed.", id)
	switch {
	case body.Amount != nil:
		headline = fmt.Sprintf("Sold %s from position %d.", t.env.fmt.amount(*body.Amount, body.Currency), id)
	case body.Shares != nil:
		headline = fmt.Sprintf("Sold %s shares from position %d.", t.env.fmt.num(*body.Shares), id)
	}
	return t.env.renderObject(headline, raw)
}

type listPositions struct {
	mcpserver.BaseTool
	env *env
}

func newListPositions(e *env) *listPositions {
	return &listPositions{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "list_positions",
			ToolDescription: "List your Futuur positions, optionally only active ones or those on given outcomes.",
			ReadOnly:        true,
			ToolSchema: object(nil, map[string]any{
				"active":   prop("boolean", "Only open positions (true) or only closed ones (false)."),
				"currency": prop("string", "Only positions in this currency."),
				"outcome":  prop("array", "Only positions on these outcome ids.", "items", map[string]any{"type": "integer"}),
				"limit":    limitProp,
				"offset":   offsetProp,
			}),
		},
	}
}

func (t *listPositions) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	var q marketapi.Query
	if active, ok := boolArg(args, "active"); ok {
		q.Add("active", active)
	}
	if c := stringArg(args, "currency"); c != "" {
		q.Add("currency", strings.ToUpper(c))
	}
	if ids := intsArg(args, "outcome"); len(ids) > 0 {
		q.Add("outcome", ids)
	}
	limit, _ := intArg(args, "limit")
	offset, _ := intArg(args, "offset")
	q.Add("limit", limit).Add("offset", offset)

	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "bets/", Query: q}, &raw); err != nil {
		return RenderError(err), nil
	}
	page, err := decodeList[map[string]any](raw, "bets/")
	if err != nil {
		return RenderError(err), nil
	}
	if len(page.Items) == 0 {
		return mcpserver.TextResult("No positions found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Showing %d of %d positions (offset %d).\n", len(page.Items), page.Total, offset)
	for i, item := range page.Items {
		fmt.Fprintf(&sb, "\n### Position %d\n", offset+int64(i)+1)
		t.env.fmt.fields(&sb, item, "", 0)
	}
	if page.More {
		fmt.Fprintf(&sb, "\nMore results: call again with offset %d.\n", offset+int64(len(page.Items)))
	}
	return mcpserver.TextResult(sb.String()), nil
}

// renderObject renders a JSON object response under headline. Non-object bodies are shown verbatim.
func (e *env) renderObject(headline string, raw json.RawMessage) (*mcpserver.ToolCallResult, error) {
	var sb strings.Builder
	sb.WriteString(headline + "\n")

	obj, err := decodeObject(raw)
	if err != nil || obj == nil {
		if s := strings.TrimSpace(string(raw)); s != "" && s != "null" {
			sb.WriteString("\n" + s + "\n")
		}
		return mcpserver.TextResult(sb.String()), nil
	}
	sb.WriteString("\n")
	e.fmt.fields(&sb, obj, "", 0)
	return mcpserver.TextResult(sb.String()), nil
}
