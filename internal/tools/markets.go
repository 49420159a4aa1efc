package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/htmltext"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
)

type listMarkets struct {
	mcpserver.BaseTool
	env *env
}

func newListMarkets(e *env) *listMarkets {
	return &listMarkets{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "list_markets",
			ToolDescription: "Search and list Futuur prediction markets with their outcomes and current prices.",
			ReadOnly:        true,
			ToolSchema: object(nil, map[string]any{
				"category": prop("integer", "Only markets in this category id.", "minimum", 1),
				"search":   prop("string", "Free-text search over market titles."),
				"tags":     prop("array", "Only markets carrying all of these tag slugs.", "items", map[string]any{"type": "string"}),
				"ordering": prop("string", "Sort order.", "enum", []string{
					"-created_on", "bet_end_date", "-bet_end_date", "-volume_play_money", "-volume_real_money", "-wagers_count",
				}),
				"live":   prop("boolean", "Only markets that are currently open for trading."),
				"limit":  limitProp,
				"offset": offsetProp,
			}),
		},
	}
}

func (t *listMarkets) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	var q marketapi.Query
	if id, ok := intArg(args, "category"); ok {
		q.Add("categories", id)
	}
	if s := stringArg(args, "search"); s != "" {
		q.Add("search", s)
	}
	if tags := stringsArg(args, "tags"); len(tags) > 0 {
		q.Add("tags", tags)
	}
	if s := stringArg(args, "ordering"); s != "" {
		q.Add("ordering", s)
	}
	if live, ok := boolArg(args, "live"); ok {
		q.Add("live", live)
	}
	limit, _ := intArg(args, "limit")
	offset, _ := intArg(args, "offset")
	q.Add("limit", limit).Add("offset", offset)

	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "events/", Query: q}, &raw); err != nil {
		return RenderError(err), nil
	}
	page, err := decodeList[event](raw, "events/")
	if err != nil {
		return RenderError(err), nil
	}

	if len(page.Items) == 0 {
		return mcpserver.TextResult("No markets matched."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Showing %d of %d markets (offset %d).\n", len(page.Items), page.Total, offset)
	for _, ev := range page.Items {
		sb.WriteString("\n")
		t.env.writeEventSummary(&sb, ev)
	}
	if page.More {
		fmt.Fprintf(&sb, "\nMore results: call again with offset %d.\n", offset+int64(len(page.Items)))
	}
	return mcpserver.TextResult(sb.String()), nil
}

func (e *env) writeEventSummary(sb *strings.Builder, ev event) {
	fmt.Fprintf(sb, "### %s (id %d)\n", ev.Title, ev.ID)
	var meta []string
	if ev.Status != "" {
		meta = append(meta, "status "+ev.Status)
	}
	if ev.BetEndDate != "" {
		meta = append(meta, "closes "+ev.BetEndDate)
	}
	if ev.VolumePlayMoney > 0 {
		meta = append(meta, "volume "+e.fmt.amount(ev.VolumePlayMoney, "OOM"))
	}
	if ev.VolumeRealMoney > 0 {
		meta = append(meta, "real-money volume "+e.fmt.amount(ev.VolumeRealMoney, "USD"))
	}
	if len(meta) > 0 {
		sb.WriteString(strings.Join(meta, " | ") + "\n")
	}
	for _, o := range ev.Outcomes {
		fmt.Fprintf(sb, "- %s (outcome %d): %s\n", o.Title, o.ID, e.fmt.prices(o.Price))
	}
}

type getMarket struct {
	mcpserver.BaseTool
	env *env
}

func newGetMarket(e *env) *getMarket {
	return &getMarket{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "get_market",
			ToolDescription: "Get one Futuur market with its description, outcomes and prices.",
			ReadOnly:        true,
			ToolSchema: object([]string{"id"}, map[string]any{
				"id": prop("integer", "Market (event) id.", "minimum", 1),
			}),
		},
	}
}

func (t *getMarket) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	id, err := requireInt(args, "id")
	if err != nil {
		return RenderError(err), nil
	}

	var ev event
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: fmt.Sprintf("events/%d/", id)}, &ev); err != nil {
		return RenderError(err), nil
	}

	var sb strings.Builder
	t.env.writeEventSummary(&sb, ev)
	if len(ev.Categories) > 0 {
		sb.WriteString("\nCategories: " + joinNamed(ev.Categories) + "\n")
	}
	if len(ev.Tags) > 0 {
		sb.WriteString("Tags: " + joinNamed(ev.Tags) + "\n")
	}
	if desc := htmltext.ExtractText(ev.Description); desc != "" {
		sb.WriteString("\n" + htmltext.Truncate(desc, t.env.descLimit) + "\n")
	}
	return mcpserver.TextResult(sb.String()), nil
}

func joinNamed(items []named) string {
	parts := make([]string, len(items))
	for i, n := range items {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

type listCategories struct {
	mcpserver.BaseTool
	env *env
}

func newListCategories(e *env) *listCategories {
	return &listCategories{
		env: e,
		BaseTool: mcpserver.BaseTool{
			ToolName:        "list_categories",
			ToolDescription: "List Futuur market categories, optionally the children of one parent category.",
			ReadOnly:        true,
			ToolSchema: object(nil, map[string]any{
				"parent": prop("integer", "Only children of this category id.", "minimum", 1),
			}),
		},
	}
}

func (t *listCategories) Execute(ctx context.Context, args map[string]any) (*mcpserver.ToolCallResult, error) {
	var q marketapi.Query
	if id, ok := intArg(args, "parent"); ok {
		q.Add("parent", id)
	}

	var raw json.RawMessage
	if err := t.env.api.Do(ctx, marketapi.Get{Endpoint: "categories/", Query: q}, &raw); err != nil {
		return RenderError(err), nil
	}
	page, err := decodeList[category](raw, "categories/")
	if err != nil {
		return RenderError(err), nil
	}
	if len(page.Items) == 0 {
		return mcpserver.TextResult("No categories found."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d categories:\n", page.Total)
	for _, c := range page.Items {
		fmt.Fprintf(&sb, "- %s (id %d)", c.Title, c.ID)
		if c.Parent != nil && (c.Parent.ID != 0 || c.Parent.Title != "") {
			sb.WriteString(", parent " + c.Parent.String())
		}
		sb.WriteString("\n")
	}
	return mcpserver.TextResult(sb.String()), nil
}
