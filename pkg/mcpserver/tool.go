package mcpserver

import "context"

// ToolHandler is the interface for MCP tools.
type ToolHandler interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input.
	InputSchema() map[string]any

	// Execute runs the tool. args has already been checked against InputSchema
	// and carries its defaults.
	Execute(ctx context.Context, args map[string]any) (*ToolCallResult, error)
}

// BaseTool provides a base implementation for common tool fields.
// Embed this in your tool structs and implement Execute().
type BaseTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      map[string]any

	// ReadOnly marks tools that never change remote state.
	ReadOnly bool
}

func (t *BaseTool) Name() string                { return t.ToolName }
func (t *BaseTool) Description() string         { return t.ToolDescription }
func (t *BaseTool) InputSchema() map[string]any { return t.ToolSchema }
func (t *BaseTool) IsReadOnly() bool            { return t.ReadOnly }

type readOnlyTool interface {
	IsReadOnly() bool
}

type toolNameKey struct{}

// ToolNameFromContext returns the name of the tool being executed, if any.
func ToolNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(toolNameKey{}).(string)
	return name
}

// WithToolName returns a context carrying the tool name.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}
