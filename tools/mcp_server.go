package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPExposure re-exposes a subset of Registry's canonical tools over MCP
// (stdio/SSE), so an operator-side copilot or a third-party agent can call
// the same tenant-scoped tools a conversation's journey subflows call.
// Grounded on the teacher's ui/mcp query/send handler shape
// (mcpServer.AddTool + typed request parameter extraction), narrowed from
// per-domain handler structs to a single registry-backed exposure.
type MCPExposure struct {
	registry *Registry
}

func NewMCPExposure(registry *Registry) *MCPExposure {
	return &MCPExposure{registry: registry}
}

// ToolDescriptor documents one exposed tool's name, description and
// required string parameters, used to build its mcp.Tool definition.
type ToolDescriptor struct {
	Name            string
	Description     string
	RequiredStrings []string
	ReadOnly        bool
}

// Register adds every descriptor to mcpServer, each call routed through
// Registry.Invoke under the caller-supplied tenant context.
func (e *MCPExposure) Register(mcpServer *server.MCPServer, tenantID, conversationID string, descriptors []ToolDescriptor) {
	for _, d := range descriptors {
		d := d
		opts := []mcp.ToolOption{
			mcp.WithDescription(d.Description),
			mcp.WithReadOnlyHintAnnotation(d.ReadOnly),
		}
		for _, param := range d.RequiredStrings {
			opts = append(opts, mcp.WithString(param, mcp.Required()))
		}
		mcpServer.AddTool(mcp.NewTool(d.Name, opts...), e.handlerFor(d, tenantID, conversationID))
	}
}

func (e *MCPExposure) handlerFor(d ToolDescriptor, tenantID, conversationID string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := make(map[string]any, len(d.RequiredStrings))
		for _, param := range d.RequiredStrings {
			val, err := request.RequireString(param)
			if err != nil {
				return nil, err
			}
			args[param] = val
		}

		tc := Context{TenantID: tenantID, ConversationID: conversationID, RequestID: request.Params.Name}
		out, err := e.registry.Invoke(ctx, d.Name, tc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("tools: marshal result for %s: %w", d.Name, err)
		}
		return mcp.NewToolResultStructured(out, string(raw)), nil
	}
}

// CanonicalDescriptors documents the fixed set of tools exposed over MCP
// that take no arguments beyond the tenant/conversation context plus the
// single free-form query parameters spec.md §4.6 names.
func CanonicalDescriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{Name: TenantGetContext, Description: "Return the tenant's bot persona and runtime flags.", ReadOnly: true},
		{Name: CatalogSearch, Description: "Search the tenant's catalog.", RequiredStrings: []string{"query"}, ReadOnly: true},
		{Name: CatalogGetItem, Description: "Fetch one catalog item by id.", RequiredStrings: []string{"item_id"}, ReadOnly: true},
		{Name: OrderGetStatus, Description: "Fetch an order's status.", RequiredStrings: []string{"order_id"}, ReadOnly: true},
		{Name: OffersGetApplicable, Description: "List offers applicable to the current cart.", ReadOnly: true},
		{Name: KBRetrieve, Description: "Retrieve knowledge-base snippets for a query.", RequiredStrings: []string{"query"}, ReadOnly: true},
	}
}
