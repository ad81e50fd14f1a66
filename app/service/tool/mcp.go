package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zapflow/app/config"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// mcpTool exposes a tool discovered on an MCP server through the registry's
// uniform contract. Names are prefixed with the server name to avoid
// collisions between servers.
type mcpTool struct {
	client client.MCPClient
	tool   mcp.Tool
	name   string
}

var _ Tool = (*mcpTool)(nil)

func (m *mcpTool) Name() string {
	return m.name
}

func (m *mcpTool) Description() string {
	return m.tool.Description
}

func (m *mcpTool) Parameters() Schema {
	schema := Schema{
		Type:     m.tool.InputSchema.Type,
		Required: m.tool.InputSchema.Required,
	}

	if len(m.tool.InputSchema.Properties) > 0 {
		schema.Properties = make(map[string]Property, len(m.tool.InputSchema.Properties))

		for propName, raw := range m.tool.InputSchema.Properties {
			prop := Property{}
			if rawMap, ok := raw.(map[string]any); ok {
				prop.Type, _ = rawMap["type"].(string)
				prop.Description, _ = rawMap["description"].(string)
			}
			schema.Properties[propName] = prop
		}
	}

	return schema
}

func (m *mcpTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	callRequest := mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
	}
	callRequest.Params.Name = m.tool.Name
	callRequest.Params.Arguments = params

	response, err := m.client.CallTool(ctx, callRequest)
	if err != nil {
		return nil, fmt.Errorf("MCP tool call failed: %w", err)
	}

	var text strings.Builder
	for _, content := range response.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			text.WriteString(textContent.Text)
			text.WriteString("\n")
		}
	}

	output := strings.TrimSpace(text.String())

	// structured payloads pass through as-is so side-channel keys survive
	var payload map[string]any
	if err := json.Unmarshal([]byte(output), &payload); err == nil {
		return payload, nil
	}

	return map[string]any{"output": output}, nil
}

func discoverMCPTools(ctx context.Context, servers []config.MCPServer) ([]Tool, error) {
	var discovered []Tool

	for _, server := range servers {
		mcpClient, err := client.NewStdioMCPClient(server.Command, nil, server.Args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create MCP client for %s: %w", server.Name, err)
		}

		initCtx, cancel := context.WithTimeout(ctx, time.Minute)

		initRequest := mcp.InitializeRequest{}
		initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initRequest.Params.ClientInfo = mcp.Implementation{
			Name:    "zapflow",
			Version: "1.0.0",
		}

		if _, err = mcpClient.Initialize(initCtx, initRequest); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize MCP client %s: %w", server.Name, err)
		}

		toolsResponse, err := mcpClient.ListTools(initCtx, mcp.ListToolsRequest{})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to list tools from %s: %w", server.Name, err)
		}

		for _, serverTool := range toolsResponse.Tools {
			discovered = append(discovered, &mcpTool{
				client: mcpClient,
				tool:   serverTool,
				name:   fmt.Sprintf("%s_%s", server.Name, serverTool.Name),
			})
		}
	}

	return discovered, nil
}
