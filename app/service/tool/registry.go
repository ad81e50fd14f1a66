package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"zapflow/app/config"
	"zapflow/app/service/flow"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Registry maps tool names to capabilities and scopes what a given agent is
// allowed to call. A nil allowlist means every registered tool is available.
type Registry struct {
	tools   map[string]Tool
	allowed map[string]bool
}

func NewRegistry(allowedTools []string) *Registry {
	var allowed map[string]bool
	if allowedTools != nil {
		allowed = make(map[string]bool, len(allowedTools))
		for _, name := range allowedTools {
			allowed[name] = true
		}
	}

	return &Registry{
		tools:   make(map[string]Tool),
		allowed: allowed,
	}
}

// New builds the registry from config: built-in tools plus tools discovered
// from configured MCP servers, scoped to the agent's allowlist.
func New(di *do.Injector) (*Registry, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	registry := NewRegistry(cfg.WhatsApp.AllowedTools)

	searchTool, err := NewSearchTool()
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}
	registry.Register(searchTool)
	registry.Register(NewIpvaTool(cfg.Tools.IpvaBaseURL))

	mcpTools, err := discoverMCPTools(ctx, cfg.MCP)
	if err != nil {
		return nil, fmt.Errorf("failed to discover mcp tools: %w", err)
	}
	registry.Register(mcpTools...)

	slog.Info("Tool registry ready",
		"registered", len(registry.tools),
		"available", pie.Map(registry.Available(), func(d Definition) string { return d.Name }),
	)

	return registry, nil
}

func (r *Registry) Register(tools ...Tool) {
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
}

func (r *Registry) permitted(name string) bool {
	return r.allowed == nil || r.allowed[name]
}

// Available returns the schema of every permitted tool, sorted by name so
// the advertised set is deterministic across turns.
func (r *Registry) Available() []Definition {
	names := pie.Filter(pie.Keys(r.tools), r.permitted)
	sort.Strings(names)

	return pie.Map(names, func(name string) Definition {
		t := r.tools[name]
		return Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	})
}

// Execute runs a batch of calls. Each call is resolved independently:
// unknown names and capability failures become error-shaped results instead
// of aborting siblings. The result order matches the call order.
func (r *Registry) Execute(ctx context.Context, calls []Call) []flow.ToolResult {
	results := make([]flow.ToolResult, len(calls))

	var group errgroup.Group
	for i, call := range calls {
		group.Go(func() error {
			results[i] = r.executeOne(ctx, call)
			return nil
		})
	}
	_ = group.Wait()

	return results
}

func (r *Registry) executeOne(ctx context.Context, call Call) (result flow.ToolResult) {
	result.Tool = call.Name

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool panicked", "tool", call.Name, "panic", rec)
			result.Result = nil
			result.Error = fmt.Sprintf("tool panicked: %v", rec)
		}
	}()

	t, ok := r.tools[call.Name]
	if !ok || !r.permitted(call.Name) {
		permittedNames := pie.Filter(pie.Keys(r.tools), r.permitted)
		sort.Strings(permittedNames)

		slog.Error("Unknown or disallowed tool requested",
			"tool", call.Name,
			"permitted", permittedNames,
		)

		result.Error = fmt.Sprintf("tool não disponível para este agente. Tools permitidas: %s",
			strings.Join(permittedNames, ", "))
		return result
	}

	payload, err := t.Execute(ctx, call.Parameters)
	if err != nil {
		slog.Error("Tool execution failed", "tool", call.Name, "error", err)
		result.Error = err.Error()
		return result
	}

	result.Result = payload
	return result
}
