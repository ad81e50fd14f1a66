package tool

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

const searchUserAgent = "zapflow/1.0 (+https://github.com/zapflow)"

// SearchTool answers "buscar_informacao" calls with a web search. The actual
// searching is delegated to a langchaingo tool.
type SearchTool struct {
	search tools.Tool
}

var _ Tool = (*SearchTool)(nil)

func NewSearchTool() (*SearchTool, error) {
	ddg, err := duckduckgo.New(5, searchUserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create duckduckgo client: %w", err)
	}

	return &SearchTool{search: ddg}, nil
}

func (t *SearchTool) Name() string {
	return "buscar_informacao"
}

func (t *SearchTool) Description() string {
	return "Busca informações na internet quando o usuário pergunta algo atual"
}

func (t *SearchTool) Parameters() Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"query": {
				Type:        "string",
				Description: "Termo de busca",
			},
		},
		Required: []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	query := stringParam(params, "query")
	if query == "" {
		return nil, fmt.Errorf("parâmetro 'query' é obrigatório")
	}

	results, err := t.search.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return map[string]any{
		"success": true,
		"results": results,
		"source":  "duckduckgo",
	}, nil
}
