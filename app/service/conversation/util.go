package conversation

import (
	"encoding/json"
	"fmt"
	"strings"

	"zapflow/app/service/flow"
	"zapflow/app/service/tool"
)

func isBlank(value any) bool {
	if value == nil {
		return true
	}

	if text, ok := value.(string); ok {
		return strings.TrimSpace(text) == ""
	}

	return false
}

func formatToolCatalog(definitions []tool.Definition) string {
	if len(definitions) == 0 {
		return "Nenhuma ferramenta disponível."
	}

	var builder strings.Builder
	for _, definition := range definitions {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", definition.Name, definition.Description))

		if len(definition.Parameters.Required) > 0 {
			builder.WriteString(fmt.Sprintf("  Parâmetros obrigatórios: %s\n",
				strings.Join(definition.Parameters.Required, ", ")))
		}
	}

	return strings.TrimRight(builder.String(), "\n")
}

// formatToolHistory renders past tool outcomes for the reply prompt, newest
// last and flagged so the model grounds its answer on the latest execution.
func formatToolHistory(history []flow.ToolResult) string {
	if len(history) == 0 {
		return "Nenhuma ferramenta executada ainda."
	}

	var builder strings.Builder
	for i, result := range history {
		marker := ""
		if i == len(history)-1 {
			marker = " (mais recente)"
		}

		if result.Error != "" {
			builder.WriteString(fmt.Sprintf("[Execução #%d]%s Ferramenta '%s' falhou: %s\n",
				i+1, marker, result.Tool, result.Error))
			continue
		}

		payload, err := json.Marshal(result.Result)
		if err != nil {
			payload = []byte(fmt.Sprint(result.Result))
		}

		builder.WriteString(fmt.Sprintf("[Execução #%d]%s Ferramenta '%s': %s\n",
			i+1, marker, result.Tool, payload))
	}

	return strings.TrimRight(builder.String(), "\n")
}
