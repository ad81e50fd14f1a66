package conversation

import (
	"context"
	"fmt"
	"strings"

	"zapflow/app/client/llm"
	"zapflow/app/service/flow"

	_ "embed"
)

//go:embed reply_prompt_template.txt
var replyPromptTemplate string

const defaultPersona = "Assistente virtual prestativo e objetivo"

// ReplyAgent runs the second phase of the pipeline: it turns the decision
// and the flow state into the natural-language answer the user actually
// reads. It never calls tools and never mutates state.
type ReplyAgent struct {
	chat    ChatCapability
	persona string
}

func NewReplyAgent(chat ChatCapability, persona string) *ReplyAgent {
	if persona == "" {
		persona = defaultPersona
	}

	return &ReplyAgent{
		chat:    chat,
		persona: persona,
	}
}

func (a *ReplyAgent) Call(ctx context.Context, state *flow.State, decision *Decision) (string, error) {
	templateValues := map[string]any{
		"persona": a.persona,
	}

	prompt := replyPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	stateContext := fmt.Sprintf("CONTEXTO_DO_ATENDIMENTO:\nFluxo: %s\nDecisão tomada: %s\nMotivo: %s\nHistórico de ferramentas:\n%s",
		state.FlowContext(),
		decision.Decision,
		decision.Reason,
		formatToolHistory(state.RecentToolResults(recentToolResultsLimit)),
	)

	if decision.Decision == DecisionComplete {
		stateContext += "\n\nO atendimento foi concluído. Agradeça de forma breve e se coloque à disposição."
	}

	messages := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "system", Content: stateContext},
	}
	for _, msg := range state.RecentMessages(recentMessagesLimit) {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	raw, err := a.chat.Chat(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call reply model: %w", err)
	}

	return strings.TrimSpace(raw), nil
}
