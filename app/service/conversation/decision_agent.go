package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"zapflow/app/client/llm"
	"zapflow/app/service/flow"
	"zapflow/app/service/tool"

	_ "embed"

	"github.com/go-playground/validator/v10"
)

//go:embed decision_prompt_template.txt
var decisionPromptTemplate string

const (
	recentMessagesLimit    = 20
	recentDecisionsLimit   = 5
	recentToolResultsLimit = 5
)

// DecisionAgent runs the first phase of the pipeline: it reads the flow
// state and the latest message and emits a structured Decision. It never
// produces user-facing text.
type DecisionAgent struct {
	chat     ChatCapability
	registry *tool.Registry
	validate *validator.Validate
}

func NewDecisionAgent(chat ChatCapability, registry *tool.Registry) *DecisionAgent {
	return &DecisionAgent{
		chat:     chat,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *DecisionAgent) Call(ctx context.Context, state *flow.State, text string) (*Decision, error) {
	templateValues := map[string]any{
		"available_tools": formatToolCatalog(a.registry.Available()),
	}

	prompt := decisionPromptTemplate
	for key, value := range templateValues {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	snapshot, err := json.Marshal(map[string]any{
		"fluxo_ativo":         state.FlowContext(),
		"mensagem_atual":      text,
		"decisoes_recentes":   state.RecentDecisions(recentDecisionsLimit),
		"resultados_recentes": state.RecentToolResults(recentToolResultsLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "system", Content: "ESTADO_ATUAL:\n" + string(snapshot)},
	}
	for _, msg := range state.RecentMessages(recentMessagesLimit) {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	raw, err := a.chat.Chat(ctx, messages, a.registry.Available())
	if err != nil {
		return nil, fmt.Errorf("failed to call decision model: %w", err)
	}

	decision, err := a.parse(raw)
	if err != nil {
		slog.Warn("Decision output rejected, falling back to direct reply",
			slog.String("error", err.Error()))

		return &Decision{
			Decision: DecisionReply,
			Reason:   "saida do modelo de decisao invalida",
		}, nil
	}

	return decision, nil
}

func (a *DecisionAgent) parse(raw string) (*Decision, error) {
	result := strings.Trim(raw, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var decision Decision
	if err := json.Unmarshal([]byte(result), &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}

	if err := a.validate.Struct(decision); err != nil {
		return nil, fmt.Errorf("failed to validate decision: %w", err)
	}

	if decision.Decision == DecisionCallTool && decision.ToolName == "" {
		return nil, fmt.Errorf("call_tool decision without tool_name")
	}

	return &decision, nil
}

// Apply mutates the flow state according to the decision kind. ask_user and
// reply leave the flow untouched.
func (a *DecisionAgent) Apply(state *flow.State, decision *Decision) {
	switch decision.Decision {
	case DecisionNewFlow:
		intent := decision.Intent
		if intent == "" {
			intent = "user_request"
		}
		state.StartFlow(intent, decision.MissingParams)

	case DecisionContinue:
		ensureActiveFlow(state, "user_request", decision.MissingParams)
		state.ContinueFlow(flow.FlowUpdate{CurrentStep: decision.NextStep})
		mergeResolvedParams(state, decision.ResolvedParamsUpdate)

	case DecisionCallTool:
		ensureActiveFlow(state, "tool_execution", nil)
		state.ContinueFlow(flow.FlowUpdate{CurrentStep: decision.NextStep})
		mergeResolvedParams(state, decision.ToolParams)

	case DecisionComplete:
		state.CompleteFlow()

	case DecisionAskUser, DecisionReply:
	}
}

// ensureActiveFlow guarantees an active flow exists before a continuation,
// starting a fresh one when the previous flow expired or never existed.
func ensureActiveFlow(state *flow.State, intent string, pendingParams []string) {
	if state.ActiveFlow != nil && !state.ActiveFlow.IsExpired() {
		return
	}

	state.StartFlow(intent, pendingParams)
}

func mergeResolvedParams(state *flow.State, params map[string]any) {
	if state.ActiveFlow == nil {
		return
	}

	for key, value := range params {
		if isBlank(value) {
			continue
		}

		state.ActiveFlow.AddResolvedParam(key, value)
	}
}
