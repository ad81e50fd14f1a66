package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zapflow/app/client/llm"
	"zapflow/app/config"
	"zapflow/app/service/flow"
	"zapflow/app/service/session"
	"zapflow/app/service/tool"

	"github.com/samber/do"
)

// Service is the per-message pipeline: load state, decide, act, respond,
// persist. One call handles exactly one inbound message.
type Service struct {
	cfg      *config.Config
	store    session.Store
	registry *tool.Registry

	decisionAgent *DecisionAgent
	replyAgent    *ReplyAgent
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	store := do.MustInvoke[session.Store](di)
	registry := do.MustInvoke[*tool.Registry](di)

	decisionChat := llm.New(cfg.OpenAI.Decision, true)
	replyChat := llm.New(cfg.OpenAI.Reply, false)

	return newService(cfg, store, registry, decisionChat, replyChat), nil
}

func newService(
	cfg *config.Config,
	store session.Store,
	registry *tool.Registry,
	decisionChat ChatCapability,
	replyChat ChatCapability,
) *Service {
	return &Service{
		cfg:           cfg,
		store:         store,
		registry:      registry,
		decisionAgent: NewDecisionAgent(decisionChat, registry),
		replyAgent:    NewReplyAgent(replyChat, cfg.WhatsApp.Persona),
	}
}

// ProcessMessage runs the full decide -> act -> respond pipeline for one
// inbound message and returns the outgoing package. Persistence failures
// abort the turn so the stored state never silently diverges from what the
// user was told.
func (s *Service) ProcessMessage(ctx context.Context, senderID, text string) (*ResponsePackage, error) {
	key := session.Key(senderID, s.cfg.WhatsApp.Instance)

	state, err := s.loadState(ctx, key, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", key, err)
	}

	state.AddMessage(flow.RoleUser, text)

	decision, err := s.decisionAgent.Call(ctx, state, text)
	if err != nil {
		return nil, fmt.Errorf("decisionAgent.Call: %w", err)
	}

	slog.Info("Decision taken",
		"sender", senderID,
		"decision", decision.Decision,
		"tool", decision.ToolName,
		"reason", decision.Reason,
	)

	state.AddDecision(flow.DecisionRecord{
		Decision:    string(decision.Decision),
		ToolName:    decision.ToolName,
		ToolParams:  decision.ToolParams,
		Reason:      decision.Reason,
		UserMessage: text,
	})

	s.decisionAgent.Apply(state, decision)

	pkg := &ResponsePackage{}

	if decision.Decision == DecisionCallTool {
		s.runToolStep(ctx, state, decision, pkg)
	}

	replyText, err := s.replyAgent.Call(ctx, state, decision)
	if err != nil {
		return nil, fmt.Errorf("replyAgent.Call: %w", err)
	}

	pkg.Text = replyText
	state.AddMessage(flow.RoleAssistant, replyText)

	if err := s.store.Set(ctx, key, state.ToRecord(), session.DefaultTTL); err != nil {
		return nil, fmt.Errorf("failed to persist session %q: %w", key, err)
	}

	return pkg, nil
}

func (s *Service) loadState(ctx context.Context, key, senderID string) (*flow.State, error) {
	record, err := s.store.Get(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return flow.NewState(senderID), nil
	}
	if err != nil {
		return nil, err
	}

	return flow.FromRecord(record)
}

// runToolStep executes the chosen tool and folds the outcome back into the
// state. Tool failures never abort the turn, the error-shaped result is
// recorded and the reply agent explains it to the user.
func (s *Service) runToolStep(ctx context.Context, state *flow.State, decision *Decision, pkg *ResponsePackage) {
	params := s.fillParams(state, decision.ToolParams)

	results := s.registry.Execute(ctx, []tool.Call{{
		Name:       decision.ToolName,
		Parameters: params,
	}})

	state.AddToolResults(results...)

	for _, result := range results {
		if result.Error != "" {
			slog.Warn("Tool step failed",
				"sender", state.SenderID,
				"tool", result.Tool,
				"error", result.Error,
			)
			continue
		}

		s.absorbToolResult(state, result.Result, pkg)
	}
}

// fillParams completes blank tool parameters from the flow's resolved
// params, so the model never has to repeat data the user already gave.
func (s *Service) fillParams(state *flow.State, params map[string]any) map[string]any {
	filled := make(map[string]any, len(params))
	for key, value := range params {
		filled[key] = value
	}

	if state.ActiveFlow == nil {
		return filled
	}

	for key, value := range filled {
		if !isBlank(value) {
			continue
		}

		if resolved, ok := state.ActiveFlow.ResolvedParams[key]; ok {
			filled[key] = resolved
		}
	}

	return filled
}

// absorbToolResult merges a successful payload into the flow's resolved
// params and lifts media side channels into the outgoing package.
func (s *Service) absorbToolResult(state *flow.State, payload map[string]any, pkg *ResponsePackage) {
	if state.ActiveFlow != nil {
		for key, value := range payload {
			if isBlank(value) || state.HasResolvedParam(key) {
				continue
			}

			state.ActiveFlow.AddResolvedParam(key, value)
		}
	}

	if path, ok := payload["pdf_path"].(string); ok && path != "" {
		caption, _ := payload["pdf_caption"].(string)
		if caption == "" {
			caption = "Documento"
		}

		pkg.AddDocument(path, caption)
	}

	if path, ok := payload["image_path"].(string); ok && path != "" {
		caption, _ := payload["image_caption"].(string)
		pkg.AddImage(path, caption)
	}

	if path, ok := payload["audio_path"].(string); ok && path != "" {
		pkg.AddAudio(path)
	}
}
