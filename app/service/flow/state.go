package flow

import (
	"time"

	"github.com/google/uuid"
)

// noActiveFlowContext is what the decision prompt sees when there is no flow.
const noActiveFlowContext = "Nenhum fluxo ativo no momento."

// State is the durable per-sender conversation aggregate. It is loaded from
// the session store at the start of a request, mutated by the orchestration
// pipeline and saved back at the end. It is not safe for concurrent use;
// each request owns its own copy.
type State struct {
	SenderID    string
	Messages    []Message
	ActiveFlow  *FlowIntent
	FlowHistory []FlowIntent
	ToolResults []ToolResult
	Decisions   []DecisionRecord
}

func NewState(senderID string) *State {
	return &State{
		SenderID: senderID,
	}
}

// AddMessage appends to the message history. This is the only way the
// history grows.
func (s *State) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// RecentMessages returns the last limit messages in append order.
func (s *State) RecentMessages(limit int) []Message {
	if limit <= 0 || len(s.Messages) <= limit {
		return s.Messages
	}

	return s.Messages[len(s.Messages)-limit:]
}

// StartFlow archives any active flow as abandoned and installs a fresh one.
func (s *State) StartFlow(primaryIntent string, pendingParams []string) *FlowIntent {
	if s.ActiveFlow != nil {
		s.archiveActiveFlow(StatusAbandoned)
	}

	now := time.Now().UTC()
	s.ActiveFlow = &FlowIntent{
		ID:             uuid.NewString()[:8],
		PrimaryIntent:  primaryIntent,
		Status:         StatusActive,
		CurrentStep:    "initiated",
		ResolvedParams: map[string]any{},
		PendingParams:  pendingParams,
		CreatedAt:      now,
		LastUpdated:    now,
		TTLSeconds:     DefaultTTLSeconds,
	}

	return s.ActiveFlow
}

// FlowUpdate carries the optional field updates for ContinueFlow.
type FlowUpdate struct {
	SubIntent   string
	CurrentStep string
}

// ContinueFlow applies updates to the active flow and refreshes its
// timestamp. If the flow expired by inactivity it is archived as abandoned
// and nil is returned; the caller must start a fresh flow before adding
// parameters again.
func (s *State) ContinueFlow(update FlowUpdate) *FlowIntent {
	if s.ActiveFlow == nil {
		return nil
	}

	if s.ActiveFlow.IsExpired() {
		s.archiveActiveFlow(StatusAbandoned)
		return nil
	}

	if update.SubIntent != "" {
		s.ActiveFlow.SubIntent = update.SubIntent
	}
	if update.CurrentStep != "" {
		s.ActiveFlow.CurrentStep = update.CurrentStep
	}
	s.ActiveFlow.LastUpdated = time.Now().UTC()

	return s.ActiveFlow
}

// CompleteFlow archives the active flow as completed.
func (s *State) CompleteFlow() {
	if s.ActiveFlow == nil {
		return
	}

	s.archiveActiveFlow(StatusCompleted)
}

func (s *State) archiveActiveFlow(status string) {
	s.ActiveFlow.Status = status
	s.FlowHistory = append(s.FlowHistory, *s.ActiveFlow)
	s.ActiveFlow = nil
}

// FlowContext renders the active flow for the model prompts.
func (s *State) FlowContext() string {
	if s.ActiveFlow == nil {
		return noActiveFlowContext
	}

	return s.ActiveFlow.ContextString()
}

func (s *State) HasResolvedParam(key string) bool {
	if s.ActiveFlow == nil {
		return false
	}

	_, ok := s.ActiveFlow.ResolvedParams[key]
	return ok
}

func (s *State) ResolvedParam(key string) (any, bool) {
	if s.ActiveFlow == nil {
		return nil, false
	}

	value, ok := s.ActiveFlow.ResolvedParams[key]
	return value, ok
}

// AddDecision appends a routing decision to the append-only decision log.
func (s *State) AddDecision(record DecisionRecord) {
	record.Timestamp = time.Now().UTC()
	s.Decisions = append(s.Decisions, record)
}

// RecentDecisions returns the last limit decisions in append order.
func (s *State) RecentDecisions(limit int) []DecisionRecord {
	if limit <= 0 || len(s.Decisions) <= limit {
		return s.Decisions
	}

	return s.Decisions[len(s.Decisions)-limit:]
}

// AddToolResults appends execution outcomes to the tool history.
func (s *State) AddToolResults(results ...ToolResult) {
	s.ToolResults = append(s.ToolResults, results...)
}

// RecentToolResults returns the last limit tool results in append order.
func (s *State) RecentToolResults(limit int) []ToolResult {
	if limit <= 0 || len(s.ToolResults) <= limit {
		return s.ToolResults
	}

	return s.ToolResults[len(s.ToolResults)-limit:]
}
