package flow

import (
	"fmt"
	"time"
)

// timeLayout keeps serialized timestamps lexicographically sortable.
const timeLayout = time.RFC3339Nano

// Record is the flat serialized form of a State, as stored in the session
// store. ToRecord and FromRecord must round-trip losslessly.
type Record struct {
	SenderID    string                 `json:"sender_id"`
	Messages    []messageRecord        `json:"messages,omitempty"`
	ActiveFlow  *flowIntentRecord      `json:"active_flow,omitempty"`
	FlowHistory []flowIntentRecord     `json:"flow_history,omitempty"`
	ToolResults []toolResultRecord     `json:"tool_results,omitempty"`
	Decisions   []decisionRecordRecord `json:"decision_history,omitempty"`
}

type messageRecord struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type flowIntentRecord struct {
	ID             string         `json:"flow_id"`
	PrimaryIntent  string         `json:"primary_intent"`
	SubIntent      string         `json:"sub_intent,omitempty"`
	Status         string         `json:"status"`
	CurrentStep    string         `json:"current_step"`
	ResolvedParams map[string]any `json:"resolved_params"`
	PendingParams  []string       `json:"pending_params,omitempty"`
	CreatedAt      string         `json:"created_at"`
	LastUpdated    string         `json:"last_updated"`
	TTLSeconds     int            `json:"ttl_seconds"`
}

type toolResultRecord struct {
	Tool   string         `json:"tool"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type decisionRecordRecord struct {
	Decision    string         `json:"decision"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolParams  map[string]any `json:"tool_params,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	UserMessage string         `json:"user_message,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// ToRecord serializes the full aggregate for the session store.
func (s *State) ToRecord() *Record {
	record := &Record{
		SenderID: s.SenderID,
	}

	for _, msg := range s.Messages {
		record.Messages = append(record.Messages, messageRecord{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.UTC().Format(timeLayout),
		})
	}

	if s.ActiveFlow != nil {
		active := flowIntentToRecord(*s.ActiveFlow)
		record.ActiveFlow = &active
	}

	for _, intent := range s.FlowHistory {
		record.FlowHistory = append(record.FlowHistory, flowIntentToRecord(intent))
	}

	for _, result := range s.ToolResults {
		record.ToolResults = append(record.ToolResults, toolResultRecord(result))
	}

	for _, decision := range s.Decisions {
		record.Decisions = append(record.Decisions, decisionRecordRecord{
			Decision:    decision.Decision,
			ToolName:    decision.ToolName,
			ToolParams:  decision.ToolParams,
			Reason:      decision.Reason,
			UserMessage: decision.UserMessage,
			Timestamp:   decision.Timestamp.UTC().Format(timeLayout),
		})
	}

	return record
}

// FromRecord restores a State from its serialized form.
func FromRecord(record *Record) (*State, error) {
	state := NewState(record.SenderID)

	for _, msg := range record.Messages {
		timestamp, err := parseTime(msg.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("message timestamp: %w", err)
		}

		state.Messages = append(state.Messages, Message{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: timestamp,
		})
	}

	if record.ActiveFlow != nil {
		active, err := flowIntentFromRecord(*record.ActiveFlow)
		if err != nil {
			return nil, fmt.Errorf("active flow: %w", err)
		}
		state.ActiveFlow = &active
	}

	for _, intent := range record.FlowHistory {
		restored, err := flowIntentFromRecord(intent)
		if err != nil {
			return nil, fmt.Errorf("flow history: %w", err)
		}
		state.FlowHistory = append(state.FlowHistory, restored)
	}

	for _, result := range record.ToolResults {
		state.ToolResults = append(state.ToolResults, ToolResult(result))
	}

	for _, decision := range record.Decisions {
		timestamp, err := parseTime(decision.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("decision timestamp: %w", err)
		}

		state.Decisions = append(state.Decisions, DecisionRecord{
			Decision:    decision.Decision,
			ToolName:    decision.ToolName,
			ToolParams:  decision.ToolParams,
			Reason:      decision.Reason,
			UserMessage: decision.UserMessage,
			Timestamp:   timestamp,
		})
	}

	return state, nil
}

func flowIntentToRecord(intent FlowIntent) flowIntentRecord {
	return flowIntentRecord{
		ID:             intent.ID,
		PrimaryIntent:  intent.PrimaryIntent,
		SubIntent:      intent.SubIntent,
		Status:         intent.Status,
		CurrentStep:    intent.CurrentStep,
		ResolvedParams: intent.ResolvedParams,
		PendingParams:  intent.PendingParams,
		CreatedAt:      intent.CreatedAt.UTC().Format(timeLayout),
		LastUpdated:    intent.LastUpdated.UTC().Format(timeLayout),
		TTLSeconds:     intent.TTLSeconds,
	}
}

func flowIntentFromRecord(record flowIntentRecord) (FlowIntent, error) {
	createdAt, err := parseTime(record.CreatedAt)
	if err != nil {
		return FlowIntent{}, fmt.Errorf("created_at: %w", err)
	}

	lastUpdated, err := parseTime(record.LastUpdated)
	if err != nil {
		return FlowIntent{}, fmt.Errorf("last_updated: %w", err)
	}

	resolved := record.ResolvedParams
	if resolved == nil {
		resolved = map[string]any{}
	}

	return FlowIntent{
		ID:             record.ID,
		PrimaryIntent:  record.PrimaryIntent,
		SubIntent:      record.SubIntent,
		Status:         record.Status,
		CurrentStep:    record.CurrentStep,
		ResolvedParams: resolved,
		PendingParams:  record.PendingParams,
		CreatedAt:      createdAt,
		LastUpdated:    lastUpdated,
		TTLSeconds:     record.TTLSeconds,
	}, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}

	return parsed.UTC(), nil
}
