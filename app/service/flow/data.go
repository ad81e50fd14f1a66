package flow

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

// DefaultTTLSeconds is how long a flow survives without updates before
// it is considered abandoned.
const DefaultTTLSeconds = 1800

type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// FlowIntent is one task-oriented sub-conversation: what the user is trying
// to accomplish, which parameters were already confirmed and which are still
// missing.
type FlowIntent struct {
	ID            string
	PrimaryIntent string
	SubIntent     string

	Status      string
	CurrentStep string

	ResolvedParams map[string]any
	PendingParams  []string

	CreatedAt   time.Time
	LastUpdated time.Time
	TTLSeconds  int
}

// IsExpired reports whether the flow went stale by inactivity.
func (f *FlowIntent) IsExpired() bool {
	return time.Since(f.LastUpdated).Seconds() > float64(f.TTLSeconds)
}

// AddResolvedParam stores a confirmed parameter and drops it from the
// pending list. A resolved parameter is never asked for again.
func (f *FlowIntent) AddResolvedParam(key string, value any) {
	f.ResolvedParams[key] = value

	for i, pending := range f.PendingParams {
		if pending == key {
			f.PendingParams = append(f.PendingParams[:i], f.PendingParams[i+1:]...)
			break
		}
	}

	f.LastUpdated = time.Now().UTC()
}

// ContextString renders the flow for inclusion in a model prompt.
func (f *FlowIntent) ContextString() string {
	subIntent := f.SubIntent
	if subIntent == "" {
		subIntent = "nenhuma"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Flow ID: %s\n", f.ID))
	builder.WriteString(fmt.Sprintf("Intenção: %s\n", f.PrimaryIntent))
	builder.WriteString(fmt.Sprintf("Sub-intenção: %s\n", subIntent))
	builder.WriteString(fmt.Sprintf("Status: %s\n", f.Status))
	builder.WriteString(fmt.Sprintf("Etapa Atual: %s\n", f.CurrentStep))
	builder.WriteString(fmt.Sprintf("Dados Resolvidos: %v\n", f.ResolvedParams))
	builder.WriteString(fmt.Sprintf("Dados Pendentes: %v\n", f.PendingParams))

	return builder.String()
}

// DecisionRecord is an append-only log entry of one routing decision. It is
// never mutated after creation and is only read back as prompt context to
// keep the model consistent with its prior choices.
type DecisionRecord struct {
	Decision    string
	ToolName    string
	ToolParams  map[string]any
	Reason      string
	UserMessage string
	Timestamp   time.Time
}

// ToolResult is the outcome of a single tool invocation. Exactly one of
// Result or Error is set.
type ToolResult struct {
	Tool   string
	Result map[string]any
	Error  string
}
