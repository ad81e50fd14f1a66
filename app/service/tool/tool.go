package tool

import "context"

// Tool is the uniform contract every capability satisfies, built-in or
// discovered. Side effects happen only inside Execute.
type Tool interface {
	Name() string
	Description() string
	Parameters() Schema
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Schema describes the parameters a tool accepts, in the shape the model's
// function-calling interface consumes.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// Definition is the advertised schema triple for one tool.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Call is a single invocation request, as decided by the model.
type Call struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}
