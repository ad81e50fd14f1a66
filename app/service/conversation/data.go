package conversation

import (
	"context"

	"zapflow/app/client/llm"
	"zapflow/app/service/tool"
)

// ChatCapability is the opaque model contract both agents consume.
type ChatCapability interface {
	Chat(ctx context.Context, messages []llm.Message, tools []tool.Definition) (string, error)
}

type DecisionKind string

const (
	DecisionNewFlow  DecisionKind = "new_flow"
	DecisionContinue DecisionKind = "continue"
	DecisionCallTool DecisionKind = "call_tool"
	DecisionAskUser  DecisionKind = "ask_user"
	DecisionReply    DecisionKind = "reply"
	DecisionComplete DecisionKind = "complete"
)

// Decision is the structured output of the flow-decision model call. Only
// the fields relevant to the chosen kind are populated.
type Decision struct {
	Decision             DecisionKind   `json:"decision" validate:"required,oneof=new_flow continue call_tool ask_user reply complete"`
	Intent               string         `json:"intent,omitempty"`
	ToolName             string         `json:"tool_name,omitempty"`
	ToolParams           map[string]any `json:"tool_params,omitempty"`
	ResolvedParamsUpdate map[string]any `json:"resolved_params_update,omitempty"`
	MissingParams        []string       `json:"missing_params,omitempty"`
	NextStep             string         `json:"next_step,omitempty"`
	Reason               string         `json:"reason,omitempty"`
}

type MediaType string

const (
	MediaDocument MediaType = "document"
	MediaImage    MediaType = "image"
	MediaAudio    MediaType = "audio"
)

type MediaItem struct {
	Type     MediaType
	Path     string
	Caption  string
	MimeType string
}

// ResponsePackage is the complete outgoing reply for one turn: optional
// text plus media attachments extracted from tool results. It is built
// fresh per message and never persisted.
type ResponsePackage struct {
	Text  string
	Media []MediaItem
}

func (p *ResponsePackage) AddDocument(path, caption string) {
	p.Media = append(p.Media, MediaItem{
		Type:     MediaDocument,
		Path:     path,
		Caption:  caption,
		MimeType: "application/pdf",
	})
}

func (p *ResponsePackage) AddImage(path, caption string) {
	p.Media = append(p.Media, MediaItem{
		Type:     MediaImage,
		Path:     path,
		Caption:  caption,
		MimeType: "image/jpeg",
	})
}

func (p *ResponsePackage) AddAudio(path string) {
	p.Media = append(p.Media, MediaItem{
		Type:     MediaAudio,
		Path:     path,
		MimeType: "audio/ogg",
	})
}

func (p *ResponsePackage) HasMedia() bool {
	return len(p.Media) > 0
}
