package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"zapflow/app/config"
	"zapflow/app/service/tool"

	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 30 * time.Second

// Message is one entry of a chat prompt.
type Message struct {
	Role    string
	Content string
}

// Client adapts the OpenAI-compatible chat completion API to the single
// capability the orchestration core consumes: chat(messages, tools) -> text.
type Client struct {
	client   *openai.Client
	model    string
	jsonMode bool
}

// New creates a chat client for one model config. With jsonMode the model
// is forced to produce a JSON object (used by the decision agent).
func New(cfg config.ModelConfig, jsonMode bool) *Client {
	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: requestTimeout,
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.Model,
		jsonMode: jsonMode,
	}
}

// Chat sends the prompt and returns the raw text content. When tool schemas
// are supplied and the model answers with a native tool call instead of
// text, the call is re-encoded into the canonical decision JSON so the
// decision parser sees a single shape either way.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []tool.Definition) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}

	for _, message := range messages {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}

	if c.jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	for _, definition := range tools {
		request.Tools = append(request.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        definition.Name,
				Description: definition.Description,
				Parameters:  definition.Parameters,
			},
		})
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	message := response.Choices[0].Message

	if len(message.ToolCalls) > 0 {
		return encodeNativeToolCall(message.ToolCalls[0])
	}

	return message.Content, nil
}

func encodeNativeToolCall(call openai.ToolCall) (string, error) {
	params := map[string]any{}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
		params = map[string]any{}
	}

	decision, err := json.Marshal(map[string]any{
		"decision":    "call_tool",
		"tool_name":   call.Function.Name,
		"tool_params": params,
		"reason":      "native tool call",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode native tool call: %w", err)
	}

	return string(decision), nil
}
