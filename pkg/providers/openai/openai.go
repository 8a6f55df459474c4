// Package openai provides a Completer implementation for the OpenAI Chat
// Completions API. Other OpenAI-compatible providers reuse it by embedding
// Adapter and adjusting the base URL, path, query and auth.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/magentic/llmclients/pkg/chats/message"
	"github.com/magentic/llmclients/pkg/chats/role"
	"github.com/magentic/llmclients/pkg/modeladapter"
	"github.com/magentic/llmclients/pkg/modeladapter/usage"
)

// DefaultCompletionsPath is the chat-completions path of the public OpenAI API.
const DefaultCompletionsPath = "/v1/chat/completions"

// ModelPlaceholder in CompletionsPath is replaced by the path-escaped model
// name of each request.
const ModelPlaceholder = "{model}"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the OpenAI Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter

	// CompletionsPath is appended to BaseURL for every completion request.
	// It may contain ModelPlaceholder.
	CompletionsPath string
}

// New creates an Adapter configured for the OpenAI API.
// The baseURL should be "https://api.openai.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Adapter {
	a := &Adapter{CompletionsPath: DefaultCompletionsPath}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model

	return a
}

// Complete sends a conversation to the Chat Completions API and returns the
// assistant's reply.
func (a *Adapter) Complete(ctx context.Context, req modeladapter.Request) (modeladapter.Response, error) {
	if err := req.Validate(); err != nil {
		return modeladapter.Response{}, fmt.Errorf("openai: %w", err)
	}

	model := req.Model
	if model == "" {
		model = a.Name
	}
	if model == "" {
		return modeladapter.Response{}, errors.New("openai: model is required")
	}

	var resp apiResponse
	if err := a.PostJSON(ctx, a.completionsPath(model), a.buildRequest(model, req), &resp); err != nil {
		return modeladapter.Response{}, fmt.Errorf("openai: %w", err)
	}

	tokens := usage.TokenCount{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	a.Usage.Add(tokens)

	if len(resp.Choices) == 0 {
		return modeladapter.Response{}, fmt.Errorf("openai: empty choices in response")
	}

	choice := resp.Choices[0]

	var text string
	if choice.Message.Content != nil {
		text = *choice.Message.Content
	}
	if text == "" && choice.Message.Refusal != "" {
		return modeladapter.Response{}, fmt.Errorf("openai: model refused: %s", choice.Message.Refusal)
	}

	return modeladapter.Response{
		Message:      message.New(role.Assistant, text),
		FinishReason: choice.FinishReason,
		Usage:        tokens,
	}, nil
}

// --- request types ---

type apiRequest struct {
	Model          string             `json:"model,omitempty"`
	Messages       []apiMessage       `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    *float64           `json:"temperature,omitempty"`
	ResponseFormat *apiResponseFormat `json:"response_format,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema *apiJSONSchema `json:"json_schema,omitempty"`
}

type apiJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict,omitempty"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
	Refusal string  `json:"refusal,omitempty"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) completionsPath(model string) string {
	path := a.CompletionsPath
	if path == "" {
		path = DefaultCompletionsPath
	}
	return strings.ReplaceAll(path, ModelPlaceholder, url.PathEscape(model))
}

func (a *Adapter) buildRequest(model string, req modeladapter.Request) apiRequest {
	out := apiRequest{
		Model:       model,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
		Messages:    make([]apiMessage, len(req.Messages)),
	}

	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}

	for i, m := range req.Messages {
		out.Messages[i] = apiMessage{Role: m.Role.String(), Content: m.Content}
	}

	if rf := req.ResponseFormat; rf != nil {
		name := rf.Name
		if name == "" {
			name = "response"
		}
		out.ResponseFormat = &apiResponseFormat{
			Type: "json_schema",
			JSONSchema: &apiJSONSchema{
				Name:   name,
				Schema: rf.Schema,
				Strict: rf.Strict,
			},
		}
	}

	return out
}
