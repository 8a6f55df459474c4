package modeladapter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magentic/llmclients/pkg/chats/message"
	"github.com/magentic/llmclients/pkg/modeladapter/usage"
)

// ResponseFormat asks the model to reply with JSON matching Schema.
type ResponseFormat struct {
	Name   string          // Schema name reported to the API.
	Schema json.RawMessage // JSON Schema document.
	Strict bool            // Request strict schema adherence.
}

// Request is a single chat-completion call.
// Empty Model, nil Temperature and zero MaxTokens fall back to the adapter
// defaults.
type Request struct {
	Model          string
	Messages       []message.Message
	Temperature    *float64
	MaxTokens      int
	ResponseFormat *ResponseFormat
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("request: at least one message is required")
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("request: message %d: %w", i, err)
		}
	}
	if r.ResponseFormat != nil && len(r.ResponseFormat.Schema) == 0 {
		return errors.New("request: response format requires a schema")
	}
	return nil
}

// Response is the assistant's reply to a Request.
type Response struct {
	Message      message.Message
	FinishReason string
	Usage        usage.TokenCount
}

// Text returns the assistant's reply text.
func (r Response) Text() string { return r.Message.Content }
