package modeladapter_test

import (
	"encoding/json"
	"testing"

	"github.com/magentic/llmclients/pkg/chats/message"
	"github.com/magentic/llmclients/pkg/chats/role"
	"github.com/magentic/llmclients/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     modeladapter.Request
		wantErr string
	}{
		{
			name:    "no messages",
			req:     modeladapter.Request{},
			wantErr: "request: at least one message is required",
		},
		{
			name:    "bad role",
			req:     modeladapter.Request{Messages: []message.Message{message.New(role.Role("tool"), "x")}},
			wantErr: `request: message 0: message: unknown role "tool"`,
		},
		{
			name: "format without schema",
			req: modeladapter.Request{
				Messages:       []message.Message{message.User("hi")},
				ResponseFormat: &modeladapter.ResponseFormat{Name: "answer"},
			},
			wantErr: "request: response format requires a schema",
		},
		{
			name: "ok",
			req: modeladapter.Request{
				Messages:       []message.Message{message.System("be brief"), message.User("hi")},
				ResponseFormat: &modeladapter.ResponseFormat{Name: "answer", Schema: json.RawMessage(`{"type":"object"}`)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
