// Package message defines a single chat message exchanged with a model.
package message

import (
	"fmt"

	"github.com/magentic/llmclients/pkg/chats/role"
)

// Message is one turn of a conversation.
type Message struct {
	Role    role.Role
	Content string
}

// New creates a Message with the given role and text content.
func New(r role.Role, content string) Message {
	return Message{Role: r, Content: content}
}

// System is shorthand for New(role.System, content).
func System(content string) Message { return New(role.System, content) }

// Developer is shorthand for New(role.Developer, content). Newer models take
// developer messages in place of system messages.
func Developer(content string) Message { return New(role.Developer, content) }

// User is shorthand for New(role.User, content).
func User(content string) Message { return New(role.User, content) }

// Assistant is shorthand for New(role.Assistant, content).
func Assistant(content string) Message { return New(role.Assistant, content) }

// Validate reports an error when the role is unknown.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("message: unknown role %q", m.Role)
	}
	return nil
}
