package message_test

import (
	"testing"

	"github.com/magentic/llmclients/pkg/chats/message"
	"github.com/magentic/llmclients/pkg/chats/role"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	msg := message.New(role.User, "hello")

	assert.Equal(t, role.User, msg.Role)
	assert.Equal(t, "hello", msg.Content)
}

func TestShorthands(t *testing.T) {
	assert.Equal(t, role.System, message.System("s").Role)
	assert.Equal(t, role.Developer, message.Developer("d").Role)
	assert.Equal(t, role.User, message.User("u").Role)
	assert.Equal(t, role.Assistant, message.Assistant("a").Role)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, message.User("hi").Validate())
	assert.NoError(t, message.Developer("be terse").Validate())
	assert.EqualError(t, message.New(role.Role("tool"), "x").Validate(), `message: unknown role "tool"`)
}
