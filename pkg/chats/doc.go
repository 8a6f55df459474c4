// Package chats provides the provider-agnostic message model sent to and
// received from chat-completion endpoints.
//
// It is organized into sub-packages:
//   - [github.com/magentic/llmclients/pkg/chats/role]: conversation roles (system, developer, user, assistant)
//   - [github.com/magentic/llmclients/pkg/chats/message]: a role paired with text content
//
// No provider or API code is included.
package chats
