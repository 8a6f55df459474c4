// Package modeladapter defines the interface and shared plumbing for LLM
// chat-completion adapters.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with HTTP and WebSocket helpers, auth, and custom headers
//   - [Auth] supporting static API keys and refreshing bearer tokens ([golang.org/x/oauth2.TokenSource])
//   - [Limiter], a bound on concurrent in-flight requests
//   - [github.com/magentic/llmclients/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// This package contains no provider-specific code; concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
