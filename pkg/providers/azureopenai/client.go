// Package azureopenai configures the OpenAI chat-completions adapter for
// Azure OpenAI resources and memoizes the resulting clients.
//
// A Config is usually read from the environment with [ConfigFromEnv].
// [Cache.GetOrCreate] returns one shared [*Client] per distinct endpoint,
// API version and credential, so every caller of that resource shares one
// authenticated transport and one concurrency limiter.
package azureopenai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/magentic/llmclients/pkg/modeladapter"
	"github.com/magentic/llmclients/pkg/providers/openai"
)

const (
	deploymentsPath = "/openai/deployments/" + openai.ModelPlaceholder + "/chat/completions"
	realtimePath    = "/openai/realtime"
	apiKeyHeader    = "api-key"
	requestIDHeader = "x-ms-client-request-id"
)

// ErrMissingAPIKey is returned when API-key authentication is selected but no
// key is configured.
var ErrMissingAPIKey = errors.New("azureopenai: API key not found: set " + EnvAPIKey +
	" or enable Entra ID authentication (" + EnvUseEntraID + "=true)")

var _ modeladapter.Completer = (*Client)(nil)

// Client is an Azure OpenAI chat-completions client. Requests use the model
// (deployment) named in the request, falling back to the one it was built with.
type Client struct {
	*openai.Adapter

	cfg Config
}

// Config returns the configuration the client was built from, with the API
// key redacted.
func (c *Client) Config() Config { return c.cfg.Redacted() }

// DialRealtime opens a realtime session against the client's deployment.
func (c *Client) DialRealtime(ctx context.Context) (*websocket.Conn, error) {
	if c.Name == "" {
		return nil, errors.New("azureopenai: realtime requires a model deployment")
	}

	conn, _, err := c.DialWS(ctx, realtimePath+"?deployment="+url.QueryEscape(c.Name))
	if err != nil {
		return nil, fmt.Errorf("azureopenai: realtime: %w", err)
	}

	return conn, nil
}

// Factory builds a Client for a Config.
type Factory func(cfg Config) (*Client, error)

// NewFactory returns the default Factory. It builds an Entra ID client when
// cfg.UseEntraID is set and an API-key client otherwise. A nil creds uses
// DefaultCredential; a nil httpClient uses the adapter default.
func NewFactory(creds CredentialFunc, httpClient *http.Client) Factory {
	if creds == nil {
		creds = DefaultCredential
	}

	return func(cfg Config) (*Client, error) {
		if cfg.UseEntraID {
			return newEntraIDClient(cfg, creds, httpClient)
		}
		return newAPIKeyClient(cfg, httpClient)
	}
}

func newEntraIDClient(cfg Config, creds CredentialFunc, httpClient *http.Client) (*Client, error) {
	cred, err := creds()
	if err != nil {
		return nil, fmt.Errorf("azureopenai: acquire credential: %w", err)
	}

	auth := modeladapter.Auth{TokenSource: BearerTokenSource(cred, CognitiveServicesScope)}

	return newClient(cfg, auth, httpClient), nil
}

func newAPIKeyClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	auth := modeladapter.Auth{Key: cfg.APIKey, Header: apiKeyHeader}

	return newClient(cfg, auth, httpClient), nil
}

func newClient(cfg Config, auth modeladapter.Auth, httpClient *http.Client) *Client {
	a := openai.New(strings.TrimRight(cfg.Endpoint, "/"), "", cfg.Name)
	a.Auth = auth
	a.Client = httpClient
	a.CompletionsPath = deploymentsPath
	a.Query = url.Values{"api-version": {cfg.APIVersion}}
	a.RequestIDHeader = requestIDHeader
	a.Temperature = cfg.Temperature
	a.MaxTokens = cfg.MaxTokens
	a.Limiter = modeladapter.NewLimiter(cfg.ConcurrencyLimit())

	return &Client{Adapter: a, cfg: cfg}
}
