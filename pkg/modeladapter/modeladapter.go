package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/magentic/llmclients/pkg/modeladapter/usage"
	"golang.org/x/oauth2"
)

// Completer sends a chat request to an LLM and returns the assistant's reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// UsageReporter provides token usage information from a completer.
// Completers that embed ModelAdapter implement this interface automatically.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
	ModelMaxTokens() int
}

// Auth holds authentication settings for an LLM provider API.
//
// When TokenSource is set, every request fetches a token from it and sends
// "<type> <access token>" (normally "Bearer ...") in Header; Key and Scheme
// are ignored. Otherwise Key is sent as-is or prefixed with Scheme.
//
// oauth2.TokenSource takes no context. A request whose context ends while a
// token is being fetched fails with the context error; the fetch itself runs
// to completion in the background, so a caching source such as
// oauth2.ReuseTokenSource still keeps its result.
type Auth struct {
	Key         string             // API key value.
	Header      string             // Header name (default: "Authorization").
	Scheme      string             // Scheme prefix (default: "Bearer" when Header is "Authorization").
	TokenSource oauth2.TokenSource // Bearer token provider; refreshing is its concern.
}

// apply sets the auth header on h. Token acquisition errors are returned
// unchanged so callers can inspect the credential failure.
func (a Auth) apply(ctx context.Context, h http.Header) error {
	header := a.Header
	if header == "" {
		header = "Authorization"
	}

	if a.TokenSource != nil {
		tok, err := tokenContext(ctx, a.TokenSource)
		if err != nil {
			return err
		}
		h.Set(header, tok.Type()+" "+tok.AccessToken)
		return nil
	}

	if a.Key == "" {
		return nil
	}

	value := a.Key
	if header == "Authorization" {
		scheme := a.Scheme
		if scheme == "" {
			scheme = "Bearer"
		}
		value = scheme + " " + value
	} else if a.Scheme != "" {
		value = a.Scheme + " " + value
	}
	h.Set(header, value)

	return nil
}

// tokenContext returns ts's token, or ctx's error if ctx ends first.
func tokenContext(ctx context.Context, ts oauth2.TokenSource) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		tok *oauth2.Token
		err error
	}

	ch := make(chan result, 1)
	go func() {
		tok, err := ts.Token()
		ch <- result{tok: tok, err: err}
	}()

	select {
	case r := <-ch:
		return r.tok, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ModelAdapter holds shared state for LLM provider implementations. Embed it in
// concrete provider structs to get HTTP helpers, auth, custom headers,
// concurrency limiting and usage tracking. Concrete types should define their
// own Complete method to shadow the default stub.
type ModelAdapter struct {
	Name            string            // Model identifier (e.g. "gpt-4o" or an Azure deployment name).
	Temperature     *float64          // Default sampling temperature; nil leaves it to the API.
	MaxTokens       int               // Default maximum tokens in the response.
	Auth            Auth              // Authentication settings.
	BaseURL         string            // API base URL (no trailing slash).
	Query           url.Values        // Query parameters added to every request (e.g. api-version).
	Client          *http.Client      // HTTP client; falls back to a shared default.
	Headers         map[string]string // Extra headers applied to every request.
	RequestIDHeader string            // When set, a fresh UUID is sent in this header per request.
	Limiter         *Limiter          // Bounds concurrent requests; nil means unlimited.
	Usage           usage.Tracker     // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client falls back to a default client at call time.
func New(baseURL string, auth Auth, client *http.Client) *ModelAdapter {
	return &ModelAdapter{
		Auth:    auth,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelMaxTokens returns the maximum tokens the model will generate per response.
func (a *ModelAdapter) ModelMaxTokens() int { return a.MaxTokens }

// Complete is a stub that returns an error. Concrete providers that embed
// ModelAdapter should define their own Complete method to shadow this one.
func (a *ModelAdapter) Complete(_ context.Context, _ Request) (Response, error) {
	return Response{}, errors.New("adapter: Complete not implemented")
}

// httpClient returns the configured client or a cached default client with a 10-minute timeout.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{Timeout: 10 * time.Minute}
	})

	return a.defaultClient
}

// URL joins BaseURL and path and merges the adapter's default query.
func (a *ModelAdapter) URL(path string) (*url.URL, error) {
	u, err := url.Parse(a.BaseURL + path)
	if err != nil {
		return nil, err
	}

	if len(a.Query) > 0 {
		q := u.Query()
		for k, vs := range a.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

// headers returns auth, request id and custom headers for one request.
func (a *ModelAdapter) headers(ctx context.Context) (http.Header, error) {
	h := make(http.Header)

	if err := a.Auth.apply(ctx, h); err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	if a.RequestIDHeader != "" {
		h.Set(a.RequestIDHeader, uuid.NewString())
	}

	for k, v := range a.Headers {
		h.Set(k, v)
	}

	return h, nil
}

// NewRequest builds an *http.Request with the base URL, default query, auth,
// and custom headers already applied.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := a.URL(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	h, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}
	for k, vs := range h {
		req.Header[k] = vs
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// PostJSON marshals payload as JSON, sends a POST to the given path while
// holding a Limiter slot, checks for a 2xx status, and unmarshals the
// response body into dest. If dest is nil the response body is discarded
// after the status check.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	release, err := a.Limiter.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire limiter: %w", err)
	}
	defer release()

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// wsURL converts the request URL for path to a WebSocket URL.
// https becomes wss, http becomes ws. URLs that already use ws/wss are
// left unchanged.
func (a *ModelAdapter) wsURL(path string) (string, error) {
	u, err := a.URL(path)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	return u.String(), nil
}

// DialWS establishes a WebSocket connection to the given path with the
// default query, auth and custom headers applied. It returns the WebSocket
// connection and the HTTP response from the handshake.
func (a *ModelAdapter) DialWS(ctx context.Context, path string) (*websocket.Conn, *http.Response, error) {
	u, err := a.wsURL(path)
	if err != nil {
		return nil, nil, fmt.Errorf("build websocket url: %w", err)
	}

	h, err := a.headers(ctx)
	if err != nil {
		return nil, nil, err
	}

	conn, resp, err := websocket.Dial(ctx, u, &websocket.DialOptions{
		HTTPClient: a.httpClient(),
		HTTPHeader: h,
	})
	if err != nil {
		return nil, resp, fmt.Errorf("dial websocket: %w", err)
	}

	return conn, resp, nil
}
