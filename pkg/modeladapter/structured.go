package modeladapter

import (
	"context"
	"fmt"

	"github.com/magentic/llmclients/internal/jsonparse"
)

// CompleteJSON sends req through c and decodes the assistant's reply into T.
// Replies that are fenced or slightly malformed JSON are repaired before
// decoding. The raw Response is returned alongside the value, including when
// decoding fails.
func CompleteJSON[T any](ctx context.Context, c Completer, req Request) (T, Response, error) {
	var zero T

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return zero, resp, err
	}

	v, err := jsonparse.Decode[T](resp.Text())
	if err != nil {
		return zero, resp, fmt.Errorf("structured output: %w", err)
	}

	return v, resp, nil
}
