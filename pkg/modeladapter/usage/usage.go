package usage

import "sync"

// TokenCount holds prompt and completion token counts for a single LLM call.
type TokenCount struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the sum of prompt and completion tokens.
func (tc TokenCount) Total() int {
	return tc.PromptTokens + tc.CompletionTokens
}

// Add returns the element-wise sum of tc and other.
func (tc TokenCount) Add(other TokenCount) TokenCount {
	return TokenCount{
		PromptTokens:     tc.PromptTokens + other.PromptTokens,
		CompletionTokens: tc.CompletionTokens + other.CompletionTokens,
	}
}

// Tracker accumulates token usage across multiple LLM calls. A cached client
// is shared by many callers, so only running totals are kept.
// It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	total TokenCount
	last  TokenCount
	calls int
}

// Add records the usage of one call.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = t.total.Add(tc)
	t.last = tc
	t.calls++
}

// Last returns the most recently recorded usage.
// The bool is false when nothing has been recorded.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.calls > 0
}

// Total returns the aggregate token count across all calls.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Count returns the number of recorded calls.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.calls
}

// Reset clears all recorded usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = TokenCount{}
	t.last = TokenCount{}
	t.calls = 0
}
