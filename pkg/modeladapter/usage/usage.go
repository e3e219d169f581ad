// Package usage tracks token consumption across chat model calls.
package usage

import (
	"fmt"
	"sync"
)

// TokenCount holds input and output token counts for a single model call.
type TokenCount struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the sum of input and output tokens.
func (tc TokenCount) Total() int {
	return tc.InputTokens + tc.OutputTokens
}

// Plus returns the element-wise sum of tc and other.
func (tc TokenCount) Plus(other TokenCount) TokenCount {
	return TokenCount{
		InputTokens:  tc.InputTokens + other.InputTokens,
		OutputTokens: tc.OutputTokens + other.OutputTokens,
	}
}

func (tc TokenCount) String() string {
	return fmt.Sprintf("%d in / %d out", tc.InputTokens, tc.OutputTokens)
}

// Tracker accumulates token usage across model calls.
// It is safe for concurrent use. The zero value is ready to use.
type Tracker struct {
	mu      sync.Mutex
	entries []TokenCount
}

// Add records a token count entry.
func (t *Tracker) Add(tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, tc)
}

// Last returns the most recent token count entry.
// The bool is false when the tracker has no entries.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return TokenCount{}, false
	}

	return t.entries[len(t.entries)-1], true
}

// Total returns the aggregate token count across all entries.
func (t *Tracker) Total() TokenCount {
	return t.Since(0)
}

// Since returns the aggregate of entries recorded after the first n. Pair it
// with Count to measure the usage of one unit of work.
func (t *Tracker) Since(n int) TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total TokenCount
	for _, e := range t.entries[min(max(n, 0), len(t.entries)):] {
		total = total.Plus(e)
	}

	return total
}

// Count returns the number of recorded entries.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

// Reset clears all recorded entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = nil
}
