// Package chatmodel exposes a provider Completer as a runnable chat model
// that accepts prompt values and returns assistant messages.
package chatmodel

import (
	"context"
	"iter"

	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/modeladapter"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
	"github.com/germanamz/chainkit/pkg/prompts"
	"github.com/germanamz/chainkit/pkg/runnable"
)

var _ runnable.Runnable[prompts.Value, message.Message] = (*Model)(nil)

// Model is a chat model bound to a provider.
type Model struct {
	name      string
	completer modeladapter.Completer
}

// New returns a Model named name that sends prompts to c.
func New(name string, c modeladapter.Completer) *Model {
	return &Model{name: name, completer: c}
}

// Name returns the model identifier.
func (m *Model) Name() string { return m.name }

// Completer returns the underlying provider.
func (m *Model) Completer() modeladapter.Completer { return m.completer }

// Invoke sends the prompt and returns the complete reply.
func (m *Model) Invoke(ctx context.Context, in prompts.Value) (message.Message, error) {
	return m.completer.Complete(ctx, in.Chat())
}

// Stream yields the reply as it is generated. Providers that cannot stream
// yield their complete reply as a single chunk.
func (m *Model) Stream(ctx context.Context, in prompts.Value) iter.Seq2[message.Message, error] {
	s, ok := m.completer.(modeladapter.Streamer)
	if !ok {
		return runnable.Once(func() (message.Message, error) { return m.Invoke(ctx, in) })
	}
	return s.Stream(ctx, in.Chat())
}

// Usage returns the tokens consumed so far and whether the provider tracks them.
func (m *Model) Usage() (usage.TokenCount, bool) {
	ur, ok := m.completer.(modeladapter.UsageReporter)
	if !ok {
		return usage.TokenCount{}, false
	}
	return ur.UsageTracker().Total(), true
}
