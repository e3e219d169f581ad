package prompts

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
)

// MessageTemplate pairs a role with unparsed template text.
type MessageTemplate struct {
	Role role.Role
	Text string
}

// System returns a system message template.
func System(text string) MessageTemplate { return MessageTemplate{Role: role.System, Text: text} }

// User returns a user message template.
func User(text string) MessageTemplate { return MessageTemplate{Role: role.User, Text: text} }

// Assistant returns an assistant message template.
func Assistant(text string) MessageTemplate {
	return MessageTemplate{Role: role.Assistant, Text: text}
}

type compiledMessage struct {
	role role.Role
	tmpl *Template
}

// ChatTemplate formats a list of message templates into a chat prompt. It is
// immutable and safe for concurrent use.
type ChatTemplate struct {
	messages []compiledMessage
	partial  Vars
}

// FromMessages builds a ChatTemplate from message templates in order.
func FromMessages(msgs ...MessageTemplate) (*ChatTemplate, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("prompts: chat template needs at least one message")
	}

	ct := &ChatTemplate{messages: make([]compiledMessage, 0, len(msgs))}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("prompts: message %d: unknown role %q", i, m.Role)
		}

		t, err := NewTemplate(m.Text)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}

		ct.messages = append(ct.messages, compiledMessage{role: m.Role, tmpl: t})
	}

	return ct, nil
}

// FromTemplate builds a ChatTemplate holding a single user message.
func FromTemplate(text string) (*ChatTemplate, error) {
	return FromMessages(User(text))
}

// MustFromMessages is like FromMessages but panics on error.
func MustFromMessages(msgs ...MessageTemplate) *ChatTemplate {
	ct, err := FromMessages(msgs...)
	if err != nil {
		panic(err)
	}
	return ct
}

// InputVariables returns the sorted placeholder names across all messages,
// excluding partially bound ones.
func (c *ChatTemplate) InputVariables() []string {
	seen := make(map[string]struct{})
	for _, m := range c.messages {
		for _, name := range m.tmpl.InputVariables() {
			if _, bound := c.partial[name]; !bound {
				seen[name] = struct{}{}
			}
		}
	}

	return slices.Sorted(maps.Keys(seen))
}

// Partial returns a copy of c with the given variables pre-bound.
func (c *ChatTemplate) Partial(vars Vars) *ChatTemplate {
	cp := *c
	cp.partial = mergeVars(c.partial, vars)
	return &cp
}

// FormatMessages substitutes vars into every message template.
func (c *ChatTemplate) FormatMessages(vars Vars) ([]message.Message, error) {
	merged := vars
	if len(c.partial) > 0 {
		merged = mergeVars(c.partial, vars)
	}

	out := make([]message.Message, 0, len(c.messages))
	for _, m := range c.messages {
		text, err := m.tmpl.Format(merged)
		if err != nil {
			return nil, err
		}
		out = append(out, message.NewText("", m.role, text))
	}

	return out, nil
}

// Invoke formats the template into a chat prompt.
func (c *ChatTemplate) Invoke(_ context.Context, vars Vars) (Value, error) {
	msgs, err := c.FormatMessages(vars)
	if err != nil {
		return nil, err
	}
	return NewChatValue(msgs...), nil
}

// Stream yields the formatted prompt once.
func (c *ChatTemplate) Stream(ctx context.Context, vars Vars) iter.Seq2[Value, error] {
	return once(func() (Value, error) { return c.Invoke(ctx, vars) })
}
