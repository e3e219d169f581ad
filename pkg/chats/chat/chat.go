// Package chat provides an ordered conversation container.
package chat

import (
	"strings"

	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
)

// Chat is an ordered list of messages sent to a chat model. The zero value
// is ready to use. Chat is not safe for concurrent use; callers must
// synchronize externally.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with the given messages.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds one or more messages to the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return len(c.messages)
}

// At returns the message at the given index.
// It panics if the index is out of range.
func (c *Chat) At(index int) message.Message {
	return c.messages[index]
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Messages returns a copy of all messages in the conversation.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// Each iterates over messages, calling fn for each one. If fn returns false,
// iteration stops early.
func (c *Chat) Each(fn func(int, message.Message) bool) {
	for i, m := range c.messages {
		if !fn(i, m) {
			return
		}
	}
}

// SystemPrompt returns the text content of all system messages joined by a
// blank line, or an empty string if there are none.
func (c *Chat) SystemPrompt() string {
	var parts []string
	for _, m := range c.messages {
		if m.Role == role.System {
			parts = append(parts, m.TextContent())
		}
	}
	return strings.Join(parts, "\n\n")
}

// String renders the conversation one message per line, each prefixed with
// its role label ("System: ...", "Human: ...", "AI: ...").
func (c *Chat) String() string {
	var b strings.Builder
	for i, m := range c.messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role.Label())
		b.WriteString(": ")
		b.WriteString(m.TextContent())
	}
	return b.String()
}
