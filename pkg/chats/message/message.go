// Package message defines the Message type exchanged with chat models.
package message

import (
	"maps"
	"strings"

	"github.com/germanamz/chainkit/pkg/chats/content"
	"github.com/germanamz/chainkit/pkg/chats/role"
)

// Metadata keys set by provider adapters.
const (
	MetaFinishReason = "finish_reason"
	MetaModel        = "model"
)

// Message represents a single message in a conversation, or a chunk of one
// while a reply is being streamed. It is a value type that copies cheaply.
type Message struct {
	Sender   string
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message with the given sender, role, and content parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{
		Sender: sender,
		Role:   r,
		Parts:  parts,
	}
}

// NewText creates a message with a single Text content part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts in the message.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Concat appends the parts of next to a copy of m. It is used to fold
// streamed chunks into a complete reply. Adjacent text parts are merged,
// metadata from next overrides m, and an empty role or sender on m is
// taken from next.
func (m Message) Concat(next Message) Message {
	out := Message{
		Sender: m.Sender,
		Role:   m.Role,
		Parts:  make([]content.Part, len(m.Parts), len(m.Parts)+len(next.Parts)),
	}
	copy(out.Parts, m.Parts)

	if out.Sender == "" {
		out.Sender = next.Sender
	}
	if out.Role == "" {
		out.Role = next.Role
	}

	for _, p := range next.Parts {
		t, ok := p.(content.Text)
		if ok && len(out.Parts) > 0 {
			if last, lok := out.Parts[len(out.Parts)-1].(content.Text); lok {
				out.Parts[len(out.Parts)-1] = content.Text{Text: last.Text + t.Text}
				continue
			}
		}
		out.Parts = append(out.Parts, p)
	}

	if len(m.Metadata) > 0 || len(next.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(m.Metadata)+len(next.Metadata))
		maps.Copy(out.Metadata, m.Metadata)
		maps.Copy(out.Metadata, next.Metadata)
	}

	return out
}

// SetMeta sets a metadata key-value pair on the message.
// It initializes the Metadata map if nil.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta retrieves a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	v, ok := m.Metadata[key]
	return v, ok
}
