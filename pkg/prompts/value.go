package prompts

import (
	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
)

// Value is a formatted prompt ready to be sent to a chat model.
type Value interface {
	// Messages returns the prompt as chat messages.
	Messages() []message.Message
	// Chat returns the prompt as a new conversation.
	Chat() *chat.Chat
	// String renders the prompt as plain text.
	String() string
}

// Text is a plain string prompt. It is sent as a single user message.
type Text string

func (t Text) Messages() []message.Message {
	return []message.Message{message.NewText("", role.User, string(t))}
}

func (t Text) Chat() *chat.Chat { return chat.New(t.Messages()...) }

func (t Text) String() string { return string(t) }

// ChatValue is the output of a ChatTemplate.
type ChatValue struct {
	messages []message.Message
}

// NewChatValue wraps msgs as a prompt Value.
func NewChatValue(msgs ...message.Message) ChatValue {
	return ChatValue{messages: msgs}
}

func (v ChatValue) Messages() []message.Message {
	cp := make([]message.Message, len(v.messages))
	copy(cp, v.messages)
	return cp
}

func (v ChatValue) Chat() *chat.Chat { return chat.New(v.Messages()...) }

func (v ChatValue) String() string { return v.Chat().String() }
