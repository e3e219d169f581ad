package message

import (
	"testing"

	"github.com/germanamz/chainkit/pkg/chats/content"
	"github.com/germanamz/chainkit/pkg/chats/role"

	"github.com/stretchr/testify/assert"
)

type marker struct{}

func (marker) PartKind() string { return "marker" }

func TestNew(t *testing.T) {
	msg := New("alice", role.User, content.Text{Text: "hello"}, marker{})

	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, role.User, msg.Role)
	assert.Len(t, msg.Parts, 2)
	assert.Nil(t, msg.Metadata)
}

func TestNewText(t *testing.T) {
	msg := NewText("bob", role.Assistant, "hi there")

	assert.Equal(t, "bob", msg.Sender)
	assert.Equal(t, role.Assistant, msg.Role)
	assert.Len(t, msg.Parts, 1)
	assert.Equal(t, "hi there", msg.Parts[0].(content.Text).Text)
}

func TestMessage_TextContent(t *testing.T) {
	msg := New("alice", role.User,
		content.Text{Text: "hello "},
		marker{},
		content.Text{Text: "world"},
	)

	assert.Equal(t, "hello world", msg.TextContent())
}

func TestMessage_TextContent_NoParts(t *testing.T) {
	msg := New("alice", role.User)
	assert.Empty(t, msg.TextContent())
}

func TestMessage_Concat_MergesText(t *testing.T) {
	a := NewText("", role.Assistant, "Hel")
	b := NewText("", role.Assistant, "lo")

	got := a.Concat(b)

	assert.Equal(t, "Hello", got.TextContent())
	assert.Len(t, got.Parts, 1)
	assert.Equal(t, "Hel", a.TextContent(), "receiver must not be modified")
}

func TestMessage_Concat_ZeroValue(t *testing.T) {
	var acc Message

	acc = acc.Concat(NewText("model", role.Assistant, "one "))
	acc = acc.Concat(NewText("", "", "two"))

	assert.Equal(t, role.Assistant, acc.Role)
	assert.Equal(t, "model", acc.Sender)
	assert.Equal(t, "one two", acc.TextContent())
}

func TestMessage_Concat_KeepsNonTextParts(t *testing.T) {
	a := New("", role.Assistant, content.Text{Text: "a"}, marker{})
	b := NewText("", role.Assistant, "b")

	got := a.Concat(b)

	assert.Len(t, got.Parts, 3)
	assert.Equal(t, "ab", got.TextContent())
}

func TestMessage_Concat_Metadata(t *testing.T) {
	a := NewText("", role.Assistant, "x")
	a.SetMeta(MetaModel, "m1")
	b := NewText("", role.Assistant, "y")
	b.SetMeta(MetaFinishReason, "stop")

	got := a.Concat(b)

	v, ok := got.GetMeta(MetaModel)
	assert.True(t, ok)
	assert.Equal(t, "m1", v)

	v, ok = got.GetMeta(MetaFinishReason)
	assert.True(t, ok)
	assert.Equal(t, "stop", v)

	_, ok = a.GetMeta(MetaFinishReason)
	assert.False(t, ok)
}

func TestMessage_Metadata(t *testing.T) {
	var msg Message

	_, ok := msg.GetMeta("key")
	assert.False(t, ok)

	msg.SetMeta("key", 42)
	v, ok := msg.GetMeta("key")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}
