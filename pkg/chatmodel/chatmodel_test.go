package chatmodel_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/germanamz/chainkit/pkg/chatmodel"
	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
	"github.com/germanamz/chainkit/pkg/parsers"
	"github.com/germanamz/chainkit/pkg/prompts"
	"github.com/germanamz/chainkit/pkg/runnable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastText(c *chat.Chat) string {
	m, _ := c.Last()
	return m.TextContent()
}

func lastRole(c *chat.Chat) role.Role {
	m, _ := c.Last()
	return m.Role
}

type echoCompleter struct {
	seen  *chat.Chat
	err   error
	usage usage.Tracker
}

func (e *echoCompleter) Complete(_ context.Context, c *chat.Chat) (message.Message, error) {
	e.seen = c
	if e.err != nil {
		return message.Message{}, e.err
	}
	e.usage.Add(usage.TokenCount{InputTokens: 3, OutputTokens: 2})
	return message.NewText("", role.Assistant, "echo: "+lastText(c)), nil
}

func (e *echoCompleter) UsageTracker() *usage.Tracker { return &e.usage }

func (e *echoCompleter) ModelMaxTokens() int { return 0 }

type streamingCompleter struct {
	echoCompleter
	chunks []string
}

func (s *streamingCompleter) Stream(_ context.Context, c *chat.Chat) iter.Seq2[message.Message, error] {
	s.seen = c
	return func(yield func(message.Message, error) bool) {
		for _, ch := range s.chunks {
			if !yield(message.NewText("", role.Assistant, ch), nil) {
				return
			}
		}
	}
}

func TestModel_Invoke(t *testing.T) {
	ec := &echoCompleter{}
	m := chatmodel.New("llama", ec)

	reply, err := m.Invoke(context.Background(), prompts.Text("What is LangChain?"))
	require.NoError(t, err)
	assert.Equal(t, "echo: What is LangChain?", reply.TextContent())
	assert.Equal(t, role.User, lastRole(ec.seen))
	assert.Equal(t, "llama", m.Name())
	assert.Same(t, ec, m.Completer())
}

func TestModel_InvokeError(t *testing.T) {
	boom := errors.New("boom")
	m := chatmodel.New("llama", &echoCompleter{err: boom})

	_, err := m.Invoke(context.Background(), prompts.Text("hi"))
	assert.ErrorIs(t, err, boom)
}

func TestModel_StreamFallsBackToComplete(t *testing.T) {
	m := chatmodel.New("llama", &echoCompleter{})

	chunks, err := runnable.Collect(m.Stream(context.Background(), prompts.Text("hi")))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "echo: hi", chunks[0].TextContent())
}

func TestModel_StreamUsesStreamer(t *testing.T) {
	sc := &streamingCompleter{chunks: []string{"Silicon ", "dreams"}}
	m := chatmodel.New("llama", sc)

	chunks, err := runnable.Collect(m.Stream(context.Background(), prompts.Text("poem")))
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, "poem", lastText(sc.seen))
}

func TestModel_Usage(t *testing.T) {
	m := chatmodel.New("llama", &echoCompleter{})

	_, err := m.Invoke(context.Background(), prompts.Text("a"))
	require.NoError(t, err)
	_, err = m.Invoke(context.Background(), prompts.Text("b"))
	require.NoError(t, err)

	tc, ok := m.Usage()
	require.True(t, ok)
	assert.Equal(t, usage.TokenCount{InputTokens: 6, OutputTokens: 4}, tc)
}

type bareCompleter struct{}

func (bareCompleter) Complete(context.Context, *chat.Chat) (message.Message, error) {
	return message.NewText("", role.Assistant, "ok"), nil
}

func TestModel_UsageUnsupported(t *testing.T) {
	_, ok := chatmodel.New("x", bareCompleter{}).Usage()
	assert.False(t, ok)
}

func TestChain_TemplateModelParser(t *testing.T) {
	tmpl := prompts.MustFromMessages(
		prompts.System("You are a coding assistant that provides concise code examples."),
		prompts.User("Show me a {language} code example for {task}"),
	)
	ec := &echoCompleter{}

	chain := runnable.Pipe[prompts.Vars, message.Message, string](
		runnable.Pipe[prompts.Vars, prompts.Value, message.Message](tmpl, chatmodel.New("llama", ec)),
		parsers.String{},
	)

	out, err := chain.Invoke(context.Background(), prompts.Vars{"language": "Python", "task": "reading a CSV file with pandas"})
	require.NoError(t, err)
	assert.Equal(t, "echo: Show me a Python code example for reading a CSV file with pandas", out)
	assert.Equal(t, 2, ec.seen.Len())
	assert.Equal(t, role.System, ec.seen.At(0).Role)
}

func TestChain_StreamsEndToEnd(t *testing.T) {
	tmpl := prompts.MustFromMessages(prompts.User("Write a short poem about {subject}"))
	sc := &streamingCompleter{chunks: []string{"Circuits ", "", "hum"}}

	chain := runnable.Pipe[prompts.Vars, message.Message, string](
		runnable.Pipe[prompts.Vars, prompts.Value, message.Message](tmpl, chatmodel.New("llama", sc)),
		parsers.String{},
	)

	chunks, err := runnable.Collect(chain.Stream(context.Background(), prompts.Vars{"subject": "artificial intelligence"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Circuits ", "hum"}, chunks)
	assert.Equal(t, "Write a short poem about artificial intelligence", lastText(sc.seen))
}
