package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
	"github.com/germanamz/chainkit/pkg/modeladapter"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g := New("gsk-test", srv.Client())
	g.BaseURL = srv.URL
	g.Temperature = 0.7
	return g
}

func testChat() *chat.Chat {
	return chat.New(
		message.NewText("", role.System, "You are helpful."),
		message.NewText("", role.User, "What is LangChain?"),
	)
}

func TestNew(t *testing.T) {
	g := New("gsk-test", nil)

	assert.Equal(t, DefaultBaseURL, g.BaseURL)
	assert.Equal(t, DefaultModel, g.Name)
	assert.Equal(t, "gsk-test", g.Auth.Key)
	assert.NotNil(t, g.HeaderParser)
}

func TestComplete_TextResponse(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		assert.False(t, req.Stream)
		assert.Equal(t, []apiMessage{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "What is LangChain?"},
		}, req.Messages)

		w.Header().Set("x-ratelimit-remaining-requests", "14399")
		w.Header().Set("x-ratelimit-remaining-tokens", "5900")
		_ = json.NewEncoder(w).Encode(chatResponse{
			ID:    "chatcmpl-1",
			Model: DefaultModel,
			Choices: []choice{{
				Message:      apiMessage{Role: "assistant", Content: "A framework for LLM apps."},
				FinishReason: "stop",
			}},
			Usage: apiUsage{PromptTokens: 20, CompletionTokens: 7},
		})
	})

	msg, err := g.Complete(context.Background(), testChat())
	require.NoError(t, err)
	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "A framework for LLM apps.", msg.TextContent())

	fr, _ := msg.GetMeta(message.MetaFinishReason)
	assert.Equal(t, "stop", fr)

	tc, ok := modeladapter.TokensOf(msg)
	require.True(t, ok)
	assert.Equal(t, usage.TokenCount{InputTokens: 20, OutputTokens: 7}, tc)

	last, ok := g.Usage.Last()
	require.True(t, ok)
	assert.Equal(t, tc, last)

	info := g.LastRateLimitInfo()
	require.NotNil(t, info)
	assert.Equal(t, 5900, info.RemainingTokens)
}

func TestComplete_MaxTokens(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.InDelta(t, 256, raw["max_tokens"], 1e-9)
		_, _ = fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	})
	g.MaxTokens = 256

	_, err := g.Complete(context.Background(), testChat())
	require.NoError(t, err)
}

func TestComplete_EmptyChoices(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"id":"x","choices":[]}`)
	})

	_, err := g.Complete(context.Background(), testChat())
	assert.EqualError(t, err, "groq: empty response")
}

func TestComplete_HTTPError(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"Invalid API Key"}}`)
	})

	_, err := g.Complete(context.Background(), testChat())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groq:")
	assert.Contains(t, err.Error(), "401")

	var se *modeladapter.StatusError
	assert.True(t, errors.As(err, &se))
}

func TestComplete_RateLimited(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := g.Complete(context.Background(), testChat())

	var rle *modeladapter.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "2s", rle.RetryAfter.String())
}

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", e)
	}
}

func collect(t *testing.T, g *Adapter) ([]message.Message, error) {
	t.Helper()

	var out []message.Message
	for m, err := range g.Stream(context.Background(), testChat()) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func TestStream_Chunks(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		sse(w,
			`{"model":"llama-3.3-70b-versatile","choices":[{"delta":{"role":"assistant","content":""}}]}`,
			`{"model":"llama-3.3-70b-versatile","choices":[{"delta":{"content":"Silicon "}}]}`,
			`{"model":"llama-3.3-70b-versatile","choices":[{"delta":{"content":"dreams"}}]}`,
			`{"model":"llama-3.3-70b-versatile","choices":[{"delta":{},"finish_reason":"stop"}],"x_groq":{"usage":{"prompt_tokens":12,"completion_tokens":4}}}`,
			`[DONE]`,
		)
	})

	chunks, err := collect(t, g)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Silicon ", chunks[0].TextContent())
	assert.Equal(t, "dreams", chunks[1].TextContent())
	assert.Empty(t, chunks[2].TextContent())

	var full message.Message
	for _, c := range chunks {
		full = full.Concat(c)
	}
	assert.Equal(t, "Silicon dreams", full.TextContent())
	assert.Equal(t, role.Assistant, full.Role)

	fr, _ := full.GetMeta(message.MetaFinishReason)
	assert.Equal(t, "stop", fr)

	tc, ok := modeladapter.TokensOf(full)
	require.True(t, ok)
	assert.Equal(t, usage.TokenCount{InputTokens: 12, OutputTokens: 4}, tc)
	assert.Equal(t, 1, g.Usage.Count())
}

func TestStream_TopLevelUsage(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w,
			`{"choices":[{"delta":{"content":"hi"}}]}`,
			`{"choices":[],"usage":{"prompt_tokens":3,"completion_tokens":1}}`,
		)
	})

	chunks, err := collect(t, g)
	require.NoError(t, err)

	tc, ok := modeladapter.TokensOf(chunks[len(chunks)-1])
	require.True(t, ok)
	assert.Equal(t, 4, tc.Total())
}

func TestStream_NoUsage(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w, `{"choices":[{"delta":{"content":"hi"}}]}`)
	})

	chunks, err := collect(t, g)
	require.NoError(t, err)

	_, ok := modeladapter.TokensOf(chunks[len(chunks)-1])
	assert.False(t, ok)
	assert.Equal(t, 0, g.Usage.Count())
}

func TestStream_ErrorEvent(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w,
			`{"choices":[{"delta":{"content":"par"}}]}`,
			`{"error":{"message":"model overloaded","type":"server_error"}}`,
		)
	})

	chunks, err := collect(t, g)
	assert.Len(t, chunks, 1)
	assert.EqualError(t, err, "groq: stream error: model overloaded")
}

func TestStream_BadJSON(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w, `{not json`)
	})

	_, err := collect(t, g)
	assert.ErrorContains(t, err, "groq: decode chunk")
}

func TestStream_RateLimited(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := collect(t, g)

	var rle *modeladapter.RateLimitError
	assert.True(t, errors.As(err, &rle))
}

func TestStream_StopEarly(t *testing.T) {
	g := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		sse(w,
			`{"choices":[{"delta":{"content":"a"}}]}`,
			`{"choices":[{"delta":{"content":"b"}}]}`,
			`{"choices":[{"delta":{"content":"c"}}]}`,
		)
	})

	var got []string
	for m, err := range g.Stream(context.Background(), testChat()) {
		require.NoError(t, err)
		got = append(got, m.TextContent())
		if len(got) == 1 {
			break
		}
	}
	assert.Equal(t, []string{"a"}, got)
}
