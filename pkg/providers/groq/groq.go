// Package groq implements modeladapter.Completer and modeladapter.Streamer for
// Groq's OpenAI-compatible chat completions API.
package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
	"github.com/germanamz/chainkit/pkg/modeladapter"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
)

// DefaultBaseURL is the base URL for the Groq API.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is used when no model name is configured.
const DefaultModel = "llama-3.3-70b-versatile"

const completionsPath = "/chat/completions"

var (
	_ modeladapter.Completer = (*Adapter)(nil)
	_ modeladapter.Streamer  = (*Adapter)(nil)
)

// Adapter sends chat completions to Groq.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter with the given API key and HTTP client.
// A nil client falls back to a default client.
func New(apiKey string, client *http.Client) *Adapter {
	a := &Adapter{
		ModelAdapter: modeladapter.New(DefaultBaseURL, modeladapter.Auth{Key: apiKey}, client),
	}
	a.Name = DefaultModel
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders
	return a
}

// Complete sends a conversation to the chat completions endpoint and returns
// the assistant's reply.
func (g *Adapter) Complete(ctx context.Context, c *chat.Chat) (message.Message, error) {
	var resp chatResponse
	if err := g.PostJSON(ctx, completionsPath, g.request(c, false), &resp); err != nil {
		return message.Message{}, fmt.Errorf("groq: %w", err)
	}

	if len(resp.Choices) == 0 {
		return message.Message{}, errors.New("groq: empty response")
	}

	tc := resp.Usage.tokens()
	g.Usage.Add(tc)

	ch := resp.Choices[0]
	msg := message.NewText(resp.Model, role.Assistant, ch.Message.Content)
	msg.SetMeta(message.MetaFinishReason, ch.FinishReason)
	msg.SetMeta(message.MetaModel, resp.Model)
	msg.SetMeta(modeladapter.MetaUsage, tc)

	return msg, nil
}

// Stream sends a conversation with streaming enabled and yields one
// assistant chunk per content delta. The last chunk carries the finish
// reason and, when Groq reports it, the token usage.
func (g *Adapter) Stream(ctx context.Context, c *chat.Chat) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		var (
			model        string
			finishReason string
			tc           usage.TokenCount
			hasUsage     bool
		)

		for data, err := range g.PostStream(ctx, completionsPath, g.request(c, true)) {
			if err != nil {
				yield(message.Message{}, fmt.Errorf("groq: %w", err))
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				yield(message.Message{}, fmt.Errorf("groq: decode chunk: %w", err))
				return
			}
			if chunk.Error != nil {
				yield(message.Message{}, fmt.Errorf("groq: stream error: %s", chunk.Error.Message))
				return
			}

			if chunk.Model != "" {
				model = chunk.Model
			}
			if u := chunk.usage(); u != nil {
				tc, hasUsage = u.tokens(), true
			}

			for _, ch := range chunk.Choices {
				if ch.FinishReason != "" {
					finishReason = ch.FinishReason
				}
				if ch.Delta.Content == "" {
					continue
				}
				if !yield(message.NewText(model, role.Assistant, ch.Delta.Content), nil) {
					return
				}
			}
		}

		if hasUsage {
			g.Usage.Add(tc)
		}

		final := message.New(model, role.Assistant)
		final.SetMeta(message.MetaFinishReason, finishReason)
		final.SetMeta(message.MetaModel, model)
		if hasUsage {
			final.SetMeta(modeladapter.MetaUsage, tc)
		}
		yield(final, nil)
	}
}

func (g *Adapter) request(c *chat.Chat, stream bool) chatRequest {
	return chatRequest{
		Model:       g.Name,
		Messages:    convertMessages(c),
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
		Stream:      stream,
	}
}

// API request/response types.

type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Stream      bool         `json:"stream,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   apiUsage `json:"usage"`
}

type choice struct {
	Message      apiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u apiUsage) tokens() usage.TokenCount {
	return usage.TokenCount{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
}

type streamChunk struct {
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *apiUsage     `json:"usage"`
	XGroq   *struct {
		Usage *apiUsage `json:"usage"`
	} `json:"x_groq"`
	Error *apiError `json:"error"`
}

// usage returns the usage block of the chunk. Groq reports it under x_groq
// on the final chunk; OpenAI-style servers use a top-level field.
func (c streamChunk) usage() *apiUsage {
	if c.XGroq != nil && c.XGroq.Usage != nil {
		return c.XGroq.Usage
	}
	return c.Usage
}

type chunkChoice struct {
	Delta        apiMessage `json:"delta"`
	FinishReason string     `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// convertMessages transforms a Chat into the API message format.
func convertMessages(c *chat.Chat) []apiMessage {
	msgs := make([]apiMessage, 0, c.Len())

	c.Each(func(_ int, m message.Message) bool {
		msgs = append(msgs, apiMessage{
			Role:    m.Role.String(),
			Content: m.TextContent(),
		})
		return true
	})

	return msgs
}
