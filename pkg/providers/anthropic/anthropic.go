// Package anthropic implements modeladapter.Completer and modeladapter.Streamer
// for the Anthropic Messages API using the official SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
	"github.com/germanamz/chainkit/pkg/modeladapter"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
)

const (
	// DefaultModel is used when no model name is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultMaxTokens is sent when MaxTokens is unset; the API requires it.
	DefaultMaxTokens = 1024
)

var (
	_ modeladapter.Completer             = (*Adapter)(nil)
	_ modeladapter.Streamer              = (*Adapter)(nil)
	_ modeladapter.UsageReporter         = (*Adapter)(nil)
	_ modeladapter.RateLimitInfoReporter = (*Adapter)(nil)
)

// Adapter sends chat completions to Anthropic.
type Adapter struct {
	Name        string
	Temperature *float64
	MaxTokens   int
	Usage       usage.Tracker

	client        anthropic.Client
	rateLimitInfo atomic.Pointer[modeladapter.RateLimitInfo]
}

// Option configures an Adapter.
type Option func(*config)

type config struct {
	baseURL    string
	client     *http.Client
	maxRetries int
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// WithMaxRetries sets how many times the SDK retries transient failures.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// New creates an Adapter for the given API key and model.
// An empty model selects DefaultModel.
func New(apiKey, model string, opts ...Option) *Adapter {
	cfg := config{maxRetries: 2}
	for _, o := range opts {
		o(&cfg)
	}

	if model == "" {
		model = DefaultModel
	}

	a := &Adapter{Name: model}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
		option.WithMiddleware(a.captureRateLimits),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.client != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(cfg.client))
	}

	a.client = anthropic.NewClient(clientOpts...)
	return a
}

// UsageTracker returns the adapter's token usage tracker.
func (a *Adapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelMaxTokens returns the configured completion limit.
func (a *Adapter) ModelMaxTokens() int { return a.MaxTokens }

// LastRateLimitInfo returns the rate limit state seen on the last response.
func (a *Adapter) LastRateLimitInfo() *modeladapter.RateLimitInfo { return a.rateLimitInfo.Load() }

func (a *Adapter) captureRateLimits(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if resp != nil {
		if info := modeladapter.ParseAnthropicRateLimitHeaders(resp.Header, time.Now()); info != nil {
			a.rateLimitInfo.Store(info)
		}
	}
	return resp, err
}

// Complete sends a conversation to the Messages API and returns the
// assistant's reply.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat) (message.Message, error) {
	resp, err := a.client.Messages.New(ctx, a.params(c))
	if err != nil {
		return message.Message{}, fmt.Errorf("anthropic: %w", mapError(err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	tc := usage.TokenCount{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	a.Usage.Add(tc)

	msg := message.NewText(string(resp.Model), role.Assistant, text.String())
	msg.SetMeta(message.MetaFinishReason, string(resp.StopReason))
	msg.SetMeta(message.MetaModel, string(resp.Model))
	msg.SetMeta(modeladapter.MetaUsage, tc)

	return msg, nil
}

// Stream yields one chunk per text delta. The final chunk carries the stop
// reason and token usage.
func (a *Adapter) Stream(ctx context.Context, c *chat.Chat) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		stream := a.client.Messages.NewStreaming(ctx, a.params(c))
		defer func() { _ = stream.Close() }()

		var (
			model      string
			stopReason string
			tc         usage.TokenCount
		)

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.MessageStartEvent:
				model = string(ev.Message.Model)
				tc.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				d, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || d.Text == "" {
					continue
				}
				if !yield(message.NewText(model, role.Assistant, d.Text), nil) {
					return
				}
			case anthropic.MessageDeltaEvent:
				stopReason = string(ev.Delta.StopReason)
				tc.OutputTokens = int(ev.Usage.OutputTokens)
			}
		}

		if err := stream.Err(); err != nil {
			yield(message.Message{}, fmt.Errorf("anthropic: %w", mapError(err)))
			return
		}

		a.Usage.Add(tc)

		final := message.New(model, role.Assistant)
		final.SetMeta(message.MetaFinishReason, stopReason)
		final.SetMeta(message.MetaModel, model)
		final.SetMeta(modeladapter.MetaUsage, tc)
		yield(final, nil)
	}
}

func (a *Adapter) params(c *chat.Chat) anthropic.MessageNewParams {
	maxTokens := int64(DefaultMaxTokens)
	if a.MaxTokens > 0 {
		maxTokens = int64(a.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Name),
		MaxTokens: maxTokens,
		Messages:  convertMessages(c),
	}

	if sys := c.SystemPrompt(); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if a.Temperature != nil {
		params.Temperature = anthropic.Float(*a.Temperature)
	}

	return params
}

// convertMessages maps user and assistant messages to SDK params. System
// messages travel in the system parameter instead.
func convertMessages(c *chat.Chat) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam

	c.Each(func(_ int, m message.Message) bool {
		block := anthropic.NewTextBlock(m.TextContent())
		switch m.Role {
		case role.User:
			msgs = append(msgs, anthropic.NewUserMessage(block))
		case role.Assistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		}
		return true
	})

	return msgs
}

// mapError converts an SDK 429 into a modeladapter.RateLimitError so the
// rate limiter can retry it.
func mapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		return err
	}

	rle := &modeladapter.RateLimitError{Body: apiErr.Error()}
	if apiErr.Response != nil {
		rle.RetryAfter = modeladapter.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	return rle
}
