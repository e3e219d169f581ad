// Package modeladapter defines the interfaces and shared plumbing for chat
// model provider adapters.
//
// It contains:
//   - [Completer] and [Streamer] interfaces implemented by providers
//   - the embeddable [ModelAdapter] base struct with HTTP and server-sent
//     event helpers, auth, and custom headers
//   - [RateLimitedCompleter], a throttling and 429-retry decorator
//   - rate limit header parsers for Anthropic and OpenAI-compatible APIs
//   - [github.com/germanamz/chainkit/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// Model configuration (name, temperature, max tokens) is inlined directly on
// the ModelAdapter struct. This package contains no provider-specific code;
// concrete adapters live in pkg/providers.
package modeladapter
