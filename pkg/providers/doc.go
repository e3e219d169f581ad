// Package providers groups the concrete chat model clients.
//
// Each sub-package implements [github.com/germanamz/chainkit/pkg/modeladapter.Completer]
// and [github.com/germanamz/chainkit/pkg/modeladapter.Streamer]:
//   - [github.com/germanamz/chainkit/pkg/providers/groq]: Groq's OpenAI-compatible chat completions API over net/http
//   - [github.com/germanamz/chainkit/pkg/providers/anthropic]: the Anthropic Messages API through the official SDK
//
// This package contains no code; pick a provider through
// [github.com/germanamz/chainkit/pkg/engine].
package providers
