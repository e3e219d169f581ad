package modeladapter

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitInfo holds rate limit state parsed from provider response headers.
type RateLimitInfo struct {
	RemainingRequests int
	RemainingTokens   int
	RequestsReset     time.Time
	TokensReset       time.Time
}

// RateLimitInfoReporter provides the most recently observed rate limit info
// from a provider's response headers.
type RateLimitInfoReporter interface {
	LastRateLimitInfo() *RateLimitInfo
}

// RateLimitHeaderParser extracts rate limit info from HTTP response headers.
// It receives the current time so callers can control the clock in tests.
type RateLimitHeaderParser func(h http.Header, now time.Time) *RateLimitInfo

// rateLimitHeaders names the four headers a provider uses to report limits.
type rateLimitHeaders struct {
	requestsRemaining string
	tokensRemaining   string
	requestsReset     string
	tokensReset       string
}

var (
	anthropicHeaders = rateLimitHeaders{
		requestsRemaining: "anthropic-ratelimit-requests-remaining",
		tokensRemaining:   "anthropic-ratelimit-tokens-remaining",
		requestsReset:     "anthropic-ratelimit-requests-reset",
		tokensReset:       "anthropic-ratelimit-tokens-reset",
	}
	openAIHeaders = rateLimitHeaders{
		requestsRemaining: "x-ratelimit-remaining-requests",
		tokensRemaining:   "x-ratelimit-remaining-tokens",
		requestsReset:     "x-ratelimit-reset-requests",
		tokensReset:       "x-ratelimit-reset-tokens",
	}
)

// ParseAnthropicRateLimitHeaders parses Anthropic-specific rate limit headers.
func ParseAnthropicRateLimitHeaders(h http.Header, now time.Time) *RateLimitInfo {
	return anthropicHeaders.parse(h, now)
}

// ParseOpenAIRateLimitHeaders parses OpenAI-compatible rate limit headers.
// Groq follows the same convention, with resets given as durations such as
// "7.66s" or "2m59.56s".
func ParseOpenAIRateLimitHeaders(h http.Header, now time.Time) *RateLimitInfo {
	return openAIHeaders.parse(h, now)
}

// parse returns nil when neither remaining-count header is present.
func (n rateLimitHeaders) parse(h http.Header, now time.Time) *RateLimitInfo {
	reqRemaining := h.Get(n.requestsRemaining)
	tokRemaining := h.Get(n.tokensRemaining)

	if reqRemaining == "" && tokRemaining == "" {
		return nil
	}

	info := &RateLimitInfo{
		RequestsReset: parseResetTime(h.Get(n.requestsReset), now),
		TokensReset:   parseResetTime(h.Get(n.tokensReset), now),
	}
	if v, err := strconv.Atoi(reqRemaining); err == nil {
		info.RemainingRequests = v
	}
	if v, err := strconv.Atoi(tokRemaining); err == nil {
		info.RemainingTokens = v
	}

	return info
}

// parseResetTime tries RFC3339 first, then a Go duration string (e.g. "6s", "1m30s")
// relative to now.
func parseResetTime(val string, now time.Time) time.Time {
	if val == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if d, err := time.ParseDuration(val); err == nil {
		return now.Add(d)
	}
	return time.Time{}
}
