package modeladapter

import (
	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
)

// perMessageOverhead is the estimated token overhead for each message (role,
// structure delimiters, etc.).
const perMessageOverhead = 4

// TokenEstimator estimates token counts for chat messages when a provider does
// not report usage. It uses a character-to-token heuristic (approximately 1
// token per 4 characters of English text). The zero value is ready to use.
type TokenEstimator struct{}

// charsToTokens converts a character count to an estimated token count using the
// 1-token-per-4-characters heuristic.
func charsToTokens(chars int) int {
	return (chars + 3) / 4 // round up
}

// EstimateChat estimates the total input tokens for a conversation.
func (e *TokenEstimator) EstimateChat(c *chat.Chat) int {
	if c == nil {
		return 0
	}

	tokens := 0
	c.Each(func(_ int, m message.Message) bool {
		tokens += perMessageOverhead + charsToTokens(len(m.TextContent()))
		return true
	})

	return tokens
}

// EstimateText estimates the tokens in a piece of generated text.
func (e *TokenEstimator) EstimateText(s string) int {
	return charsToTokens(len(s))
}
