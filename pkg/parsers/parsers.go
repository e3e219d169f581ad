// Package parsers turns model replies into plain Go values.
package parsers

import (
	"context"
	"iter"

	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/runnable"
)

var (
	_ runnable.Runnable[message.Message, string]    = String{}
	_ runnable.Transformer[message.Message, string] = String{}
)

// String extracts the text content of a message.
type String struct{}

// Invoke returns the text of msg.
func (String) Invoke(_ context.Context, msg message.Message) (string, error) {
	return msg.TextContent(), nil
}

// Stream yields the text of msg once.
func (String) Stream(_ context.Context, msg message.Message) iter.Seq2[string, error] {
	return runnable.Once(func() (string, error) { return msg.TextContent(), nil })
}

// Transform maps each streamed chunk to its text. Chunks without text, such
// as a trailing usage chunk, are skipped.
func (String) Transform(_ context.Context, in iter.Seq2[message.Message, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range in {
			if err != nil {
				yield("", err)
				return
			}

			text := chunk.TextContent()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}
