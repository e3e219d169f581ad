package modeladapter

import (
	"context"
	"testing"
	"time"

	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/chats/role"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve_SettleAndRelease(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := NewRateLimitedCompleter(nil, RateLimitOpts{})
	r.SetNowFunc(func() time.Time { return now })

	c := chat.New(message.NewText("", role.User, "What is the capital of France?"))

	kept, err := r.reserve(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, r.estimator.EstimateChat(c), kept.inputTokens)

	dropped, err := r.reserve(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, r.window, 2)

	r.settle(kept, usage.TokenCount{InputTokens: 12, OutputTokens: 3})
	r.release(dropped)

	require.Len(t, r.window, 1)
	in, out := r.windowTotals()
	assert.Equal(t, 12, in)
	assert.Equal(t, 3, out)

	// Releasing twice leaves the window alone.
	r.release(dropped)
	assert.Len(t, r.window, 1)
}

func TestReserve_PrunesExpiredEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := now.Add(-2 * time.Minute)

	r := NewRateLimitedCompleter(nil, RateLimitOpts{RPM: 2000})
	r.SetNowFunc(func() time.Time { return current })

	const n = 1000
	for range n {
		e, err := r.reserve(context.Background(), nil)
		require.NoError(t, err)
		r.settle(e, usage.TokenCount{InputTokens: 10, OutputTokens: 5})
		current = current.Add(time.Millisecond)
	}

	capBefore := cap(r.window)
	require.Greater(t, capBefore, n-1)

	current = now
	_, err := r.reserve(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, r.window, 1, "only the new reservation should remain")
	assert.Less(t, cap(r.window), capBefore, "backing array should shrink after pruning")
	in, out := r.windowTotals()
	assert.Zero(t, in)
	assert.Zero(t, out)
}
