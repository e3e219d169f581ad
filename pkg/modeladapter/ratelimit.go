package modeladapter

import (
	"context"
	"errors"
	"iter"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/germanamz/chainkit/pkg/chats/chat"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
)

// MetaUsage is the message metadata key under which providers store the
// usage.TokenCount of a reply. When streaming, it is set on the final chunk.
const MetaUsage = "usage"

// TokensOf returns the token count a provider attached to msg.
func TokensOf(msg message.Message) (usage.TokenCount, bool) {
	v, ok := msg.GetMeta(MetaUsage)
	if !ok {
		return usage.TokenCount{}, false
	}
	tc, ok := v.(usage.TokenCount)
	return tc, ok
}

var (
	_ Completer = (*RateLimitedCompleter)(nil)
	_ Streamer  = (*RateLimitedCompleter)(nil)
)

type tokenEntry struct {
	timestamp    time.Time
	inputTokens  int
	outputTokens int
}

// RateLimitedCompleter wraps a Completer with proactive TPM/RPM-based throttling
// and reactive 429 retry with exponential backoff and jitter.
// Input and output tokens are tracked and throttled independently.
// It is safe for concurrent use: a request takes its slot in the window
// before it is sent, so concurrent callers cannot overshoot the limits.
type RateLimitedCompleter struct {
	inner           Completer
	mu              sync.Mutex
	window          []*tokenEntry
	inputTPM        int           // input tokens-per-minute limit (0 = no limit)
	outputTPM       int           // output tokens-per-minute limit (0 = no limit)
	rpm             int           // requests-per-minute limit (0 = no limit)
	maxRetries      int           // max retries on 429
	baseDelay       time.Duration // initial backoff delay
	estimator       TokenEstimator
	fallbackTracker usage.Tracker // stable fallback tracker when inner lacks UsageReporter

	// nowFunc is used for testing; defaults to time.Now.
	nowFunc func() time.Time
	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
	// randFunc returns a random float64 in [0,1); used for jitter. Defaults to rand.Float64.
	randFunc func() float64
}

// RateLimitOpts configures the RateLimitedCompleter.
type RateLimitOpts struct {
	InputTPM   int           // Input tokens per minute (0 = no limit).
	OutputTPM  int           // Output tokens per minute (0 = no limit).
	RPM        int           // Requests per minute (0 = no limit).
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
}

// NewRateLimitedCompleter wraps a Completer with rate limiting.
func NewRateLimitedCompleter(inner Completer, opts RateLimitOpts) *RateLimitedCompleter {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}

	return &RateLimitedCompleter{
		inner:      inner,
		inputTPM:   opts.InputTPM,
		outputTPM:  opts.OutputTPM,
		rpm:        opts.RPM,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		nowFunc:    time.Now,
		sleepFunc:  contextSleep,
		randFunc:   rand.Float64,
	}
}

// SetNowFunc overrides the time source (for testing).
func (r *RateLimitedCompleter) SetNowFunc(fn func() time.Time) { r.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (r *RateLimitedCompleter) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	r.sleepFunc = fn
}

// SetRandFunc overrides the random number generator (for testing).
func (r *RateLimitedCompleter) SetRandFunc(fn func() float64) { r.randFunc = fn }

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pruneWindow removes entries older than 1 minute. Must be called with mu held.
func (r *RateLimitedCompleter) pruneWindow(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(r.window) && !r.window[i].timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		r.window = append(r.window[:0:0], r.window[i:]...)
	}
}

// windowTotals returns the sum of input and output tokens in the current window.
// Must be called with mu held.
func (r *RateLimitedCompleter) windowTotals() (inputTotal, outputTotal int) {
	for _, e := range r.window {
		inputTotal += e.inputTokens
		outputTotal += e.outputTokens
	}
	return inputTotal, outputTotal
}

// reserve blocks until there is capacity in both TPM and RPM windows, then
// adds an entry for the request to the window while still holding mu. The
// entry starts with the estimated input tokens of c; settle replaces them
// with the real counts and release drops the entry when no request was made.
func (r *RateLimitedCompleter) reserve(ctx context.Context, c *chat.Chat) (*tokenEntry, error) {
	for {
		r.mu.Lock()
		now := r.nowFunc()
		r.pruneWindow(now)
		inputTotal, outputTotal := r.windowTotals()

		inputOK := r.inputTPM <= 0 || inputTotal < r.inputTPM
		outputOK := r.outputTPM <= 0 || outputTotal < r.outputTPM
		rpmOK := r.rpm <= 0 || len(r.window) < r.rpm

		if inputOK && outputOK && rpmOK {
			e := &tokenEntry{timestamp: now, inputTokens: r.estimator.EstimateChat(c)}
			r.window = append(r.window, e)
			r.mu.Unlock()
			return e, nil
		}

		// Find when the oldest entry expires to free capacity.
		var waitDur time.Duration
		if len(r.window) > 0 {
			waitDur = max(r.window[0].timestamp.Add(time.Minute).Sub(now), 0)
		}
		r.mu.Unlock()

		const minWait = 10 * time.Millisecond
		if waitDur < minWait {
			waitDur = minWait
		}

		if err := r.sleepFunc(ctx, waitDur); err != nil {
			return nil, err
		}
	}
}

// settle records the token counts of a finished request on its entry.
func (r *RateLimitedCompleter) settle(e *tokenEntry, tc usage.TokenCount) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.inputTokens = tc.InputTokens
	e.outputTokens = tc.OutputTokens
}

// release removes the entry of a request that did not go through.
func (r *RateLimitedCompleter) release(e *tokenEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := slices.Index(r.window, e); i >= 0 {
		r.window = slices.Delete(r.window, i, i+1)
	}
}

// replyTokens returns the reported token count of reply, or an estimate when
// the provider did not attach one.
func (r *RateLimitedCompleter) replyTokens(c *chat.Chat, reply message.Message) usage.TokenCount {
	if tc, ok := TokensOf(reply); ok {
		return tc
	}
	return usage.TokenCount{
		InputTokens:  r.estimator.EstimateChat(c),
		OutputTokens: r.estimator.EstimateText(reply.TextContent()),
	}
}

// jitter applies ±25% random jitter to a duration.
func (r *RateLimitedCompleter) jitter(d time.Duration) time.Duration {
	// Scale factor in [0.75, 1.25).
	factor := 0.75 + r.randFunc()*0.5 //nolint:mnd // jitter range: ±25%
	return time.Duration(float64(d) * factor)
}

// backoff returns the jittered delay before retry number attempt+1:
// baseDelay * 2^attempt, or the server's Retry-After if larger.
func (r *RateLimitedCompleter) backoff(attempt int, rle *RateLimitError) time.Duration {
	return r.jitter(max(
		r.baseDelay*time.Duration(math.Pow(2, float64(attempt))), //nolint:mnd // exponential backoff formula
		rle.RetryAfter,
	))
}

// Complete implements Completer with proactive TPM/RPM throttling and 429 retry.
func (r *RateLimitedCompleter) Complete(ctx context.Context, c *chat.Chat) (message.Message, error) {
	entry, err := r.reserve(ctx, c)
	if err != nil {
		return message.Message{}, err
	}

	var lastErr error
	for attempt := range r.maxRetries + 1 {
		msg, err := r.inner.Complete(ctx, c)
		if err == nil {
			r.settle(entry, r.replyTokens(c, msg))
			if sleepErr := r.adaptFromServerInfo(ctx); sleepErr != nil {
				return message.Message{}, sleepErr
			}
			return msg, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			r.release(entry)
			return message.Message{}, err
		}

		lastErr = err

		if attempt >= r.maxRetries {
			break
		}

		if err := r.sleepFunc(ctx, r.backoff(attempt, rle)); err != nil {
			r.release(entry)
			return message.Message{}, err
		}
	}

	r.release(entry)

	if lastErr == nil {
		lastErr = errors.New("rate limit: exhausted retries without a successful completion")
	}

	return message.Message{}, lastErr
}

// Stream implements Streamer with the same throttling as Complete. A 429 is
// retried only when it arrives before the first chunk; once chunks have been
// yielded an error is passed through. When the inner completer cannot
// stream, the complete reply is yielded as a single chunk.
func (r *RateLimitedCompleter) Stream(ctx context.Context, c *chat.Chat) iter.Seq2[message.Message, error] {
	return func(yield func(message.Message, error) bool) {
		s, ok := r.inner.(Streamer)
		if !ok {
			yield(r.Complete(ctx, c))
			return
		}

		entry, err := r.reserve(ctx, c)
		if err != nil {
			yield(message.Message{}, err)
			return
		}

		for attempt := 0; ; attempt++ {
			var (
				reply   message.Message
				started bool
				err     error
			)

			for chunk, cerr := range s.Stream(ctx, c) {
				if cerr != nil {
					err = cerr
					break
				}

				started = true
				reply = reply.Concat(chunk)

				if !yield(chunk, nil) {
					r.settle(entry, r.replyTokens(c, reply))
					return
				}
			}

			if err == nil {
				r.settle(entry, r.replyTokens(c, reply))
				if sleepErr := r.adaptFromServerInfo(ctx); sleepErr != nil {
					yield(message.Message{}, sleepErr)
				}
				return
			}

			if started {
				r.settle(entry, r.replyTokens(c, reply))
				yield(message.Message{}, err)
				return
			}

			var rle *RateLimitError
			if !errors.As(err, &rle) || attempt >= r.maxRetries {
				r.release(entry)
				yield(message.Message{}, err)
				return
			}

			if sleepErr := r.sleepFunc(ctx, r.backoff(attempt, rle)); sleepErr != nil {
				r.release(entry)
				yield(message.Message{}, sleepErr)
				return
			}
		}
	}
}

// adaptFromServerInfo checks whether the inner completer reports near-zero
// remaining capacity via RateLimitInfoReporter. If so, it preemptively sleeps
// until the provider's reset time.
func (r *RateLimitedCompleter) adaptFromServerInfo(ctx context.Context) error {
	reporter, ok := r.inner.(RateLimitInfoReporter)
	if !ok {
		return nil
	}

	info := reporter.LastRateLimitInfo()
	if info == nil {
		return nil
	}

	now := r.nowFunc()
	var sleepUntil time.Time

	if info.RemainingRequests <= 1 && !info.RequestsReset.IsZero() && info.RequestsReset.After(now) {
		sleepUntil = info.RequestsReset
	}

	if info.RemainingTokens <= 1 && !info.TokensReset.IsZero() && info.TokensReset.After(now) {
		if info.TokensReset.After(sleepUntil) {
			sleepUntil = info.TokensReset
		}
	}

	if sleepUntil.IsZero() {
		return nil
	}

	return r.sleepFunc(ctx, sleepUntil.Sub(now))
}

// UsageTracker forwards to the inner completer if it implements UsageReporter.
func (r *RateLimitedCompleter) UsageTracker() *usage.Tracker {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &r.fallbackTracker
}

// ModelMaxTokens forwards to the inner completer if it implements UsageReporter.
func (r *RateLimitedCompleter) ModelMaxTokens() int {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.ModelMaxTokens()
	}
	return 0
}
