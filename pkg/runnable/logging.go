package runnable

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logged decorates a Runnable with structured run logging.
type Logged[I, O any] struct {
	name  string
	inner Runnable[I, O]
	log   *slog.Logger
}

// WithLogging wraps r so that every Invoke and Stream logs its start, its
// end and any error. Each run gets a fresh run_id. A nil logger discards.
// Records are written at debug level; the error itself is still returned to
// the caller, which decides how to report it.
func WithLogging[I, O any](name string, r Runnable[I, O], log *slog.Logger) *Logged[I, O] {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Logged[I, O]{name: name, inner: r, log: log}
}

func (l *Logged[I, O]) start(ctx context.Context, mode string) (*slog.Logger, time.Time) {
	log := l.log.With("runnable", l.name, "run_id", uuid.NewString(), "mode", mode)
	log.DebugContext(ctx, "run started")
	return log, time.Now()
}

func finish(ctx context.Context, log *slog.Logger, started time.Time, err error, attrs ...any) {
	attrs = append(attrs, "duration", time.Since(started))
	if err != nil {
		log.DebugContext(ctx, "run failed", append(attrs, "error", err)...)
		return
	}
	log.DebugContext(ctx, "run finished", attrs...)
}

// Invoke runs the wrapped runnable and logs the outcome.
func (l *Logged[I, O]) Invoke(ctx context.Context, in I) (O, error) {
	log, started := l.start(ctx, "invoke")
	out, err := l.inner.Invoke(ctx, in)
	finish(ctx, log, started, err)
	return out, err
}

// Stream forwards the wrapped stream and logs how many chunks it produced.
func (l *Logged[I, O]) Stream(ctx context.Context, in I) iter.Seq2[O, error] {
	return func(yield func(O, error) bool) {
		log, started := l.start(ctx, "stream")

		var (
			chunks  int
			lastErr error
		)
		defer func() { finish(ctx, log, started, lastErr, "chunks", chunks) }()

		for out, err := range l.inner.Stream(ctx, in) {
			if err != nil {
				lastErr = err
			} else {
				chunks++
			}
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

// Transform keeps a logged Transformer streaming inside a pipeline.
// When the wrapped runnable cannot transform, inputs are streamed one by one.
func (l *Logged[I, O]) Transform(ctx context.Context, in iter.Seq2[I, error]) iter.Seq2[O, error] {
	if t, ok := l.inner.(Transformer[I, O]); ok {
		return func(yield func(O, error) bool) {
			log, started := l.start(ctx, "transform")

			var (
				chunks  int
				lastErr error
			)
			defer func() { finish(ctx, log, started, lastErr, "chunks", chunks) }()

			for out, err := range t.Transform(ctx, in) {
				if err != nil {
					lastErr = err
				} else {
					chunks++
				}
				if !yield(out, err) || err != nil {
					return
				}
			}
		}
	}

	return func(yield func(O, error) bool) {
		for v, err := range in {
			if err != nil {
				var zero O
				yield(zero, err)
				return
			}
			for out, err := range l.Stream(ctx, v) {
				if !yield(out, err) || err != nil {
					return
				}
			}
		}
	}
}
