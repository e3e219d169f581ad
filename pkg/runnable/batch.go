package runnable

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds Batch when no option overrides it.
const DefaultMaxConcurrency = 4

// BatchOption configures Batch.
type BatchOption func(*batchConfig)

type batchConfig struct {
	maxConcurrency int
}

// WithMaxConcurrency limits the number of inputs processed at once.
// Zero or a negative value removes the limit.
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) { c.maxConcurrency = n }
}

// Batch invokes r on every input concurrently and returns the outputs in
// input order. The first failure cancels the remaining calls and is returned
// annotated with the index of the failing input.
func Batch[I, O any](ctx context.Context, r Runnable[I, O], inputs []I, opts ...BatchOption) ([]O, error) {
	cfg := batchConfig{maxConcurrency: DefaultMaxConcurrency}
	for _, o := range opts {
		o(&cfg)
	}

	out := make([]O, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.maxConcurrency > 0 {
		g.SetLimit(cfg.maxConcurrency)
	}

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			v, err := r.Invoke(gctx, in)
			if err != nil {
				return fmt.Errorf("batch: input %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
