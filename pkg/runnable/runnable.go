package runnable

import (
	"context"
	"iter"
)

// Runnable is a unit of work that turns an input into an output, either in
// one call or as a stream of output chunks.
type Runnable[I, O any] interface {
	Invoke(ctx context.Context, in I) (O, error)
	Stream(ctx context.Context, in I) iter.Seq2[O, error]
}

// Transformer is implemented by runnables that can consume a stream of inputs
// and produce a stream of outputs without waiting for the input to finish.
// Pipelines use it to keep streaming end to end.
type Transformer[I, O any] interface {
	Transform(ctx context.Context, in iter.Seq2[I, error]) iter.Seq2[O, error]
}

// FuncRunnable adapts a plain function to the Runnable interface.
type FuncRunnable[I, O any] struct {
	fn func(ctx context.Context, in I) (O, error)
}

// Func returns a Runnable backed by fn. Its Stream yields the single result.
func Func[I, O any](fn func(ctx context.Context, in I) (O, error)) *FuncRunnable[I, O] {
	return &FuncRunnable[I, O]{fn: fn}
}

// Invoke calls the wrapped function.
func (f *FuncRunnable[I, O]) Invoke(ctx context.Context, in I) (O, error) {
	return f.fn(ctx, in)
}

// Stream yields the result of Invoke once.
func (f *FuncRunnable[I, O]) Stream(ctx context.Context, in I) iter.Seq2[O, error] {
	return Once(func() (O, error) { return f.Invoke(ctx, in) })
}

// Once returns a stream that yields the result of fn exactly once.
func Once[O any](fn func() (O, error)) iter.Seq2[O, error] {
	return func(yield func(O, error) bool) {
		yield(fn())
	}
}

// Pipeline runs First and feeds its output to Second.
type Pipeline[A, B, C any] struct {
	First  Runnable[A, B]
	Second Runnable[B, C]
}

// Pipe chains a and b into a single Runnable[A, C].
func Pipe[A, B, C any](a Runnable[A, B], b Runnable[B, C]) *Pipeline[A, B, C] {
	return &Pipeline[A, B, C]{First: a, Second: b}
}

// Invoke runs First, then Second on its output.
func (p *Pipeline[A, B, C]) Invoke(ctx context.Context, in A) (C, error) {
	mid, err := p.First.Invoke(ctx, in)
	if err != nil {
		var zero C
		return zero, err
	}
	return p.Second.Invoke(ctx, mid)
}

// Stream streams the pipeline. When Second is a Transformer it consumes
// First's stream directly, so chunks flow through as they are produced.
// Otherwise First is invoked to completion and Second's stream is forwarded.
func (p *Pipeline[A, B, C]) Stream(ctx context.Context, in A) iter.Seq2[C, error] {
	if t, ok := p.Second.(Transformer[B, C]); ok {
		return t.Transform(ctx, p.First.Stream(ctx, in))
	}

	return func(yield func(C, error) bool) {
		mid, err := p.First.Invoke(ctx, in)
		if err != nil {
			var zero C
			yield(zero, err)
			return
		}

		for out, err := range p.Second.Stream(ctx, mid) {
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

// Transform lets a pipeline sit downstream of another stream. Each input is
// invoked through the whole pipeline as it arrives.
func (p *Pipeline[A, B, C]) Transform(ctx context.Context, in iter.Seq2[A, error]) iter.Seq2[C, error] {
	return func(yield func(C, error) bool) {
		for a, err := range in {
			if err != nil {
				var zero C
				yield(zero, err)
				return
			}

			for out, err := range p.Stream(ctx, a) {
				if !yield(out, err) || err != nil {
					return
				}
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[O any](seq iter.Seq2[O, error]) ([]O, error) {
	var out []O
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
