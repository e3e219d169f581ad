package runnable_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/germanamz/chainkit/pkg/runnable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWithLogging_Invoke(t *testing.T) {
	var buf bytes.Buffer
	r := runnable.WithLogging[string, string]("echo", runnable.Func(func(_ context.Context, s string) (string, error) {
		return s, nil
	}), newLogger(&buf))

	out, err := r.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	logs := buf.String()
	assert.Contains(t, logs, "run started")
	assert.Contains(t, logs, "run finished")
	assert.Contains(t, logs, "runnable=echo")
	assert.Contains(t, logs, "mode=invoke")
	assert.Contains(t, logs, "run_id=")
	assert.Contains(t, logs, "duration=")
}

func TestWithLogging_InvokeError(t *testing.T) {
	var buf bytes.Buffer
	r := runnable.WithLogging[string, string]("fail", runnable.Func(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	}), newLogger(&buf))

	_, err := r.Invoke(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, buf.String(), `level=DEBUG msg="run failed"`)
	assert.Contains(t, buf.String(), "error=boom")
}

func TestWithLogging_ErrorSilentAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	r := runnable.WithLogging[string, string]("fail", runnable.Func(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	}), log)

	_, err := r.Invoke(context.Background(), "hi")
	require.EqualError(t, err, "boom")
	assert.Empty(t, buf.String())
}

func TestWithLogging_DistinctRunIDs(t *testing.T) {
	var buf bytes.Buffer
	r := runnable.WithLogging[string, string]("echo", runnable.Func(func(_ context.Context, s string) (string, error) {
		return s, nil
	}), newLogger(&buf))

	_, _ = r.Invoke(context.Background(), "a")
	_, _ = r.Invoke(context.Background(), "b")

	ids := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		for _, field := range strings.Fields(line) {
			if v, ok := strings.CutPrefix(field, "run_id="); ok {
				ids[v] = true
			}
		}
	}
	assert.Len(t, ids, 2)
}

func TestWithLogging_StreamCountsChunks(t *testing.T) {
	var buf bytes.Buffer
	r := runnable.WithLogging[string, []string]("words", words{}, newLogger(&buf))

	chunks, err := runnable.Collect(r.Stream(context.Background(), "a b c"))
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	assert.Contains(t, buf.String(), "chunks=3")
	assert.Contains(t, buf.String(), "mode=stream")
}

func TestWithLogging_TransformInPipeline(t *testing.T) {
	var buf bytes.Buffer
	logged := runnable.WithLogging[[]string, string]("upper", upper{}, newLogger(&buf))
	p := runnable.Pipe[string, []string, string](words{}, logged)

	chunks, err := runnable.Collect(p.Stream(context.Background(), "x y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, chunks)
	assert.Contains(t, buf.String(), "mode=transform")
	assert.Contains(t, buf.String(), "chunks=2")
}

func TestWithLogging_NilLogger(t *testing.T) {
	r := runnable.WithLogging[int, int]("quiet", runnable.Func(func(_ context.Context, n int) (int, error) {
		return n + 1, nil
	}), nil)

	out, err := r.Invoke(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}
