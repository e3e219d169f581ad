// Command chainkit walks through five LLM orchestration patterns: a plain
// model call, prompt templates, a template | model | parser chain, batch
// invocation and streaming.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/examples"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		if !errors.Is(err, examples.ErrReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
