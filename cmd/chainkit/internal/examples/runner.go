package examples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/styles"
)

// Title is printed in the opening banner.
const Title = "chainkit - Basic LLM Chain Examples"

// ErrReported marks an error whose details were already printed.
var ErrReported = errors.New("examples: error reported")

// Run prints the banner, runs each example under its header, and closes with
// a success line. The first failure is reported with setup hints and Run
// returns an error wrapping ErrReported.
func Run(ctx context.Context, env *Env, list []Example, errOut io.Writer) error {
	if env.Log == nil {
		env.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if _, err := fmt.Fprintln(env.Out, env.Styles.Banner(Title)); err != nil {
		return err
	}

	for _, ex := range list {
		header := fmt.Sprintf("=== EXAMPLE %d: %s ===", ex.Number, ex.Title)
		if _, err := fmt.Fprintf(env.Out, "\n%s\n", env.Styles.Header.Render(header)); err != nil {
			return err
		}

		if err := runOne(ctx, env, ex); err != nil {
			return Report(errOut, env.Styles, env.KeyVar, err)
		}
	}

	rule := env.Styles.Frame.Render(styles.Rule(styles.Width))
	_, err := fmt.Fprintf(env.Out, "%s\n%s\n%s\n", rule, env.Styles.Success.Render("All examples completed successfully!"), rule)
	return err
}

func runOne(ctx context.Context, env *Env, ex Example) error {
	before, tracked := env.Model.Usage()
	started := time.Now()

	err := ex.Run(ctx, env)

	attrs := []any{"example", ex.Name, "duration", time.Since(started)}
	if tracked {
		after, _ := env.Model.Usage()
		attrs = append(attrs,
			"input_tokens", after.InputTokens-before.InputTokens,
			"output_tokens", after.OutputTokens-before.OutputTokens,
		)
	}
	if err != nil {
		env.Log.Debug("example failed", append(attrs, "error", err)...)
		return err
	}
	env.Log.Debug("example finished", attrs...)
	return nil
}

// Report prints err with the setup hints and returns it wrapped with
// ErrReported. keyVar names the environment variable that holds the
// provider's API key; when empty the hint speaks of an API key in general.
func Report(w io.Writer, s styles.Styles, keyVar string, err error) error {
	if keyVar == "" {
		keyVar = "API key"
	}

	_, _ = fmt.Fprintf(w, "\n%s %v\n", s.Error.Render("Error occurred:"), err)
	_, _ = fmt.Fprintln(w, "Please make sure:")
	_, _ = fmt.Fprintln(w, s.Dim.Render("1. You have created a .env file with your "+keyVar))
	_, _ = fmt.Fprintln(w, s.Dim.Render("2. All dependencies are installed (go mod download)"))
	return fmt.Errorf("%w: %w", ErrReported, err)
}
