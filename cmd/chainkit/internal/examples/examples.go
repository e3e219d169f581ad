// Package examples holds the five chainkit walkthroughs and the runner that
// prints them.
package examples

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/format"
	"github.com/germanamz/chainkit/cmd/chainkit/internal/styles"
	"github.com/germanamz/chainkit/pkg/chats/message"
	"github.com/germanamz/chainkit/pkg/modeladapter/usage"
	"github.com/germanamz/chainkit/pkg/parsers"
	"github.com/germanamz/chainkit/pkg/prompts"
	"github.com/germanamz/chainkit/pkg/runnable"
)

// Model is the chat model the examples talk to.
type Model interface {
	runnable.Runnable[prompts.Value, message.Message]
	Usage() (usage.TokenCount, bool)
}

// Env carries everything an example needs.
type Env struct {
	Model            Model
	Out              io.Writer
	Styles           styles.Styles
	Renderer         *format.Renderer
	Log              *slog.Logger
	BatchConcurrency int
	KeyVar           string // API key variable named in failure hints.
}

// Example is one walkthrough.
type Example struct {
	Number int
	Name   string
	Title  string
	Desc   string
	Run    func(ctx context.Context, env *Env) error
}

var catalogue = []Example{
	{Number: 1, Name: "basic", Title: "Basic LLM Usage", Desc: "invoke the model with a plain question", Run: basic},
	{Number: 2, Name: "template", Title: "Prompt Templates", Desc: "format a chat prompt template, then invoke", Run: template},
	{Number: 3, Name: "chain", Title: "LLM Chain", Desc: "pipe template, model and string parser", Run: chain},
	{Number: 4, Name: "batch", Title: "Batch Processing", Desc: "run one chain over several inputs concurrently", Run: batch},
	{Number: 5, Name: "stream", Title: "Streaming Responses", Desc: "print the reply chunk by chunk", Run: stream},
}

// All returns every example in order.
func All() []Example {
	return append([]Example(nil), catalogue...)
}

// Find returns the named examples in the order given.
func Find(names []string) ([]Example, error) {
	out := make([]Example, 0, len(names))
	for _, name := range names {
		ex, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown example %q (available: %s)", name, strings.Join(Names(), ", "))
		}
		out = append(out, ex)
	}
	return out, nil
}

// Names lists the example names in order.
func Names() []string {
	names := make([]string, len(catalogue))
	for i, ex := range catalogue {
		names[i] = ex.Name
	}
	return names
}

func lookup(name string) (Example, bool) {
	for _, ex := range catalogue {
		if ex.Name == name {
			return ex, true
		}
	}
	return Example{}, false
}

// stringChain builds template | model | string parser.
func stringChain(env *Env, tmpl *prompts.ChatTemplate) runnable.Runnable[prompts.Vars, string] {
	return runnable.Pipe[prompts.Vars, message.Message, string](
		runnable.Pipe[prompts.Vars, prompts.Value, message.Message](tmpl, env.Model),
		parsers.String{},
	)
}

func (e *Env) label(s string) string {
	return e.Styles.Label.Render(s)
}

func basic(ctx context.Context, env *Env) error {
	reply, err := env.Model.Invoke(ctx, prompts.Text("What is LangChain?"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(env.Out, "%s %s\n\n", env.label("Response:"), env.Renderer.Render(reply.TextContent()))
	return err
}

func template(ctx context.Context, env *Env) error {
	tmpl := prompts.MustFromMessages(
		prompts.System("You are a helpful assistant that explains technical concepts in simple terms."),
		prompts.User("Explain {topic} in 2-3 sentences."),
	)

	value, err := tmpl.Invoke(ctx, prompts.Vars{"topic": "Retrieval-Augmented Generation"})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(env.Out, "%s\n%s\n\n", env.label("Formatted Prompt:"), value); err != nil {
		return err
	}

	reply, err := env.Model.Invoke(ctx, value)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(env.Out, "%s %s\n\n", env.label("Response:"), env.Renderer.Render(reply.TextContent()))
	return err
}

func chain(ctx context.Context, env *Env) error {
	tmpl := prompts.MustFromMessages(
		prompts.System("You are a coding assistant that provides concise code examples."),
		prompts.User("Show me a {language} code example for {task}"),
	)
	c := runnable.WithLogging("chain", stringChain(env, tmpl), env.Log)

	result, err := c.Invoke(ctx, prompts.Vars{
		"language": "Python",
		"task":     "reading a CSV file with pandas",
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(env.Out, "%s\n%s\n\n", env.label("Chain Result:"), env.Renderer.Render(result))
	return err
}

func batch(ctx context.Context, env *Env) error {
	tmpl, err := prompts.FromTemplate("What is the capital of {country}?")
	if err != nil {
		return err
	}
	c := runnable.WithLogging("batch", stringChain(env, tmpl), env.Log)

	countries := []string{"France", "Japan", "Brazil"}
	inputs := make([]prompts.Vars, len(countries))
	for i, country := range countries {
		inputs[i] = prompts.Vars{"country": country}
	}

	results, err := runnable.Batch[prompts.Vars, string](ctx, c, inputs, runnable.WithMaxConcurrency(env.BatchConcurrency))
	if err != nil {
		return err
	}

	for i, result := range results {
		if _, err := fmt.Fprintf(env.Out, "%s %s\n", env.label(countries[i]+":"), result); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(env.Out)
	return err
}

func stream(ctx context.Context, env *Env) error {
	tmpl, err := prompts.FromTemplate("Write a short poem about {subject}")
	if err != nil {
		return err
	}
	c := runnable.WithLogging("stream", stringChain(env, tmpl), env.Log)

	subject := "artificial intelligence"
	if _, err := fmt.Fprintf(env.Out, "%s\n", env.label(fmt.Sprintf("Streaming response for '%s':", subject))); err != nil {
		return err
	}

	for chunk, err := range c.Stream(ctx, prompts.Vars{"subject": subject}) {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(env.Out, chunk); err != nil {
			return err
		}
	}

	_, err = fmt.Fprint(env.Out, "\n\n")
	return err
}
