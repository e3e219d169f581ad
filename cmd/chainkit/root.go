package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/germanamz/chainkit/cmd/chainkit/internal/examples"
	"github.com/germanamz/chainkit/cmd/chainkit/internal/format"
	chainkitlog "github.com/germanamz/chainkit/cmd/chainkit/internal/log"
	"github.com/germanamz/chainkit/cmd/chainkit/internal/styles"
	"github.com/germanamz/chainkit/pkg/engine"
)

// options holds the global flag values.
type options struct {
	envFile     string
	configPath  string
	provider    string
	model       string
	temperature float64
	render      string
	verbose     bool
	quiet       bool
	noColor     bool

	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "chainkit",
		Short: "Walk through basic LLM chain patterns",
		Long: `chainkit demonstrates five ways of working with a chat model: a plain
invocation, prompt templates, a template | model | parser chain, batch
processing and streaming. Groq is used by default; set GROQ_API_KEY in
the environment or in a .env file.

Run without a subcommand to go through every example in order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.log = chainkitlog.Setup(cmd.ErrOrStderr(), opts.verbose, opts.quiet)
			return loadDotEnv(opts.envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExamples(cmd, opts, examples.All())
		},
	}

	bindGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(newRunCmd(opts), newListCmd())

	return root
}

func bindGlobalFlags(pf *pflag.FlagSet, opts *options) {
	pf.StringVar(&opts.envFile, "env", ".env", "path to a .env file (ignored when missing)")
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.provider, "provider", "", "model provider (groq or anthropic)")
	pf.StringVar(&opts.model, "model", "", "model name")
	pf.Float64Var(&opts.temperature, "temperature", 0.7, "sampling temperature")
	pf.StringVar(&opts.render, "render", format.ModePlain, "how to print replies: plain or markdown")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-essential output")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadConfig reads the engine config and applies flags the user set, which
// take precedence over the environment and the config file.
func loadConfig(cmd *cobra.Command, opts *options) (engine.Config, error) {
	cfg, err := engine.LoadConfig(opts.configPath)
	if err != nil {
		return engine.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = opts.provider
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("temperature") {
		cfg.Temperature = opts.temperature
	}

	return cfg, nil
}

func runExamples(cmd *cobra.Command, opts *options, list []examples.Example) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	st := styles.New(out, opts.noColor)

	renderer, err := format.NewRenderer(opts.render, opts.noColor, 0)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return examples.Report(cmd.ErrOrStderr(), st, "", err)
	}
	_, keyVar := cfg.APIKey()

	model, err := engine.NewModel(cfg)
	if err != nil {
		return examples.Report(cmd.ErrOrStderr(), st, keyVar, err)
	}

	opts.log.Debug("model ready", "provider", cfg.Provider, "model", model.Name(), "temperature", cfg.Temperature)

	env := &examples.Env{
		Model:            model,
		Out:              out,
		Styles:           st,
		Renderer:         renderer,
		Log:              opts.log,
		BatchConcurrency: cfg.BatchConcurrency,
		KeyVar:           keyVar,
	}

	err = examples.Run(ctx, env, list, cmd.ErrOrStderr())

	if tc, ok := model.Usage(); ok {
		opts.log.Debug("token usage", "total", tc.String())
	}

	return err
}
