package engine

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config is the engine configuration. Values come from the environment and
// can be overridden by an optional YAML file.
type Config struct {
	Provider         string          `env:"CHAINKIT_PROVIDER" envDefault:"groq" yaml:"provider"`
	Model            string          `env:"CHAINKIT_MODEL" yaml:"model"` // Empty selects the provider default.
	Temperature      float64         `env:"CHAINKIT_TEMPERATURE" envDefault:"0.7" yaml:"temperature"`
	MaxTokens        int             `env:"CHAINKIT_MAX_TOKENS" yaml:"max_tokens"` // 0 = provider default.
	BaseURL          string          `env:"CHAINKIT_BASE_URL" yaml:"base_url"`
	Timeout          time.Duration   `env:"CHAINKIT_TIMEOUT" envDefault:"2m" yaml:"timeout"`
	BatchConcurrency int             `env:"CHAINKIT_BATCH_CONCURRENCY" envDefault:"4" yaml:"batch_concurrency"`
	RateLimit        RateLimitConfig `envPrefix:"CHAINKIT_RATE_LIMIT_" yaml:"rate_limit"`

	GroqAPIKey      string `env:"GROQ_API_KEY" yaml:"groq_api_key"`           //nolint:gosec // configuration field, not a hardcoded secret
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" yaml:"anthropic_api_key"` //nolint:gosec // configuration field, not a hardcoded secret
}

// RateLimitConfig controls client-side rate limiting and 429 retries.
type RateLimitConfig struct {
	// Requests and tokens per minute; 0 means no limit.
	RPM       int `env:"RPM" yaml:"rpm"`
	InputTPM  int `env:"INPUT_TPM" yaml:"input_tpm"`
	OutputTPM int `env:"OUTPUT_TPM" yaml:"output_tpm"`

	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3" yaml:"max_retries"`
	BaseDelay  time.Duration `env:"BASE_DELAY" envDefault:"1s" yaml:"base_delay"`
}

func (r RateLimitConfig) enabled() bool {
	return r.RPM > 0 || r.InputTPM > 0 || r.OutputTPM > 0 || r.MaxRetries > 0
}

// MissingKeyError reports that the selected provider has no API key.
type MissingKeyError struct {
	Var string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s not found in environment variables. Please create a .env file with your API key.", e.Var)
}

// LoadConfig reads the configuration from the environment and, when path is
// not empty, overlays the YAML file at path. Environment variables referenced
// as ${VAR} or $VAR in the YAML are expanded before parsing so secrets can
// stay in the environment (e.g. loaded from a .env file).
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse environment: %w", err)
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	return cfg, nil
}

// APIKey returns the credential of the selected provider and the name of the
// environment variable it is read from.
func (c Config) APIKey() (key, envVar string) {
	switch c.Provider {
	case KindGroq:
		return c.GroqAPIKey, "GROQ_API_KEY"
	case KindAnthropic:
		return c.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	}
	return "", ""
}

// ModelName returns the configured model or the provider's default.
func (c Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Provider == "" {
		return errors.New("engine: config: provider is required")
	}
	if _, ok := getFactory(c.Provider); !ok {
		return fmt.Errorf("engine: config: unknown provider %q", c.Provider)
	}
	if hi := maxTemperature(c.Provider); math.IsNaN(c.Temperature) || c.Temperature < 0 || c.Temperature > hi {
		return fmt.Errorf("engine: config: temperature %v out of range [0, %v] for provider %q", c.Temperature, hi, c.Provider)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("engine: config: max_tokens must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("engine: config: timeout must not be negative")
	}
	if c.BatchConcurrency < 0 {
		return fmt.Errorf("engine: config: batch_concurrency must not be negative")
	}

	rl := c.RateLimit
	if rl.RPM < 0 || rl.InputTPM < 0 || rl.OutputTPM < 0 || rl.MaxRetries < 0 || rl.BaseDelay < 0 {
		return fmt.Errorf("engine: config: rate_limit values must not be negative")
	}

	if key, envVar := c.APIKey(); envVar != "" && strings.TrimSpace(key) == "" {
		return &MissingKeyError{Var: envVar}
	}

	return nil
}
