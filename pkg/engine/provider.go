package engine

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/germanamz/chainkit/pkg/chatmodel"
	"github.com/germanamz/chainkit/pkg/modeladapter"
	"github.com/germanamz/chainkit/pkg/providers/anthropic"
	"github.com/germanamz/chainkit/pkg/providers/groq"
)

// Built-in provider kinds.
const (
	KindGroq      = "groq"
	KindAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	KindGroq:      groq.DefaultModel,
	KindAnthropic: anthropic.DefaultModel,
}

// maxTemperatures holds the upper sampling temperature accepted by each
// built-in provider. Other kinds are allowed up to 2.
var maxTemperatures = map[string]float64{
	KindGroq:      2,
	KindAnthropic: 1,
}

func maxTemperature(kind string) float64 {
	if hi, ok := maxTemperatures[kind]; ok {
		return hi
	}
	return 2
}

// ProviderFactory creates a Completer from a Config.
type ProviderFactory func(cfg Config) (modeladapter.Completer, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories[KindGroq] = newGroq
		factories[KindAnthropic] = newAnthropic
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before NewModel to plug in additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// getFactory returns the factory for the given kind.
func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

func httpClient(cfg Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

func newGroq(cfg Config) (modeladapter.Completer, error) {
	a := groq.New(cfg.GroqAPIKey, httpClient(cfg))
	if cfg.BaseURL != "" {
		a.BaseURL = cfg.BaseURL
	}
	a.Name = cfg.ModelName()
	a.Temperature = cfg.Temperature
	a.MaxTokens = cfg.MaxTokens

	return a, nil
}

func newAnthropic(cfg Config) (modeladapter.Completer, error) {
	// Retries are left to the RateLimitedCompleter.
	opts := []anthropic.Option{
		anthropic.WithHTTPClient(httpClient(cfg)),
		anthropic.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	a := anthropic.New(cfg.AnthropicAPIKey, cfg.ModelName(), opts...)
	temp := cfg.Temperature
	a.Temperature = &temp
	a.MaxTokens = cfg.MaxTokens

	return a, nil
}

// buildCompleter creates a Completer using the factory registered for the
// configured provider. If rate limiting is configured, the completer is
// wrapped with a RateLimitedCompleter.
func buildCompleter(cfg Config) (modeladapter.Completer, error) {
	factory, ok := getFactory(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Provider)
	}

	c, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: provider %q: %w", cfg.Provider, err)
	}

	if rl := cfg.RateLimit; rl.enabled() {
		c = modeladapter.NewRateLimitedCompleter(c, modeladapter.RateLimitOpts{
			RPM:        rl.RPM,
			InputTPM:   rl.InputTPM,
			OutputTPM:  rl.OutputTPM,
			MaxRetries: rl.MaxRetries,
			BaseDelay:  rl.BaseDelay,
		})
	}

	return c, nil
}

// NewModel validates cfg and returns a chat model backed by the configured
// provider.
func NewModel(cfg Config) (*chatmodel.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := buildCompleter(cfg)
	if err != nil {
		return nil, err
	}

	return chatmodel.New(cfg.ModelName(), c), nil
}
