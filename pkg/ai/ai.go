package ai

import (
	"context"
	"fmt"
	"time"
)

// Adapter is one LLM provider capable of text generation.
type Adapter interface {
	// Generate sends a prompt to the model and returns the text response.
	Generate(ctx context.Context, model string, prompt string) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Embedder is implemented by adapters that can embed text.
type Embedder interface {
	Embed(ctx context.Context, model string, text string) ([]float64, error)
}

// Route targets one adapter/model pair for a task type.
type Route struct {
	Adapter string `yaml:"adapter"`
	Model   string `yaml:"model"`
}

// ClientConfig maps simulation task types to adapters.
type ClientConfig struct {
	Routes       map[string]Route `yaml:"routes"`
	Default      Route            `yaml:"default"`
	EmbedAdapter string           `yaml:"embed_adapter"`
	EmbedModel   string           `yaml:"embed_model"`
	// Timeout bounds every request.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultClientConfig routes narrative work to anthropic and embeddings to
// openai, with the mock adapter as the fallback for offline runs.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Routes: map[string]Route{
			"narrative":    {Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			"species_name": {Adapter: "google", Model: "gemini-2.0-pro"},
		},
		Default:      Route{Adapter: "mock", Model: "mock-1"},
		EmbedAdapter: "openai",
		EmbedModel:   "text-embedding-3-small",
		Timeout:      30 * time.Second,
	}
}

// Client routes simulation tasks to the configured adapters.
type Client struct {
	adapters map[string]Adapter
	cfg      ClientConfig
}

// NewClient creates a client over the given adapters.
func NewClient(adapters map[string]Adapter, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{adapters: adapters, cfg: cfg}
}

// Generate resolves the task's route and sends the prompt, bounded by the
// configured timeout.
func (c *Client) Generate(ctx context.Context, task string, prompt string) (string, error) {
	route, ok := c.cfg.Routes[task]
	if !ok {
		route = c.cfg.Default
	}
	a, ok := c.adapters[route.Adapter]
	if !ok {
		a, ok = c.adapters[c.cfg.Default.Adapter]
		if !ok {
			return "", fmt.Errorf("no adapter available for task %s", task)
		}
		route = c.cfg.Default
	}

	model := route.Model
	if model == "" {
		if models := a.Models(); len(models) > 0 {
			model = models[0]
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return a.Generate(ctx, model, prompt)
}

// Embed produces an embedding for the text via the configured embedding
// adapter, falling back to any adapter that supports embeddings.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if a, ok := c.adapters[c.cfg.EmbedAdapter]; ok {
		if e, ok := a.(Embedder); ok {
			ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
			return e.Embed(ctx, c.cfg.EmbedModel, text)
		}
	}
	if a, ok := c.adapters[c.cfg.Default.Adapter]; ok {
		if e, ok := a.(Embedder); ok {
			ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
			return e.Embed(ctx, c.cfg.EmbedModel, text)
		}
	}
	return nil, fmt.Errorf("no embedding adapter available")
}

// HasAdapter reports whether an adapter is registered under name.
func (c *Client) HasAdapter(name string) bool {
	_, ok := c.adapters[name]
	return ok
}
