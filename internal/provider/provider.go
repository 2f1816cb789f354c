// Package provider normalizes heterogeneous AI translation backends behind
// one capability: translate an ordered batch of text segments and return the
// translations in the same order and count.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is the fixed capability every backend adapter implements.
//
// TranslateBatch must return exactly one translation per input text, in input
// order, or fail with a *Error. Adapters never silently pad, drop, or
// reorder segments.
type Provider interface {
	ID() string
	Model() string
	// Limits returns the per-call ceilings the batch scheduler must respect.
	Limits() BatchLimits
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// BatchLimits caps one provider call by unit count and total characters,
// whichever binds first.
type BatchLimits struct {
	MaxUnits int
	MaxChars int
}

// Config describes one backend instance. It is passed per job invocation,
// never read from process-wide state.
type Config struct {
	ID          string        `json:"id"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	Timeout     time.Duration `json:"timeout"`
	Temperature float64       `json:"temperature"`
	MaxUnits    int           `json:"max_units"`
	MaxChars    int           `json:"max_chars"`
}

const (
	defaultTimeout     = 120 * time.Second
	defaultTemperature = 0.3
	defaultMaxUnits    = 20
	defaultMaxChars    = 6000
)

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxUnits <= 0 {
		cfg.MaxUnits = defaultMaxUnits
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	return cfg
}

// Validate checks the fields every adapter needs. Adapters add their own
// credential requirements on top.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("provider id is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// New constructs the adapter matching the configured backend's wire format.
// Adding a backend means adding a variant here, never branching on provider
// name anywhere downstream.
func New(cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	switch cfg.ID {
	case "ollama":
		return newOllama(cfg)
	case "claude":
		return newAnthropic(cfg)
	default:
		// openai, qwen, glm, openrouter and anything else speaking the
		// OpenAI-compatible chat-completions dialect.
		return newOpenAI(cfg)
	}
}
