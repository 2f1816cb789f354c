package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"bookworm/internal/provider"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Translation Configuration:
// - BOOKWORM_TRANSLATE_PROVIDER: Active provider name (default: qwen)
// - BOOKWORM_TRANSLATE_TARGET_LANG: Target language tag (default: zh-CN)
// - BOOKWORM_TRANSLATE_CRON: Cron expression for the resume sweep (default: @every 10m)
// - BOOKWORM_TRANSLATE_WORKERS: Concurrent translation jobs (default: 1)
//
// Provider Configuration (per provider NAME in upper case):
// - {NAME}_API_KEY: API key (ollama has none)
// - {NAME}_BASE_URL: API endpoint URL
// - {NAME}_MODEL: Model name
//
// Batch and Retry Configuration:
// - BOOKWORM_BATCH_MAX_UNITS: Max paragraphs per request (default: 20, ollama: 10)
// - BOOKWORM_BATCH_MAX_CHARS: Max characters per request (default: 6000)
// - BOOKWORM_REQUEST_TIMEOUT: Provider request timeout in seconds (default: 120)
// - BOOKWORM_RETRY_ATTEMPTS: Attempts per batch (default: 3)
//
// System Configuration:
// - BOOKWORM_DATA_DIR: Data directory (default: $XDG_DATA_HOME/bookworm)
type Config struct {
	// System Configuration
	System SystemConfig `json:"system"`

	// Translate Configuration
	Translate TranslateConfig `json:"translate"`

	// Provider Configuration, keyed by provider name
	Providers map[string]ProviderConfig `json:"providers"`

	// Batch and Retry Configuration
	Batch BatchConfig `json:"batch"`
}

// SystemConfig holds paths derived from the data directory
type SystemConfig struct {
	DataDir string `json:"data_dir"`
}

func (c SystemConfig) DBPath() string {
	return filepath.Join(c.DataDir, "bookworm.db")
}

func (c SystemConfig) LogPath() string {
	return filepath.Join(c.DataDir, "bookworm.log")
}

type TranslateConfig struct {
	Provider       string       `json:"provider"`
	TargetLanguage language.Tag `json:"target_language"`
	CronExpr       string       `json:"cron_expr"`
	Workers        int          `json:"workers"`
}

// ProviderConfig holds the connection settings for one translation provider
type ProviderConfig struct {
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

type BatchConfig struct {
	MaxUnits      int     `json:"max_units"`
	MaxChars      int     `json:"max_chars"`
	Timeout       int     `json:"timeout"`
	Temperature   float64 `json:"temperature"`
	RetryAttempts int     `json:"retry_attempts"`
}

type providerDef struct {
	keyEnv       string
	urlEnv       string
	modelEnv     string
	defaultURL   string
	defaultModel string
}

var providerDefs = map[string]providerDef{
	"openai": {
		keyEnv:       "OPENAI_API_KEY",
		urlEnv:       "OPENAI_BASE_URL",
		modelEnv:     "OPENAI_MODEL",
		defaultURL:   "https://api.openai.com/v1",
		defaultModel: "gpt-4o-mini",
	},
	"claude": {
		keyEnv:       "CLAUDE_API_KEY",
		urlEnv:       "CLAUDE_BASE_URL",
		modelEnv:     "CLAUDE_MODEL",
		defaultURL:   "https://api.anthropic.com/v1",
		defaultModel: "claude-sonnet-4-20250514",
	},
	"qwen": {
		keyEnv:       "QWEN_API_KEY",
		urlEnv:       "QWEN_BASE_URL",
		modelEnv:     "QWEN_MODEL",
		defaultURL:   "https://dashscope.aliyuncs.com/compatible-mode/v1",
		defaultModel: "qwen-plus",
	},
	"glm": {
		keyEnv:       "GLM_API_KEY",
		urlEnv:       "GLM_BASE_URL",
		modelEnv:     "GLM_MODEL",
		defaultURL:   "https://open.bigmodel.cn/api/paas/v4",
		defaultModel: "glm-4-flash",
	},
	"openrouter": {
		keyEnv:       "OPENROUTER_API_KEY",
		urlEnv:       "OPENROUTER_BASE_URL",
		modelEnv:     "OPENROUTER_MODEL",
		defaultURL:   "https://openrouter.ai/api/v1",
		defaultModel: "google/gemini-2.0-flash-001",
	},
	"ollama": {
		urlEnv:       "OLLAMA_BASE_URL",
		modelEnv:     "OLLAMA_MODEL",
		defaultURL:   "http://localhost:11434",
		defaultModel: "qwen2.5:7b",
	},
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance from environment variables and options.
// A .env file is loaded first when one exists, searched in the working directory,
// then $XDG_CONFIG_HOME/bookworm, then the home directory.
func NewFromEnv(opts ...Option) (*Config, error) {
	loadDotEnv()

	targetLang, err := language.Parse(getEnvString("BOOKWORM_TRANSLATE_TARGET_LANG", "zh-CN"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKWORM_TRANSLATE_TARGET_LANG: %w", err)
	}

	config := &Config{
		System: SystemConfig{
			DataDir: getEnvString("BOOKWORM_DATA_DIR", filepath.Join(xdgDataHome(), "bookworm")),
		},
		Translate: TranslateConfig{
			Provider:       getEnvString("BOOKWORM_TRANSLATE_PROVIDER", "qwen"),
			TargetLanguage: targetLang,
			CronExpr:       getEnvString("BOOKWORM_TRANSLATE_CRON", "@every 10m"),
			Workers:        getEnvInt("BOOKWORM_TRANSLATE_WORKERS", 1),
		},
		Providers: make(map[string]ProviderConfig, len(providerDefs)),
		Batch: BatchConfig{
			MaxUnits:      getEnvInt("BOOKWORM_BATCH_MAX_UNITS", 0),
			MaxChars:      getEnvInt("BOOKWORM_BATCH_MAX_CHARS", 0),
			Timeout:       getEnvInt("BOOKWORM_REQUEST_TIMEOUT", 120),
			Temperature:   getEnvFloat("BOOKWORM_TEMPERATURE", 0.3),
			RetryAttempts: getEnvInt("BOOKWORM_RETRY_ATTEMPTS", 3),
		},
	}

	for name, def := range providerDefs {
		apiKey := ""
		if def.keyEnv != "" {
			apiKey = getEnvString(def.keyEnv, "")
		}
		config.Providers[name] = ProviderConfig{
			Name:    name,
			APIKey:  apiKey,
			BaseURL: getEnvString(def.urlEnv, def.defaultURL),
			Model:   getEnvString(def.modelEnv, def.defaultModel),
		}
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ActiveProvider resolves the configured provider into adapter settings
func (c *Config) ActiveProvider() (provider.Config, error) {
	return c.ProviderByName(c.Translate.Provider)
}

func (c *Config) ProviderByName(name string) (provider.Config, error) {
	pc, ok := c.Providers[name]
	if !ok {
		return provider.Config{}, fmt.Errorf("unknown provider %q", name)
	}
	return provider.Config{
		ID:          pc.Name,
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey,
		Model:       pc.Model,
		Timeout:     time.Duration(c.Batch.Timeout) * time.Second,
		Temperature: c.Batch.Temperature,
		MaxUnits:    c.Batch.MaxUnits,
		MaxChars:    c.Batch.MaxChars,
	}, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if _, ok := c.Providers[c.Translate.Provider]; !ok {
		return fmt.Errorf("unknown BOOKWORM_TRANSLATE_PROVIDER %q", c.Translate.Provider)
	}
	if c.Translate.Workers < 1 {
		return fmt.Errorf("BOOKWORM_TRANSLATE_WORKERS must be at least 1")
	}
	return nil
}

func loadDotEnv() {
	candidates := []string{
		".env",
		filepath.Join(xdgConfigHome(), "bookworm", ".env"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func xdgDataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func xdgConfigHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
