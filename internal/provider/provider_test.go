package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsAdapterByID(t *testing.T) {
	base := Config{BaseURL: "http://localhost:9999", APIKey: "key", Model: "m"}

	for id, want := range map[string]any{
		"ollama":     &ollamaProvider{},
		"claude":     &anthropicProvider{},
		"openai":     &openAIProvider{},
		"qwen":       &openAIProvider{},
		"glm":        &openAIProvider{},
		"openrouter": &openAIProvider{},
	} {
		cfg := base
		cfg.ID = id
		prov, err := New(cfg)
		require.NoError(t, err, id)
		assert.IsType(t, want, prov, id)
		assert.Equal(t, id, prov.ID())
	}
}

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	_, err := New(Config{ID: "openai", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")

	_, err = New(Config{BaseURL: "http://x", Model: "m"})
	require.Error(t, err)

	_, err = New(Config{ID: "openai", BaseURL: "http://x"})
	require.Error(t, err)
}

func TestNew_HostedBackendsRequireAPIKey(t *testing.T) {
	for _, id := range []string{"openai", "claude"} {
		_, err := New(Config{ID: id, BaseURL: "http://x", Model: "m"})
		require.Error(t, err, id)
		assert.True(t, IsKind(err, KindAuth), id)
	}
}

func TestNew_OllamaNeedsNoKey(t *testing.T) {
	prov, err := New(Config{ID: "ollama", BaseURL: "http://localhost:11434", Model: "qwen2.5:7b"})
	require.NoError(t, err)

	// Local models default to smaller batches.
	assert.Equal(t, 10, prov.Limits().MaxUnits)
	assert.Equal(t, 6000, prov.Limits().MaxChars)
}

func TestNew_OllamaExplicitLimitIsKept(t *testing.T) {
	prov, err := New(Config{ID: "ollama", BaseURL: "http://localhost:11434", Model: "m", MaxUnits: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, prov.Limits().MaxUnits)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{ID: "openai", BaseURL: "http://x", APIKey: "k", Model: "m"}
	got := cfg.withDefaults()

	assert.Equal(t, 120*time.Second, got.Timeout)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Equal(t, 20, got.MaxUnits)
	assert.Equal(t, 6000, got.MaxChars)
}

func TestClassifyStatus(t *testing.T) {
	assert.True(t, IsKind(classifyStatus("p", 401, ""), KindAuth))
	assert.True(t, IsKind(classifyStatus("p", 403, ""), KindAuth))
	assert.True(t, IsKind(classifyStatus("p", 429, ""), KindRateLimited))
	assert.True(t, IsKind(classifyStatus("p", 500, ""), KindUnavailable))
	assert.True(t, IsKind(classifyStatus("p", 503, ""), KindUnavailable))
	assert.True(t, IsKind(classifyStatus("p", 400, ""), KindMalformed))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(newError(KindRateLimited, "p", "")))
	assert.True(t, IsRetryable(newError(KindUnavailable, "p", "")))
	assert.False(t, IsRetryable(newError(KindAuth, "p", "")))
	assert.False(t, IsRetryable(newError(KindMalformed, "p", "")))
	assert.False(t, IsRetryable(assert.AnError))
}
