package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

func TestNewFromEnv_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "qwen", cfg.Translate.Provider)
	assert.Equal(t, "zh-CN", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, "@every 10m", cfg.Translate.CronExpr)
	assert.Equal(t, 1, cfg.Translate.Workers)
	assert.Equal(t, 120, cfg.Batch.Timeout)
	assert.InDelta(t, 0.3, cfg.Batch.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.Batch.RetryAttempts)

	assert.Contains(t, cfg.System.DBPath(), filepath.Join("bookworm", "bookworm.db"))

	qwen := cfg.Providers["qwen"]
	assert.Equal(t, "https://dashscope.aliyuncs.com/compatible-mode/v1", qwen.BaseURL)
	assert.Equal(t, "qwen-plus", qwen.Model)

	ollama := cfg.Providers["ollama"]
	assert.Equal(t, "http://localhost:11434", ollama.BaseURL)
	assert.Empty(t, ollama.APIKey)
}

func TestNewFromEnv_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOOKWORM_TRANSLATE_PROVIDER", "claude")
	t.Setenv("BOOKWORM_TRANSLATE_TARGET_LANG", "ja")
	t.Setenv("CLAUDE_API_KEY", "sk-test")
	t.Setenv("CLAUDE_MODEL", "claude-haiku")
	t.Setenv("BOOKWORM_REQUEST_TIMEOUT", "30")
	t.Setenv("BOOKWORM_TRANSLATE_WORKERS", "2")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Translate.Provider)
	assert.Equal(t, language.Japanese, cfg.Translate.TargetLanguage)
	assert.Equal(t, 2, cfg.Translate.Workers)

	prov, err := cfg.ActiveProvider()
	require.NoError(t, err)
	assert.Equal(t, "claude", prov.ID)
	assert.Equal(t, "sk-test", prov.APIKey)
	assert.Equal(t, "claude-haiku", prov.Model)
	assert.Equal(t, "https://api.anthropic.com/v1", prov.BaseURL)
	assert.Equal(t, 30*time.Second, prov.Timeout)
}

func TestNewFromEnv_UnknownProviderRejected(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOOKWORM_TRANSLATE_PROVIDER", "skynet")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skynet")
}

func TestNewFromEnv_InvalidTargetLangRejected(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOOKWORM_TRANSLATE_TARGET_LANG", "not a tag")

	_, err := NewFromEnv()
	require.Error(t, err)
}

func TestNewFromEnv_InvalidIntFallsBack(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOOKWORM_REQUEST_TIMEOUT", "soon")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Batch.Timeout)
}

func TestProviderByName_Unknown(t *testing.T) {
	isolateEnv(t)
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	_, err = cfg.ProviderByName("nope")
	require.Error(t, err)
}

func TestNewFromEnv_DataDirFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BOOKWORM_DATA_DIR", "/tmp/bookworm-data")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/bookworm-data", cfg.System.DataDir)
	assert.Equal(t, "/tmp/bookworm-data/bookworm.db", cfg.System.DBPath())
}
