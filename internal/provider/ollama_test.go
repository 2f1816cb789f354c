package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaTestProvider(t *testing.T, serverURL string) Provider {
	t.Helper()
	prov, err := New(Config{
		ID:      "ollama",
		BaseURL: serverURL,
		Model:   "qwen2.5:7b",
	})
	require.NoError(t, err)
	return prov
}

func TestOllama_TranslateBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen2.5:7b", req.Model)
		assert.False(t, req.Stream)
		assert.InDelta(t, 0.3, req.Options.Temperature, 1e-9)

		response := `{
			"model": "qwen2.5:7b",
			"message": {"role": "assistant", "content": "你好\n---\n世界"},
			"done": true
		}`
		_, _ = w.Write([]byte(response))
	}))
	defer server.Close()

	prov := newOllamaTestProvider(t, server.URL)
	got, err := prov.TranslateBatch(context.Background(), []string{"hello", "world"}, "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, []string{"你好", "世界"}, got)
}

func TestOllama_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	prov := newOllamaTestProvider(t, server.URL)
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestOllama_ErrorFieldInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "something went sideways"}`))
	}))
	defer server.Close()

	prov := newOllamaTestProvider(t, server.URL)
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
	assert.Contains(t, err.Error(), "something went sideways")
}

func TestOllama_DaemonDownIsUnavailable(t *testing.T) {
	prov := newOllamaTestProvider(t, "http://127.0.0.1:1")
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnavailable))
}
