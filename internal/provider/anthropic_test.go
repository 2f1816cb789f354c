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

func newAnthropicTestProvider(t *testing.T, serverURL string) Provider {
	t.Helper()
	prov, err := New(Config{
		ID:      "claude",
		BaseURL: serverURL,
		APIKey:  "test-key",
		Model:   "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)
	return prov
}

func TestAnthropic_TranslateBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Anthropic auth is a custom header, not a bearer token.
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "/messages", r.URL.Path)

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet-4-20250514", req.Model)
		assert.NotEmpty(t, req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		response := `{
			"id": "msg_test",
			"type": "message",
			"role": "assistant",
			"content": [
				{"type": "text", "text": "你好\n---\n"},
				{"type": "text", "text": "世界"}
			]
		}`
		_, _ = w.Write([]byte(response))
	}))
	defer server.Close()

	prov := newAnthropicTestProvider(t, server.URL)
	got, err := prov.TranslateBatch(context.Background(), []string{"hello", "world"}, "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, []string{"你好", "世界"}, got)
}

func TestAnthropic_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	prov := newAnthropicTestProvider(t, server.URL)
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuth))
}

func TestAnthropic_Overloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "overloaded_error", "message": "overloaded"}}`))
	}))
	defer server.Close()

	prov := newAnthropicTestProvider(t, server.URL)
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestAnthropic_NoTextContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "msg_test", "content": []}`))
	}))
	defer server.Close()

	prov := newAnthropicTestProvider(t, server.URL)
	_, err := prov.TranslateBatch(context.Background(), []string{"hello"}, "zh-CN")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}
