package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ollamaProvider talks to a local Ollama daemon over its native chat API.
// No credential is required or sent.
type ollamaProvider struct {
	cfg        Config
	httpClient *http.Client
}

func newOllama(cfg Config) (*ollamaProvider, error) {
	// Local models handle smaller batches better.
	if cfg.MaxUnits <= 0 {
		cfg.MaxUnits = 10
	}
	cfg = cfg.withDefaults()
	return &ollamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (p *ollamaProvider) ID() string    { return p.cfg.ID }
func (p *ollamaProvider) Model() string { return p.cfg.Model }

func (p *ollamaProvider) Limits() BatchLimits {
	return BatchLimits{MaxUnits: p.cfg.MaxUnits, MaxChars: p.cfg.MaxChars}
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func (p *ollamaProvider) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := ollamaRequest{
		Model: p.cfg.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: batchSystemPrompt(len(texts), targetLang)},
			{Role: "user", Content: joinBatch(texts)},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: p.cfg.Temperature},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapError(KindMalformed, p.cfg.ID, "marshal request", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindUnavailable, p.cfg.ID, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, wrapError(KindUnavailable, p.cfg.ID, fmt.Sprintf("request failed against %s", url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(KindUnavailable, p.cfg.ID, "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(p.cfg.ID, resp.StatusCode, string(respBody))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, wrapError(KindMalformed, p.cfg.ID, "parse response", err)
	}
	if parsed.Error != "" {
		return nil, newError(KindMalformed, p.cfg.ID, parsed.Error)
	}

	return splitBatch(p.cfg.ID, parsed.Message.Content, len(texts))
}
