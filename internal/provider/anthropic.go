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

const anthropicVersion = "2023-06-01"

// anthropicProvider speaks the Anthropic messages API, which shares nothing
// with the chat-completions shape: auth header, request envelope, and
// response structure all differ.
type anthropicProvider struct {
	cfg        Config
	httpClient *http.Client
}

func newAnthropic(cfg Config) (*anthropicProvider, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newError(KindAuth, cfg.ID, "API key is required")
	}
	return &anthropicProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (p *anthropicProvider) ID() string    { return p.cfg.ID }
func (p *anthropicProvider) Model() string { return p.cfg.Model }

func (p *anthropicProvider) Limits() BatchLimits {
	return BatchLimits{MaxUnits: p.cfg.MaxUnits, MaxChars: p.cfg.MaxChars}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *anthropicProvider) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := anthropicRequest{
		Model:     p.cfg.Model,
		MaxTokens: 8192,
		System:    batchSystemPrompt(len(texts), targetLang),
		Messages: []anthropicMessage{
			{Role: "user", Content: joinBatch(texts)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapError(KindMalformed, p.cfg.ID, "marshal request", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(KindUnavailable, p.cfg.ID, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, wrapError(KindMalformed, p.cfg.ID, "parse response", err)
	}
	if parsed.Error != nil {
		return nil, newError(KindMalformed, p.cfg.ID, parsed.Error.Message)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, newError(KindMalformed, p.cfg.ID, "no text content in response")
	}

	return splitBatch(p.cfg.ID, content.String(), len(texts))
}
