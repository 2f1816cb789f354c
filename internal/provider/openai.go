package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openAIProvider speaks the OpenAI-compatible chat-completions dialect shared
// by OpenAI, Qwen, GLM, OpenRouter and most hosted gateways.
type openAIProvider struct {
	cfg    Config
	client *openai.Client
}

func newOpenAI(cfg Config) (*openAIProvider, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newError(KindAuth, cfg.ID, "API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAIProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

func (p *openAIProvider) ID() string    { return p.cfg.ID }
func (p *openAIProvider) Model() string { return p.cfg.Model }

func (p *openAIProvider) Limits() BatchLimits {
	return BatchLimits{MaxUnits: p.cfg.MaxUnits, MaxChars: p.cfg.MaxChars}
}

func (p *openAIProvider) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: batchSystemPrompt(len(texts), targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: joinBatch(texts)},
		},
		Temperature: float32(p.cfg.Temperature),
	})
	if err != nil {
		return nil, p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, newError(KindMalformed, p.cfg.ID, "no choices in response")
	}

	return splitBatch(p.cfg.ID, resp.Choices[0].Message.Content, len(texts))
}

// classify maps SDK errors onto the adapter taxonomy.
func (p *openAIProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(p.cfg.ID, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(p.cfg.ID, reqErr.HTTPStatusCode, reqErr.Error())
	}
	// Transport-level failure: timeout, refused connection, DNS.
	return wrapError(KindUnavailable, p.cfg.ID, fmt.Sprintf("request failed against %s", p.cfg.BaseURL), err)
}
