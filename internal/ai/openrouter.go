package ai

import (
	"context"
	"fmt"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openrouterProvider speaks the OpenAI chat protocol with openrouter's
// optional attribution headers. No embedding endpoint: openrouter is a
// generation-only fallback.
type openrouterProvider struct {
	cfg openrouterConfig
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", ErrUnavailable
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}
	if p.cfg.HTTPReferer != "" {
		headers["HTTP-Referer"] = p.cfg.HTTPReferer
	}
	if p.cfg.XTitle != "" {
		headers["X-Title"] = p.cfg.XTitle
	}
	var out chatResponse
	if err := postJSON(ctx, endpoint, headers, newChatRequest(model, prompt), &out); err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openrouter response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func createOpenRouterFactory(args interface{}) (IAIProvider, error) {
	cfg := openrouterConfig{}
	if err := decodeConfig(args, &cfg); err != nil {
		return nil, err
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.HTTPReferer = strings.TrimSpace(cfg.HTTPReferer)
	cfg.XTitle = strings.TrimSpace(cfg.XTitle)
	if cfg.BaseURL = strings.TrimSpace(cfg.BaseURL); cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenRouterBaseURL
	}
	return &openrouterProvider{cfg: cfg}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
