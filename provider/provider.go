package provider

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/stockpilot/config"
	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
	openai_provider "github.com/mohammad-safakhou/stockpilot/provider/openai"
)

// Client is the interface every model provider must satisfy. It matches the
// engine's ModelClient boundary.
type Client interface {
	Complete(ctx context.Context, system string, turns []workflow.Turn) (string, error)
}

// NewClient builds a chat client for the named provider from configuration.
// Groq and Gemini are both reached through their OpenAI-compatible chat
// completions endpoints, so a single client type serves every routing role.
func NewClient(cfg config.LLMConfig, name string) (Client, error) {
	p, err := cfg.Provider(name)
	if err != nil {
		return nil, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return openai_provider.NewClient(p.APIKey, p.BaseURL, p.Model, p.Temperature, p.MaxTokens, timeout), nil
}
