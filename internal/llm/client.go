// Package llm wraps the classifier model providers behind one small
// completion interface.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is one completion call to a model provider.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSONMode forces the provider to return a single JSON object.
	JSONMode bool
}

// Client sends prompts to a language model provider.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// DefaultModel returns the model a provider falls back to when none is
// configured.
func DefaultModel(provider string) string {
	if strings.ToLower(strings.TrimSpace(provider)) == "gemini" {
		return defaultGeminiModel
	}
	return defaultOpenAIModel
}

// NewClient builds the configured provider client. The provider defaults
// to OpenAI when unset.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, fmt.Errorf("openai api key is not set")
		}
		return NewOpenAIClient(opts.APIKey, opts.Model, opts.BaseURL), nil
	case "gemini":
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, fmt.Errorf("gemini api key is not set")
		}
		return NewGeminiClient(ctx, opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", opts.Provider)
	}
}
