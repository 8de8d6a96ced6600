package llm

import (
	"fmt"
	"strings"
)

// ProviderOptions carries the operator settings needed to build any provider.
type ProviderOptions struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaBaseURL   string
}

// NewProvider builds the named provider. Providers that need an API key fail
// with ErrProviderNotAvailable when none is configured, so a misconfigured
// install is caught at startup instead of on the first call.
func NewProvider(name string, opts ProviderOptions) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: missing API key: %w", ErrProviderNotAvailable)
		}
		if opts.OpenAIBaseURL != "" {
			return NewOpenAIProviderWithBaseURL(opts.OpenAIAPIKey, opts.OpenAIBaseURL), nil
		}
		return NewOpenAIProvider(opts.OpenAIAPIKey), nil
	case "anthropic":
		if opts.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic: missing API key: %w", ErrProviderNotAvailable)
		}
		return NewAnthropicProvider(opts.AnthropicAPIKey), nil
	case "ollama":
		return NewOllamaProvider(opts.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}
}

// ProviderUsesAPIKey reports whether the named provider requires an API key.
func ProviderUsesAPIKey(providerName string) bool {
	switch providerName {
	case "openai", "anthropic":
		return true
	default:
		return false
	}
}
