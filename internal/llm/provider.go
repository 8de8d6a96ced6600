// Package llm holds the language-generation providers behind the voice
// assistant. Each provider turns a Request into a single completion; callers
// decide how to degrade when a provider fails.
package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutLLMCall bounds one generation call. Voice platforms abandon a tool
// call long before a chat client would, so this is tighter than a typical
// completion timeout.
const TimeoutLLMCall = 20 * time.Second

// Domain errors for the LLM package.
var (
	ErrProviderNotAvailable = errors.New("provider not available")
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrEmptyCompletion      = errors.New("provider returned no completion")
)

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
	// Generate sends a completion request to the LLM and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// EstimateCost estimates the cost in EUR for the given model and token counts.
	EstimateCost(model string, inputTokens, outputTokens int) float64
}

// Request represents an LLM generation request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents an LLM generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}
