package providers

import (
	"context"
	"fmt"
)

// ChatRequest is the unified request handed to a provider client
type ChatRequest struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Prompt       string  `json:"prompt"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	User         string  `json:"user,omitempty"`
}

// Usage carries the token counts reported by the provider. These are the
// counts the ledger meters against.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ChatResponse is the unified provider response
type ChatResponse struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
	Usage  Usage  `json:"usage"`
}

// Provider is an outbound LLM provider client
type Provider interface {
	// Name returns the provider name (e.g. "openai", "azure")
	Name() string

	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ProviderError wraps a provider-side failure with enough context for the
// gateway to answer without leaking provider internals
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s (%v)", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProviderError) Unwrap() error {
	return e.Err
}
