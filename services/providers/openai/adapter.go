package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/services/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Adapter implements the providers.Provider interface for OpenAI
type Adapter struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
}

// NewAdapter creates a new OpenAI adapter
func NewAdapter(cfg config.OpenAIConfig) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Adapter{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatCompletion performs a chat completion request
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        req.User,
	})
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "failed to read response", Err: err}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &providers.ProviderError{Provider: a.Name(), StatusCode: resp.StatusCode, Message: msg}
	}

	if len(parsed.Choices) == 0 {
		return nil, &providers.ProviderError{Provider: a.Name(), StatusCode: resp.StatusCode, Message: "response contains no choices"}
	}

	return &providers.ChatResponse{
		Answer: parsed.Choices[0].Message.Content,
		Model:  parsed.Model,
		Usage: providers.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}
