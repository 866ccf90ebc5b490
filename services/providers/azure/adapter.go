package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/services/providers"
)

// Adapter implements the providers.Provider interface for Azure OpenAI.
// Azure routes by deployment, not by model name, so the model in the request
// selects nothing here; the deployment is fixed by configuration.
type Adapter struct {
	cfg        config.AzureConfig
	httpClient *http.Client
}

// NewAdapter creates a new Azure OpenAI adapter
func NewAdapter(cfg config.AzureConfig) (*Adapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure endpoint is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azure deployment is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Adapter{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "azure"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
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
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// ChatCompletion performs a chat completion request against the configured
// deployment
func (a *Adapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		User:        req.User,
	})
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "failed to marshal request", Err: err}
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.cfg.Endpoint, url.PathEscape(a.cfg.Deployment), url.QueryEscape(a.cfg.APIVersion))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &providers.ProviderError{Provider: a.Name(), Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.cfg.APIKey)

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

	answered := parsed.Model
	if answered == "" {
		answered = a.cfg.Deployment
	}

	return &providers.ChatResponse{
		Answer: parsed.Choices[0].Message.Content,
		Model:  answered,
		Usage: providers.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}
