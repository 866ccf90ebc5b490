package triage

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
	"go.uber.org/zap"
)

// Supervisor controls the external triage agent process and forwards
// queries to it
type Supervisor interface {
	// Start asks the supervisor to launch the triage agent
	Start(ctx context.Context) (*Status, error)

	// Stop asks the supervisor to stop the triage agent
	Stop(ctx context.Context) (*Status, error)

	// Info returns the current state of the triage agent
	Info(ctx context.Context) (*Status, error)

	// Query forwards a prompt to the running triage agent and returns the
	// answer with the token usage the ledger meters against
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
}

// Status describes the triage agent as reported by its supervisor. Error is
// set when the supervisor itself could not be reached or refused the action.
type Status struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// QueryRequest is a prompt forwarded to the triage agent
type QueryRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	User   string `json:"user,omitempty"`
}

// QueryResponse is the triage agent's answer
type QueryResponse struct {
	Answer string          `json:"answer"`
	Model  string          `json:"model"`
	Usage  providers.Usage `json:"usage"`
}

// Client talks to the triage supervisor over HTTP. When the supervisor is
// unreachable, control operations degrade to a not-running status and
// queries fall back to a canned answer with zero usage, so the gateway keeps
// answering while the triage deployment is down.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new triage supervisor client
func NewClient(cfg config.TriageConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Start asks the supervisor to launch the triage agent
func (c *Client) Start(ctx context.Context) (*Status, error) {
	return c.control(ctx, http.MethodPost, "/agent/start")
}

// Stop asks the supervisor to stop the triage agent
func (c *Client) Stop(ctx context.Context) (*Status, error) {
	return c.control(ctx, http.MethodPost, "/agent/stop")
}

// Info returns the current state of the triage agent
func (c *Client) Info(ctx context.Context) (*Status, error) {
	return c.control(ctx, http.MethodGet, "/agent/info")
}

func (c *Client) control(ctx context.Context, method, path string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supervisor request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("triage supervisor unreachable",
			zap.String("path", path),
			zap.Error(err))
		return &Status{Running: false, Error: "triage supervisor unreachable"}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read supervisor response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("supervisor returned status %d on %s", resp.StatusCode, path)
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode supervisor response: %w", err)
	}

	return &status, nil
}

// Query forwards a prompt to the triage agent. A transport failure degrades
// to the fallback answer rather than an error.
func (c *Client) Query(ctx context.Context, qr *QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(qr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal triage query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/agent/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create triage query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("triage agent unreachable, answering with fallback", zap.Error(err))
		return fallbackResponse(qr), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read triage response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("triage agent returned status %d", resp.StatusCode)
	}

	var qresp QueryResponse
	if err := json.Unmarshal(respBody, &qresp); err != nil {
		return nil, fmt.Errorf("failed to decode triage response: %w", err)
	}

	if qresp.Model == "" {
		qresp.Model = qr.Model
	}

	return &qresp, nil
}

// fallbackResponse is the canned answer used while the triage deployment is
// down. Zero usage so the ledger records the call without charging for
// tokens no provider counted.
func fallbackResponse(qr *QueryRequest) *QueryResponse {
	return &QueryResponse{
		Answer: "The triage agent is temporarily unavailable. Please try again later.",
		Model:  qr.Model,
		Usage:  providers.Usage{},
	}
}
