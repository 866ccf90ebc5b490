package triage

import (
	"context"

	"github.com/upb/agent-gateway/services/providers"
)

// Unavailable is the Supervisor used when no triage endpoint is configured.
// Control operations report a stopped agent and queries return the fallback
// answer, so the gateway surface stays consistent without a triage
// deployment behind it.
type Unavailable struct{}

// NewUnavailable creates the no-op supervisor
func NewUnavailable() *Unavailable {
	return &Unavailable{}
}

// Start reports that the triage service is not available
func (*Unavailable) Start(context.Context) (*Status, error) {
	return &Status{Running: false, Error: "triage service not available"}, nil
}

// Stop reports that the triage service is not available
func (*Unavailable) Stop(context.Context) (*Status, error) {
	return &Status{Running: false, Error: "triage service not available"}, nil
}

// Info reports that the triage service is not available
func (*Unavailable) Info(context.Context) (*Status, error) {
	return &Status{Running: false, Error: "triage service not available"}, nil
}

// Query returns the fallback answer with zero usage
func (*Unavailable) Query(_ context.Context, qr *QueryRequest) (*QueryResponse, error) {
	return &QueryResponse{
		Answer: "The triage agent is temporarily unavailable. Please try again later.",
		Model:  qr.Model,
		Usage:  providers.Usage{},
	}, nil
}
