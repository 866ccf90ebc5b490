package models

import "time"

// UsageRecord is an immutable, append-only row recording one metered call.
// Records are never mutated or deleted.
type UsageRecord struct {
	ID           int64     `json:"id" db:"id"`
	CredentialID int64     `json:"credential_id" db:"credential_id"`
	AgentID      *int64    `json:"agent_id,omitempty" db:"agent_id"` // Null for calls outside an agent
	ModelID      int64     `json:"model_id" db:"model_id"`
	TokensIn     int       `json:"tokens_in" db:"tokens_in"`
	TokensOut    int       `json:"tokens_out" db:"tokens_out"`
	CostIn       float64   `json:"cost_in" db:"cost_in"`
	CostOut      float64   `json:"cost_out" db:"cost_out"`
	CostTotal    float64   `json:"cost_total" db:"cost_total"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreditNotification records a low-balance event for a credential.
// At most one unacknowledged notification exists per credential at a time;
// acknowledgement happens out-of-band by administration.
type CreditNotification struct {
	ID           int64     `json:"id" db:"id"`
	IdentityID   int64     `json:"identity_id" db:"identity_id"`
	CredentialID int64     `json:"credential_id" db:"credential_id"`
	Balance      float64   `json:"balance" db:"balance"` // Balance at trigger time
	Acknowledged bool      `json:"acknowledged" db:"acknowledged"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UsageStat is one row of the grouped usage projection (per day)
type UsageStat struct {
	Date           string  `json:"date" db:"date"`
	TotalTokensIn  int64   `json:"total_tokens_in" db:"total_tokens_in"`
	TotalTokensOut int64   `json:"total_tokens_out" db:"total_tokens_out"`
	TotalCost      float64 `json:"total_cost" db:"total_cost"`
}

// UsageFilter narrows the usage statistics projection
type UsageFilter struct {
	From       *time.Time
	To         *time.Time
	IdentityID *int64
	AgentID    *int64
	ModelID    *int64
}
