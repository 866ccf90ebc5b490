package models

// TierKind is the request-facing classification of the channel a call is
// made under. It is resolved to a persisted SecurityTier row by name.
type TierKind string

const (
	// TierSecured marks calls made over the trusted API-key channel
	TierSecured TierKind = "secured"

	// TierUnsecured marks calls made over the untrusted channel
	TierUnsecured TierKind = "unsecured"
)

// Valid reports whether the kind is one of the two known channel kinds
func (k TierKind) Valid() bool {
	return k == TierSecured || k == TierUnsecured
}

// TriageAgentName is the designated triage agent. It may only be authorized
// under the secured tier and its payload validation runs on its own action
// path rather than through the standard content gate.
const TriageAgentName = "agent-triage"

// Agent is a named logical capability endpoint a request targets
// (e.g. a chat persona).
type Agent struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	Active      bool   `json:"active" db:"active"`
}

// SecurityTier classifies the trust level of the channel a request is made
// under. Persisted tiers are referenced by patterns and models.
type SecurityTier struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Model is a provider-backed LLM with per-token prices.
// Prices are per single token, in the same unit as credential balances.
type Model struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Provider    string  `json:"provider" db:"provider"`
	PriceInput  float64 `json:"price_input" db:"price_input"`
	PriceOutput float64 `json:"price_output" db:"price_output"`
	TierID      int64   `json:"tier_id" db:"tier_id"`
	Active      bool    `json:"active" db:"active"`
}

// SystemPrompt is the instruction text injected for an (agent, tier)
// combination when dispatching to a provider.
type SystemPrompt struct {
	ID      int64  `json:"id" db:"id"`
	AgentID int64  `json:"agent_id" db:"agent_id"`
	TierID  int64  `json:"tier_id" db:"tier_id"`
	Prompt  string `json:"prompt" db:"prompt"`
}
