package models

// Entitlement is a per-identity enable/disable flag for an (agent, model)
// pair, unique per triple. It is independent of the global workflow wiring:
// an enabled entitlement is necessary but not sufficient for authorization.
type Entitlement struct {
	ID         int64 `json:"id" db:"id"`
	IdentityID int64 `json:"identity_id" db:"identity_id"`
	AgentID    int64 `json:"agent_id" db:"agent_id"`
	ModelID    int64 `json:"model_id" db:"model_id"`
	Enabled    bool  `json:"enabled" db:"enabled"`
}

// EntitledModel is the options-projection view of a model an identity may
// use, carrying the tier name the model is wired under.
type EntitledModel struct {
	Name     string `json:"name" db:"name"`
	Provider string `json:"provider" db:"provider"`
	TierName string `json:"tier_name" db:"tier_name"`
}
