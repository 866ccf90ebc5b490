package models

// Pattern is a content-matching rule scoped to an (agent, tier) pair.
// The rule is a stored regular expression evaluated against request text;
// it is associated to the models it applies to through pattern_models.
type Pattern struct {
	ID          int64  `json:"id" db:"id"`
	AgentID     int64  `json:"agent_id" db:"agent_id"`
	TierID      int64  `json:"tier_id" db:"tier_id"`
	Rule        string `json:"rule" db:"rule"`
	Description string `json:"description,omitempty" db:"description"`
	Active      bool   `json:"active" db:"active"`
}

// PatternWithModels is a pattern together with the active models it is
// wired to, used by the suggestion path.
type PatternWithModels struct {
	Pattern
	AllowedModels []ModelRef `json:"allowed_models"`
}

// ModelRef is a light reference to a model for suggestion listings
type ModelRef struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
