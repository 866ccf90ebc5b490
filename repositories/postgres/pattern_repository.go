package postgres

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// PatternRepository implements the repositories.PatternRepository interface
type PatternRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *DB, logger *zap.Logger) repositories.PatternRepository {
	return &PatternRepository{
		db:     db,
		logger: logger,
	}
}

// ListForModel lists active patterns for (agent, tier) wired to the model.
// Ordered by ascending pattern id: evaluation is first-match-wins, so the
// order must be stable across calls.
func (r *PatternRepository) ListForModel(ctx context.Context, agentID, tierID, modelID int64) ([]models.Pattern, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT p.id, p.agent_id, p.tier_id, p.rule, COALESCE(p.description, ''), p.active
		FROM patterns p
		JOIN pattern_models pm ON p.id = pm.pattern_id
		WHERE p.agent_id = $1 AND p.tier_id = $2 AND pm.model_id = $3 AND p.active = true
		ORDER BY p.id ASC
	`

	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, agentID, tierID, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	patterns := make([]models.Pattern, 0)
	for rows.Next() {
		var p models.Pattern
		if err := rows.Scan(&p.ID, &p.AgentID, &p.TierID, &p.Rule, &p.Description, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return patterns, nil
}

// HasConnection reports whether at least one active pattern wires the
// (agent, tier) pair to the model
func (r *PatternRepository) HasConnection(ctx context.Context, agentID, tierID, modelID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM patterns p
			JOIN pattern_models pm ON p.id = pm.pattern_id
			WHERE p.agent_id = $1 AND p.tier_id = $2 AND pm.model_id = $3 AND p.active = true
		)
	`

	executor := GetExecutor(ctx, r.db)

	var connected bool
	if err := executor.QueryRowContext(ctx, query, agentID, tierID, modelID).Scan(&connected); err != nil {
		return false, fmt.Errorf("failed to check workflow connection: %w", err)
	}

	return connected, nil
}

// ListForAgentTier lists active patterns for (agent, tier) together with the
// active models each is wired to
func (r *PatternRepository) ListForAgentTier(ctx context.Context, agentID, tierID int64) ([]models.PatternWithModels, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT p.id, p.agent_id, p.tier_id, p.rule, COALESCE(p.description, ''), p.active
		FROM patterns p
		WHERE p.agent_id = $1 AND p.tier_id = $2 AND p.active = true
		ORDER BY p.id ASC
	`

	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, agentID, tierID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	patterns := make([]models.PatternWithModels, 0)
	for rows.Next() {
		var p models.PatternWithModels
		if err := rows.Scan(&p.ID, &p.AgentID, &p.TierID, &p.Rule, &p.Description, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	for i := range patterns {
		allowed, err := r.listAllowedModels(ctx, executor, patterns[i].ID)
		if err != nil {
			return nil, err
		}
		patterns[i].AllowedModels = allowed
	}

	return patterns, nil
}

func (r *PatternRepository) listAllowedModels(ctx context.Context, executor Executor, patternID int64) ([]models.ModelRef, error) {
	query := `
		SELECT m.id, m.name
		FROM pattern_models pm
		JOIN ai_models m ON pm.model_id = m.id
		WHERE pm.pattern_id = $1 AND m.active = true
		ORDER BY m.id ASC
	`

	rows, err := executor.QueryContext(ctx, query, patternID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowed models: %w", err)
	}
	defer rows.Close()

	refs := make([]models.ModelRef, 0)
	for rows.Next() {
		var ref models.ModelRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan model ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}
