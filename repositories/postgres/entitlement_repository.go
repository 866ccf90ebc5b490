package postgres

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// EntitlementRepository implements the repositories.EntitlementRepository interface
type EntitlementRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEntitlementRepository creates a new entitlement repository
func NewEntitlementRepository(db *DB, logger *zap.Logger) repositories.EntitlementRepository {
	return &EntitlementRepository{
		db:     db,
		logger: logger,
	}
}

// IsEnabled reports whether an enabled entitlement exists for the triple
func (r *EntitlementRepository) IsEnabled(ctx context.Context, identityID, agentID, modelID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM entitlements
			WHERE identity_id = $1 AND agent_id = $2 AND model_id = $3 AND enabled = true
		)
	`

	executor := GetExecutor(ctx, r.db)

	var enabled bool
	if err := executor.QueryRowContext(ctx, query, identityID, agentID, modelID).Scan(&enabled); err != nil {
		return false, fmt.Errorf("failed to check entitlement: %w", err)
	}

	return enabled, nil
}

// ListAgentNames lists distinct active agent names the identity is entitled to
func (r *EntitlementRepository) ListAgentNames(ctx context.Context, identityID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT DISTINCT a.name
		FROM entitlements e
		JOIN agents a ON e.agent_id = a.id
		WHERE e.identity_id = $1 AND e.enabled = true AND a.active = true
		ORDER BY a.name
	`

	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitled agents: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan agent name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return names, nil
}

// ListModels lists active models the identity is entitled to, with the tier
// name each model is classified under
func (r *EntitlementRepository) ListModels(ctx context.Context, identityID int64) ([]models.EntitledModel, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT DISTINCT m.name, m.provider, t.name AS tier_name
		FROM entitlements e
		JOIN ai_models m ON e.model_id = m.id
		JOIN security_tiers t ON m.tier_id = t.id
		WHERE e.identity_id = $1 AND e.enabled = true AND m.active = true
		ORDER BY m.name
	`

	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitled models: %w", err)
	}
	defer rows.Close()

	result := make([]models.EntitledModel, 0)
	for rows.Next() {
		var m models.EntitledModel
		if err := rows.Scan(&m.Name, &m.Provider, &m.TierName); err != nil {
			return nil, fmt.Errorf("failed to scan entitled model: %w", err)
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
