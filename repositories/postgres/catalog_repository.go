package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// CatalogRepository implements the repositories.CatalogRepository interface
type CatalogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *DB, logger *zap.Logger) repositories.CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// GetActiveAgentByName retrieves an active agent by name
func (r *CatalogRepository) GetActiveAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT id, name, COALESCE(description, ''), active
		FROM agents
		WHERE name = $1 AND active = true
	`

	executor := GetExecutor(ctx, r.db)
	agent := &models.Agent{}

	err := executor.QueryRowContext(ctx, query, name).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Description,
		&agent.Active,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}

// GetActiveModelByName retrieves an active model by name
func (r *CatalogRepository) GetActiveModelByName(ctx context.Context, name string) (*models.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT id, name, provider, price_input, price_output, tier_id, active
		FROM ai_models
		WHERE name = $1 AND active = true
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanModel(executor.QueryRowContext(ctx, query, name))
}

// GetModelByID retrieves a model by id regardless of active flag
func (r *CatalogRepository) GetModelByID(ctx context.Context, id int64) (*models.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT id, name, provider, price_input, price_output, tier_id, active
		FROM ai_models
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanModel(executor.QueryRowContext(ctx, query, id))
}

// GetTierByName retrieves a security tier by its persisted name
func (r *CatalogRepository) GetTierByName(ctx context.Context, name string) (*models.SecurityTier, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `SELECT id, name FROM security_tiers WHERE name = $1`

	executor := GetExecutor(ctx, r.db)
	tier := &models.SecurityTier{}

	err := executor.QueryRowContext(ctx, query, name).Scan(&tier.ID, &tier.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get security tier: %w", err)
	}

	return tier, nil
}

// GetSystemPrompt retrieves the system prompt for an (agent, tier) pair.
// Returns ("", nil) when none is configured.
func (r *CatalogRepository) GetSystemPrompt(ctx context.Context, agentID, tierID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT prompt
		FROM system_prompts
		WHERE agent_id = $1 AND tier_id = $2
	`

	executor := GetExecutor(ctx, r.db)

	var prompt string
	err := executor.QueryRowContext(ctx, query, agentID, tierID).Scan(&prompt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get system prompt: %w", err)
	}

	return prompt, nil
}

func (r *CatalogRepository) scanModel(row *sql.Row) (*models.Model, error) {
	model := &models.Model{}
	err := row.Scan(
		&model.ID,
		&model.Name,
		&model.Provider,
		&model.PriceInput,
		&model.PriceOutput,
		&model.TierID,
		&model.Active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return model, nil
}
