package repositories

import (
	"context"

	"github.com/upb/agent-gateway/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if the function succeeds, rolls back on error.
	// The context passed to fn carries the transaction, so repositories
	// called with it execute inside the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// CatalogRepository resolves agents, models, tiers and system prompts.
// All lookups are read-only.
type CatalogRepository interface {
	// GetActiveAgentByName retrieves an active agent by name
	GetActiveAgentByName(ctx context.Context, name string) (*models.Agent, error)

	// GetActiveModelByName retrieves an active model by name
	GetActiveModelByName(ctx context.Context, name string) (*models.Model, error)

	// GetModelByID retrieves a model by id regardless of active flag
	GetModelByID(ctx context.Context, id int64) (*models.Model, error)

	// GetTierByName retrieves a security tier by its persisted name
	GetTierByName(ctx context.Context, name string) (*models.SecurityTier, error)

	// GetSystemPrompt retrieves the system prompt for an (agent, tier) pair.
	// Returns ("", nil) when none is configured.
	GetSystemPrompt(ctx context.Context, agentID, tierID int64) (string, error)
}

// EntitlementRepository reads per-identity (agent, model) enablement
type EntitlementRepository interface {
	// IsEnabled reports whether an enabled entitlement exists for the triple
	IsEnabled(ctx context.Context, identityID, agentID, modelID int64) (bool, error)

	// ListAgentNames lists distinct active agent names the identity is
	// entitled to (options projection)
	ListAgentNames(ctx context.Context, identityID int64) ([]string, error)

	// ListModels lists active models the identity is entitled to, with the
	// tier name each model is classified under (options projection)
	ListModels(ctx context.Context, identityID int64) ([]models.EntitledModel, error)
}

// PatternRepository reads content patterns and their model associations
type PatternRepository interface {
	// ListForModel lists active patterns for (agent, tier) wired to the
	// model through pattern_models, ordered by ascending pattern id so that
	// first-match-wins evaluation is deterministic.
	ListForModel(ctx context.Context, agentID, tierID, modelID int64) ([]models.Pattern, error)

	// HasConnection reports whether at least one active pattern wires the
	// (agent, tier) pair to the model
	HasConnection(ctx context.Context, agentID, tierID, modelID int64) (bool, error)

	// ListForAgentTier lists active patterns for (agent, tier) together with
	// the active models each is wired to (suggestion path)
	ListForAgentTier(ctx context.Context, agentID, tierID int64) ([]models.PatternWithModels, error)
}

// CredentialRepository handles API-key credentials
type CredentialRepository interface {
	// GetActiveByKey retrieves an active credential by its key value
	GetActiveByKey(ctx context.Context, key string) (*models.Credential, error)

	// GetByID retrieves a credential by id
	GetByID(ctx context.Context, id int64) (*models.Credential, error)

	// Debit decrements the credential balance by amount. Returns the number
	// of rows affected so callers can detect an unknown credential.
	Debit(ctx context.Context, id int64, amount float64) (int64, error)
}

// IdentityRepository handles identity lookups
type IdentityRepository interface {
	// GetByID retrieves an identity by id
	GetByID(ctx context.Context, id int64) (*models.Identity, error)

	// GetActiveByUsername retrieves an active identity by username
	GetActiveByUsername(ctx context.Context, username string) (*models.Identity, error)
}

// UsageRepository appends usage records and serves the stats projection
type UsageRepository interface {
	// Insert appends an immutable usage record
	Insert(ctx context.Context, rec *models.UsageRecord) error

	// StatsByDay returns usage grouped by day, newest first
	StatsByDay(ctx context.Context, filter models.UsageFilter) ([]models.UsageStat, error)
}

// NotificationRepository handles low-balance credit notifications
type NotificationRepository interface {
	// UnacknowledgedExists reports whether an unacknowledged notification
	// already exists for the credential
	UnacknowledgedExists(ctx context.Context, credentialID int64) (bool, error)

	// Insert creates a notification carrying the balance at trigger time
	Insert(ctx context.Context, n *models.CreditNotification) error

	// Acknowledge marks a notification as acknowledged. Returns the number
	// of rows affected.
	Acknowledge(ctx context.Context, id int64) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Catalog       CatalogRepository
	Entitlements  EntitlementRepository
	Patterns      PatternRepository
	Credentials   CredentialRepository
	Identities    IdentityRepository
	Usage         UsageRepository
	Notifications NotificationRepository
}
