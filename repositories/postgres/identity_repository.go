package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// IdentityRepository implements the repositories.IdentityRepository interface
type IdentityRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB, logger *zap.Logger) repositories.IdentityRepository {
	return &IdentityRepository{
		db:     db,
		logger: logger,
	}
}

const identityColumns = `id, username, email, password_hash, role_id, active, created_at`

// GetByID retrieves an identity by id
func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanIdentity(executor.QueryRowContext(ctx, query, id))
}

// GetActiveByUsername retrieves an active identity by username
func (r *IdentityRepository) GetActiveByUsername(ctx context.Context, username string) (*models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE username = $1 AND active = true
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanIdentity(executor.QueryRowContext(ctx, query, username))
}

func (r *IdentityRepository) scanIdentity(row *sql.Row) (*models.Identity, error) {
	identity := &models.Identity{}
	err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.RoleID,
		&identity.Active,
		&identity.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}
