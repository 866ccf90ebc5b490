package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// CredentialRepository implements the repositories.CredentialRepository interface
type CredentialRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB, logger *zap.Logger) repositories.CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger,
	}
}

const credentialColumns = `id, identity_id, key_value, active, balance, created_at`

// GetActiveByKey retrieves an active credential by its key value
func (r *CredentialRepository) GetActiveByKey(ctx context.Context, key string) (*models.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE key_value = $1 AND active = true
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanCredential(executor.QueryRowContext(ctx, query, key))
}

// GetByID retrieves a credential by id
func (r *CredentialRepository) GetByID(ctx context.Context, id int64) (*models.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT ` + credentialColumns + `
		FROM credentials
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	return r.scanCredential(executor.QueryRowContext(ctx, query, id))
}

// Debit decrements the credential balance by amount. The balance is not
// clamped at zero; it may go negative after a debit.
func (r *CredentialRepository) Debit(ctx context.Context, id int64, amount float64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		UPDATE credentials
		SET balance = balance - $1
		WHERE id = $2
	`

	executor := GetExecutor(ctx, r.db)

	result, err := executor.ExecContext(ctx, query, amount, id)
	if err != nil {
		return 0, fmt.Errorf("failed to debit credential: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("credential debited",
		zap.Int64("credential_id", id),
		zap.Float64("amount", amount))

	return affected, nil
}

func (r *CredentialRepository) scanCredential(row *sql.Row) (*models.Credential, error) {
	cred := &models.Credential{}
	err := row.Scan(
		&cred.ID,
		&cred.IdentityID,
		&cred.KeyValue,
		&cred.Active,
		&cred.Balance,
		&cred.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}
