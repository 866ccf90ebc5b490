package postgres

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// NotificationRepository implements the repositories.NotificationRepository interface
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) repositories.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// UnacknowledgedExists reports whether an unacknowledged notification
// already exists for the credential
func (r *NotificationRepository) UnacknowledgedExists(ctx context.Context, credentialID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM credit_notifications
			WHERE credential_id = $1 AND acknowledged = false
		)
	`

	executor := GetExecutor(ctx, r.db)

	var exists bool
	if err := executor.QueryRowContext(ctx, query, credentialID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check notifications: %w", err)
	}

	return exists, nil
}

// Insert creates a notification carrying the balance at trigger time
func (r *NotificationRepository) Insert(ctx context.Context, n *models.CreditNotification) error {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		INSERT INTO credit_notifications (identity_id, credential_id, balance)
		VALUES ($1, $2, $3)
	`

	executor := GetExecutor(ctx, r.db)

	if _, err := executor.ExecContext(ctx, query, n.IdentityID, n.CredentialID, n.Balance); err != nil {
		return fmt.Errorf("failed to insert credit notification: %w", err)
	}

	r.logger.Info("low-balance notification created",
		zap.Int64("credential_id", n.CredentialID),
		zap.Float64("balance", n.Balance))

	return nil
}

// Acknowledge marks a notification as acknowledged
func (r *NotificationRepository) Acknowledge(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		UPDATE credit_notifications
		SET acknowledged = true
		WHERE id = $1 AND acknowledged = false
	`

	executor := GetExecutor(ctx, r.db)

	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to acknowledge notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected, nil
}
