package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// UsageRepository implements the repositories.UsageRepository interface
type UsageRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *DB, logger *zap.Logger) repositories.UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an immutable usage record
func (r *UsageRepository) Insert(ctx context.Context, rec *models.UsageRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	query := `
		INSERT INTO usage_records
		(credential_id, agent_id, model_id, tokens_in, tokens_out, cost_in, cost_out, cost_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)

	_, err := executor.ExecContext(ctx, query,
		rec.CredentialID,
		rec.AgentID,
		rec.ModelID,
		rec.TokensIn,
		rec.TokensOut,
		rec.CostIn,
		rec.CostOut,
		rec.CostTotal,
	)

	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}

	r.logger.Debug("usage record inserted",
		zap.Int64("credential_id", rec.CredentialID),
		zap.Int64("model_id", rec.ModelID),
		zap.Float64("cost_total", rec.CostTotal))

	return nil
}

// StatsByDay returns usage grouped by day, newest first
func (r *UsageRepository) StatsByDay(ctx context.Context, filter models.UsageFilter) ([]models.UsageStat, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout())
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`
		SELECT
			TO_CHAR(DATE(ur.created_at), 'YYYY-MM-DD') AS date,
			SUM(ur.tokens_in) AS total_tokens_in,
			SUM(ur.tokens_out) AS total_tokens_out,
			SUM(ur.cost_total) AS total_cost
		FROM usage_records ur
	`)

	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)

	if filter.IdentityID != nil {
		sb.WriteString(" JOIN credentials c ON ur.credential_id = c.id")
		args = append(args, *filter.IdentityID)
		conditions = append(conditions, "c.identity_id = $"+strconv.Itoa(len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, "ur.created_at >= $"+strconv.Itoa(len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, "ur.created_at <= $"+strconv.Itoa(len(args)))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		conditions = append(conditions, "ur.agent_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ModelID != nil {
		args = append(args, *filter.ModelID)
		conditions = append(conditions, "ur.model_id = $"+strconv.Itoa(len(args)))
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" GROUP BY DATE(ur.created_at) ORDER BY DATE(ur.created_at) DESC")

	executor := GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage stats: %w", err)
	}
	defer rows.Close()

	stats := make([]models.UsageStat, 0)
	for rows.Next() {
		var s models.UsageStat
		if err := rows.Scan(&s.Date, &s.TotalTokensIn, &s.TotalTokensOut, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan usage stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return stats, nil
}
