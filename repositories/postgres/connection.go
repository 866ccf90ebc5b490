package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/agent-gateway/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger       *zap.Logger
	queryTimeout time.Duration
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:           db,
		logger:       logger,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// NewDBFromConn wraps an existing connection (used by tests)
func NewDBFromConn(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:           sqlDB,
		logger:       logger,
		queryTimeout: 5 * time.Second,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// QueryTimeout returns the configured per-query timeout. Store calls carry
// this timeout so a stalled backend surfaces as an error instead of hanging
// the caller.
func (db *DB) QueryTimeout() time.Duration {
	if db.queryTimeout <= 0 {
		return 5 * time.Second
	}
	return db.queryTimeout
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Identities (clients and administrators)
		CREATE TABLE IF NOT EXISTS identities (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role_id BIGINT NOT NULL DEFAULT 2,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- API-key credentials with prepaid balances
		CREATE TABLE IF NOT EXISTS credentials (
			id BIGSERIAL PRIMARY KEY,
			identity_id BIGINT NOT NULL REFERENCES identities(id),
			key_value VARCHAR(255) NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT true,
			balance DECIMAL(12, 6) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Agents (logical capability endpoints)
		CREATE TABLE IF NOT EXISTS agents (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT true
		);

		-- Security tiers (channel trust levels)
		CREATE TABLE IF NOT EXISTS security_tiers (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(50) NOT NULL UNIQUE
		);

		-- Models with per-token prices
		CREATE TABLE IF NOT EXISTS ai_models (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			provider VARCHAR(50) NOT NULL,
			price_input DECIMAL(12, 8) NOT NULL DEFAULT 0,
			price_output DECIMAL(12, 8) NOT NULL DEFAULT 0,
			tier_id BIGINT NOT NULL REFERENCES security_tiers(id),
			active BOOLEAN NOT NULL DEFAULT true
		);

		-- Per-identity (agent, model) entitlements
		CREATE TABLE IF NOT EXISTS entitlements (
			id BIGSERIAL PRIMARY KEY,
			identity_id BIGINT NOT NULL REFERENCES identities(id),
			agent_id BIGINT NOT NULL REFERENCES agents(id),
			model_id BIGINT NOT NULL REFERENCES ai_models(id),
			enabled BOOLEAN NOT NULL DEFAULT true,
			UNIQUE(identity_id, agent_id, model_id)
		);

		-- Content patterns per (agent, tier)
		CREATE TABLE IF NOT EXISTS patterns (
			id BIGSERIAL PRIMARY KEY,
			agent_id BIGINT NOT NULL REFERENCES agents(id),
			tier_id BIGINT NOT NULL REFERENCES security_tiers(id),
			rule TEXT NOT NULL,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT true
		);

		-- Pattern to model wiring (the workflow connection)
		CREATE TABLE IF NOT EXISTS pattern_models (
			pattern_id BIGINT NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
			model_id BIGINT NOT NULL REFERENCES ai_models(id) ON DELETE CASCADE,
			PRIMARY KEY (pattern_id, model_id)
		);

		-- System prompts per (agent, tier)
		CREATE TABLE IF NOT EXISTS system_prompts (
			id BIGSERIAL PRIMARY KEY,
			agent_id BIGINT NOT NULL REFERENCES agents(id),
			tier_id BIGINT NOT NULL REFERENCES security_tiers(id),
			prompt TEXT NOT NULL,
			UNIQUE(agent_id, tier_id)
		);

		-- Immutable usage ledger
		CREATE TABLE IF NOT EXISTS usage_records (
			id BIGSERIAL PRIMARY KEY,
			credential_id BIGINT NOT NULL REFERENCES credentials(id),
			agent_id BIGINT REFERENCES agents(id),
			model_id BIGINT NOT NULL REFERENCES ai_models(id),
			tokens_in INTEGER NOT NULL,
			tokens_out INTEGER NOT NULL,
			cost_in DECIMAL(12, 6) NOT NULL,
			cost_out DECIMAL(12, 6) NOT NULL,
			cost_total DECIMAL(12, 6) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Low-balance notifications (at most one unacknowledged per credential)
		CREATE TABLE IF NOT EXISTS credit_notifications (
			id BIGSERIAL PRIMARY KEY,
			identity_id BIGINT NOT NULL REFERENCES identities(id),
			credential_id BIGINT NOT NULL REFERENCES credentials(id),
			balance DECIMAL(12, 6) NOT NULL,
			acknowledged BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_credentials_identity_id ON credentials(identity_id);
		CREATE INDEX IF NOT EXISTS idx_credentials_key_value ON credentials(key_value);
		CREATE INDEX IF NOT EXISTS idx_entitlements_identity_id ON entitlements(identity_id);
		CREATE INDEX IF NOT EXISTS idx_patterns_agent_tier ON patterns(agent_id, tier_id);
		CREATE INDEX IF NOT EXISTS idx_pattern_models_model_id ON pattern_models(model_id);
		CREATE INDEX IF NOT EXISTS idx_usage_records_credential_id ON usage_records(credential_id);
		CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at);
		CREATE INDEX IF NOT EXISTS idx_credit_notifications_credential ON credit_notifications(credential_id, acknowledged);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
