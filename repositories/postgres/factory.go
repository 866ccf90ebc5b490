package postgres

import (
	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &RepositoryFactory{db: db, logger: logger}, nil
}

// NewRepositoryFactoryWithDB wraps an existing connection (used by tests)
func NewRepositoryFactoryWithDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Catalog:       NewCatalogRepository(f.db, f.logger),
		Entitlements:  NewEntitlementRepository(f.db, f.logger),
		Patterns:      NewPatternRepository(f.db, f.logger),
		Credentials:   NewCredentialRepository(f.db, f.logger),
		Identities:    NewIdentityRepository(f.db, f.logger),
		Usage:         NewUsageRepository(f.db, f.logger),
		Notifications: NewNotificationRepository(f.db, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
