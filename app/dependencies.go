package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/middleware"
	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/repositories/postgres"
	"github.com/upb/agent-gateway/services/access"
	"github.com/upb/agent-gateway/services/auth"
	"github.com/upb/agent-gateway/services/ledger"
	"github.com/upb/agent-gateway/services/options"
	"github.com/upb/agent-gateway/services/pattern"
	"github.com/upb/agent-gateway/services/providers"
	"github.com/upb/agent-gateway/services/providers/azure"
	"github.com/upb/agent-gateway/services/providers/openai"
	"github.com/upb/agent-gateway/services/triage"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Services
	Matcher      *pattern.Matcher
	AccessEngine *access.Engine
	Ledger       *ledger.Service
	Options      *options.Service
	Auth         *auth.Service
	Triage       triage.Supervisor

	// Providers
	ProviderRegistry *providers.Registry

	// Middleware
	AuthMiddleware   *middleware.AuthMiddleware
	APIKeyMiddleware *middleware.APIKeyMiddleware
	Metrics          *middleware.Metrics

	// Metrics registry, exposed for the /metrics endpoint
	PromRegistry *prometheus.Registry
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initProviders(cfg)
	deps.initServices(cfg)
	deps.initMiddleware(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initProviders registers a factory per configured provider. Construction is
// deferred to first use, so a misconfigured provider only fails requests
// that select it.
func (d *Dependencies) initProviders(cfg *config.Config) {
	registry := providers.NewRegistry()

	if cfg.Providers.OpenAI.APIKey != "" {
		openAICfg := cfg.Providers.OpenAI
		registry.Register("openai", func() (providers.Provider, error) {
			return openai.NewAdapter(openAICfg), nil
		})
		d.Logger.Info("registered OpenAI provider")
	}

	if cfg.Providers.Azure.APIKey != "" {
		azureCfg := cfg.Providers.Azure
		registry.Register("azure", func() (providers.Provider, error) {
			return azure.NewAdapter(azureCfg)
		})
		d.Logger.Info("registered Azure OpenAI provider")
	}

	if len(registry.Names()) == 0 {
		d.Logger.Warn("no LLM providers configured")
	}

	d.ProviderRegistry = registry
}

// initServices wires the domain services over the repositories
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Matcher = pattern.NewMatcher(d.Repos.Patterns, d.Logger)
	d.AccessEngine = access.NewEngine(
		d.Repos.Catalog,
		d.Repos.Entitlements,
		d.Repos.Patterns,
		d.Matcher,
		d.Logger,
	)
	d.Ledger = ledger.NewService(
		d.TxManager,
		d.Repos.Catalog,
		d.Repos.Credentials,
		d.Repos.Usage,
		d.Repos.Notifications,
		d.Logger,
	)
	d.Options = options.NewService(d.Repos.Identities, d.Repos.Entitlements, d.Logger)
	d.Auth = auth.NewService(d.Repos.Identities, cfg.Auth, d.Logger)

	if cfg.Triage.BaseURL != "" {
		d.Triage = triage.NewClient(cfg.Triage, d.Logger)
	} else {
		d.Logger.Warn("triage endpoint not configured, using unavailable fallback")
		d.Triage = triage.NewUnavailable()
	}

	d.Logger.Info("services initialized")
}

// initMiddleware wires the HTTP middleware over the services
func (d *Dependencies) initMiddleware(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Auth, d.Logger)
	d.APIKeyMiddleware = middleware.NewAPIKeyMiddleware(
		d.Repos.Credentials,
		d.Repos.Identities,
		cfg.Auth.APIKeyHeader,
		d.Logger,
	)

	if cfg.Observability.MetricsEnabled {
		d.PromRegistry = prometheus.NewRegistry()
		d.Metrics = middleware.NewMetrics(d.PromRegistry)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
