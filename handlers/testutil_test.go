package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/config"
	"github.com/upb/agent-gateway/middleware"
	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories/postgres"
	"github.com/upb/agent-gateway/services/access"
	"github.com/upb/agent-gateway/services/auth"
	"github.com/upb/agent-gateway/services/ledger"
	"github.com/upb/agent-gateway/services/options"
	"github.com/upb/agent-gateway/services/pattern"
	"github.com/upb/agent-gateway/services/providers"
	"github.com/upb/agent-gateway/services/triage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// newTestDeps wires the full dependency graph over a sqlmock connection
func newTestDeps(t *testing.T) (*app.Dependencies, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zap.NewNop()
	db := postgres.NewDBFromConn(sqlDB, logger)
	factory := postgres.NewRepositoryFactoryWithDB(db, logger)
	repos := factory.NewRepositories()
	txMgr := factory.GetTransactionManager()

	matcher := pattern.NewMatcher(repos.Patterns, logger)

	deps := &app.Dependencies{
		Config:      &config.Config{},
		DB:          db,
		Logger:      logger,
		RepoFactory: factory,
		Repos:       repos,
		TxManager:   txMgr,
		Matcher:     matcher,
		AccessEngine: access.NewEngine(
			repos.Catalog,
			repos.Entitlements,
			repos.Patterns,
			matcher,
			logger,
		),
		Ledger: ledger.NewService(
			txMgr,
			repos.Catalog,
			repos.Credentials,
			repos.Usage,
			repos.Notifications,
			logger,
		),
		Options: options.NewService(repos.Identities, repos.Entitlements, logger),
		Auth: auth.NewService(repos.Identities, config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
		}, logger),
		Triage:           triage.NewUnavailable(),
		ProviderRegistry: providers.NewRegistry(),
	}

	return deps, mock
}

// withCaller attaches an authenticated identity and credential, as the
// API-key middleware would
func withCaller(r *http.Request) *http.Request {
	ctx := middleware.WithIdentity(r.Context(), &models.Identity{
		ID:       7,
		Username: "client-one",
		RoleID:   models.RoleClient,
		Active:   true,
	})
	ctx = middleware.WithCredential(ctx, &models.Credential{
		ID:         5,
		IdentityID: 7,
		Active:     true,
		Balance:    42.5,
	})
	return r.WithContext(ctx)
}

// fakeProvider answers every completion with a fixed response
type fakeProvider struct {
	name   string
	answer string
	usage  providers.Usage

	lastReq *providers.ChatRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ChatCompletion(_ context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	f.lastReq = req
	return &providers.ChatResponse{
		Answer: f.answer,
		Model:  req.Model,
		Usage:  f.usage,
	}, nil
}
