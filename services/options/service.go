package options

import (
	"context"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/services"
	"go.uber.org/zap"
)

// Options is what a client may currently do: the agents and models it is
// entitled to, split by security tier, plus its remaining credit.
// A pure projection of entitlement rows.
type Options struct {
	ClientName      string              `json:"client_name"`
	ClientID        int64               `json:"client_id"`
	AvailableAgents []string            `json:"available_agents"`
	AvailableTiers  []models.TierKind   `json:"available_tiers"`
	AvailableModels map[string][]string `json:"available_models"`
	Credit          float64             `json:"credit"`
}

// Service serves the available-options projection
type Service struct {
	identities   repositories.IdentityRepository
	entitlements repositories.EntitlementRepository
	logger       *zap.Logger
}

// NewService creates a new options service
func NewService(identities repositories.IdentityRepository, entitlements repositories.EntitlementRepository, logger *zap.Logger) *Service {
	return &Service{
		identities:   identities,
		entitlements: entitlements,
		logger:       logger,
	}
}

// List returns the options available to the identity. The balance comes from
// the already-authenticated credential, so it is passed in rather than
// re-read.
func (s *Service) List(ctx context.Context, identityID int64, balance float64) (*Options, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, services.Internal("failed to load identity", err)
	}
	if identity == nil {
		return nil, services.NotFound("identity", "identity not found")
	}

	agents, err := s.entitlements.ListAgentNames(ctx, identityID)
	if err != nil {
		return nil, services.Internal("failed to list entitled agents", err)
	}

	entitled, err := s.entitlements.ListModels(ctx, identityID)
	if err != nil {
		return nil, services.Internal("failed to list entitled models", err)
	}

	secured := make([]string, 0)
	unsecured := make([]string, 0)
	for _, m := range entitled {
		// Persisted tier names map back to the request-facing kinds
		if m.TierName == "api_key" {
			secured = append(secured, m.Name)
		} else {
			unsecured = append(unsecured, m.Name)
		}
	}

	tiers := make([]models.TierKind, 0, 2)
	if len(secured) > 0 {
		tiers = append(tiers, models.TierSecured)
	}
	if len(unsecured) > 0 {
		tiers = append(tiers, models.TierUnsecured)
	}

	return &Options{
		ClientName:      identity.Username,
		ClientID:        identity.ID,
		AvailableAgents: agents,
		AvailableTiers:  tiers,
		AvailableModels: map[string][]string{
			string(models.TierSecured):   secured,
			string(models.TierUnsecured): unsecured,
		},
		Credit: balance,
	}, nil
}
