package access

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/services/pattern"
	"go.uber.org/zap"
)

// Decision is the successful outcome of an authorization: the resolved
// identifiers the caller needs for dispatch and metering.
type Decision struct {
	AgentID int64 `json:"agent_id"`
	ModelID int64 `json:"model_id"`
	TierID  int64 `json:"tier_id"`
}

// Request carries the raw inputs to an authorization
type Request struct {
	IdentityID int64
	AgentName  string
	TierKind   models.TierKind
	ModelName  string
	Payload    string
}

// evalContext is the shared read-only context the gates evaluate over
type evalContext struct {
	req   Request
	agent *models.Agent
	model *models.Model
	tier  *models.SecurityTier
}

// gate is one step of the authorization pipeline. A gate returns nil to let
// the request through to the next gate and a typed domain error to deny.
type gate func(ctx context.Context, ec *evalContext) error

// Engine orchestrates the three-gate authorization decision.
// Authorization is a sequence of read-only lookups: it holds no locks and is
// pure over the current persisted state, so identical calls against
// unchanged data yield identical results.
type Engine struct {
	catalog      repositories.CatalogRepository
	entitlements repositories.EntitlementRepository
	patterns     repositories.PatternRepository
	matcher      *pattern.Matcher
	gates        []gate
	logger       *zap.Logger
}

// NewEngine creates a new access policy engine
func NewEngine(
	catalog repositories.CatalogRepository,
	entitlements repositories.EntitlementRepository,
	patterns repositories.PatternRepository,
	matcher *pattern.Matcher,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		catalog:      catalog,
		entitlements: entitlements,
		patterns:     patterns,
		matcher:      matcher,
		logger:       logger,
	}
	e.gates = []gate{
		e.entitlementGate,
		e.connectionGate,
		e.tierGate,
		e.contentGate,
	}
	return e
}

// tierName maps the request-facing tier kind to the persisted tier name
func tierName(kind models.TierKind) string {
	if kind == models.TierSecured {
		return "api_key"
	}
	return "oauth"
}

// Authorize decides whether the identity may invoke the (agent, tier, model)
// combination with the given payload. Denials come back as typed domain
// errors carrying a reason code; only storage faults surface as internal
// errors.
func (e *Engine) Authorize(ctx context.Context, req Request) (*Decision, error) {
	ec, err := e.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, g := range e.gates {
		if err := g(ctx, ec); err != nil {
			e.logger.Info("authorization denied",
				zap.Int64("identity_id", req.IdentityID),
				zap.String("agent", req.AgentName),
				zap.String("model", req.ModelName),
				zap.String("reason", services.GetReason(err)))
			return nil, err
		}
	}

	return &Decision{
		AgentID: ec.agent.ID,
		ModelID: ec.model.ID,
		TierID:  ec.tier.ID,
	}, nil
}

// resolve looks up the agent, model and tier; any miss denies with a
// not-found naming the offending entity
func (e *Engine) resolve(ctx context.Context, req Request) (*evalContext, error) {
	if !req.TierKind.Valid() {
		return nil, services.BadRequest(services.ReasonMissingFields,
			fmt.Sprintf("unknown security tier kind %q", req.TierKind))
	}

	agent, err := e.catalog.GetActiveAgentByName(ctx, req.AgentName)
	if err != nil {
		return nil, services.Internal("failed to resolve agent", err)
	}
	if agent == nil {
		return nil, services.NotFound("agent",
			fmt.Sprintf("agent %q not found or not active", req.AgentName))
	}

	model, err := e.catalog.GetActiveModelByName(ctx, req.ModelName)
	if err != nil {
		return nil, services.Internal("failed to resolve model", err)
	}
	if model == nil {
		return nil, services.NotFound("model",
			fmt.Sprintf("model %q not found or not active", req.ModelName))
	}

	tier, err := e.catalog.GetTierByName(ctx, tierName(req.TierKind))
	if err != nil {
		return nil, services.Internal("failed to resolve security tier", err)
	}
	if tier == nil {
		return nil, services.NotFound("security_tier", "security tier not found")
	}

	return &evalContext{req: req, agent: agent, model: model, tier: tier}, nil
}

// entitlementGate requires an enabled entitlement row for
// (identity, agent, model)
func (e *Engine) entitlementGate(ctx context.Context, ec *evalContext) error {
	enabled, err := e.entitlements.IsEnabled(ctx, ec.req.IdentityID, ec.agent.ID, ec.model.ID)
	if err != nil {
		return services.Internal("failed to check entitlement", err)
	}
	if !enabled {
		return services.Forbidden(services.ReasonNoEntitlement,
			fmt.Sprintf("no access to agent %q with model %q", ec.agent.Name, ec.model.Name))
	}
	return nil
}

// connectionGate requires the (agent, tier, model) combination to be wired
// in the workflow through at least one active pattern. Independent of the
// entitlement gate: administrators can revoke the global wiring without
// touching per-client entitlements, and vice versa.
func (e *Engine) connectionGate(ctx context.Context, ec *evalContext) error {
	connected, err := e.patterns.HasConnection(ctx, ec.agent.ID, ec.tier.ID, ec.model.ID)
	if err != nil {
		return services.Internal("failed to check workflow connection", err)
	}
	if !connected {
		return services.Forbidden(services.ReasonNoConnection,
			fmt.Sprintf("agent %q with model %q is not wired in the workflow", ec.agent.Name, ec.model.Name))
	}
	return nil
}

// tierGate restricts the triage agent to the secured tier
func (e *Engine) tierGate(_ context.Context, ec *evalContext) error {
	if ec.agent.Name == models.TriageAgentName && ec.req.TierKind != models.TierSecured {
		return services.BadRequest(services.ReasonTierNotAllowed,
			"the triage agent may only be used on the secured tier")
	}
	return nil
}

// contentGate validates the payload against the configured patterns.
// Skipped for an empty payload and for the triage agent, whose text
// validation runs on its own action path. An empty pattern set allows
// (no configured rule means no restriction); a non-empty set with no match
// denies and surfaces the expected rules.
func (e *Engine) contentGate(ctx context.Context, ec *evalContext) error {
	if ec.req.Payload == "" || ec.agent.Name == models.TriageAgentName {
		return nil
	}

	patterns, err := e.matcher.FindPatterns(ctx, ec.agent.ID, ec.tier.ID, ec.model.ID)
	if err != nil {
		return services.Internal("failed to load content patterns", err)
	}

	if len(patterns) == 0 {
		return nil
	}

	matched, rules := e.matcher.AnyMatches(patterns, ec.req.Payload)
	if !matched {
		return services.BadRequest(services.ReasonPatternMismatch,
			"the prompt does not match any allowed pattern for this agent and model").
			WithDetail("expected_patterns", rules)
	}

	return nil
}

// ValidateTriagePayload runs the content patterns for the triage agent's own
// query action path, reusing the same pattern set as the standard gate.
func (e *Engine) ValidateTriagePayload(ctx context.Context, d *Decision, payload string) error {
	if payload == "" {
		return nil
	}

	patterns, err := e.matcher.FindPatterns(ctx, d.AgentID, d.TierID, d.ModelID)
	if err != nil {
		return services.Internal("failed to load content patterns", err)
	}
	if len(patterns) == 0 {
		return nil
	}

	matched, rules := e.matcher.AnyMatches(patterns, payload)
	if !matched {
		return services.BadRequest(services.ReasonPatternMismatch,
			"the prompt does not match any allowed pattern for the triage agent").
			WithDetail("expected_patterns", rules)
	}

	return nil
}
