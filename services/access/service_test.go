package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/services/pattern"
	"go.uber.org/zap"
)

// stubCatalog serves canned agent/model/tier lookups
type stubCatalog struct {
	agents map[string]*models.Agent
	models map[string]*models.Model
	tiers  map[string]*models.SecurityTier
}

func (s *stubCatalog) GetActiveAgentByName(_ context.Context, name string) (*models.Agent, error) {
	return s.agents[name], nil
}

func (s *stubCatalog) GetActiveModelByName(_ context.Context, name string) (*models.Model, error) {
	return s.models[name], nil
}

func (s *stubCatalog) GetModelByID(_ context.Context, id int64) (*models.Model, error) {
	for _, m := range s.models {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (s *stubCatalog) GetTierByName(_ context.Context, name string) (*models.SecurityTier, error) {
	return s.tiers[name], nil
}

func (s *stubCatalog) GetSystemPrompt(context.Context, int64, int64) (string, error) {
	return "", nil
}

// stubEntitlements answers IsEnabled from a flag
type stubEntitlements struct {
	enabled bool
}

func (s *stubEntitlements) IsEnabled(context.Context, int64, int64, int64) (bool, error) {
	return s.enabled, nil
}

func (s *stubEntitlements) ListAgentNames(context.Context, int64) ([]string, error) {
	return nil, nil
}

func (s *stubEntitlements) ListModels(context.Context, int64) ([]models.EntitledModel, error) {
	return nil, nil
}

// stubPatterns serves a fixed pattern list and connection flag
type stubPatterns struct {
	connected bool
	patterns  []models.Pattern
}

func (s *stubPatterns) ListForModel(context.Context, int64, int64, int64) ([]models.Pattern, error) {
	return s.patterns, nil
}

func (s *stubPatterns) HasConnection(context.Context, int64, int64, int64) (bool, error) {
	return s.connected, nil
}

func (s *stubPatterns) ListForAgentTier(context.Context, int64, int64) ([]models.PatternWithModels, error) {
	return nil, nil
}

func newTestEngine(catalog *stubCatalog, entitlements *stubEntitlements, patterns *stubPatterns) *Engine {
	logger := zap.NewNop()
	matcher := pattern.NewMatcher(patterns, logger)
	return NewEngine(catalog, entitlements, patterns, matcher, logger)
}

func defaultCatalog() *stubCatalog {
	return &stubCatalog{
		agents: map[string]*models.Agent{
			"agent-chat":           {ID: 1, Name: "agent-chat", Active: true},
			models.TriageAgentName: {ID: 2, Name: models.TriageAgentName, Active: true},
		},
		models: map[string]*models.Model{
			"gpt-4.1-mini": {ID: 10, Name: "gpt-4.1-mini", Provider: "openai", TierID: 100, Active: true},
		},
		tiers: map[string]*models.SecurityTier{
			"api_key": {ID: 100, Name: "api_key"},
			"oauth":   {ID: 101, Name: "oauth"},
		},
	}
}

func baseRequest() Request {
	return Request{
		IdentityID: 7,
		AgentName:  "agent-chat",
		TierKind:   models.TierSecured,
		ModelName:  "gpt-4.1-mini",
		Payload:    "hello world",
	}
}

func TestAuthorizeResolution(t *testing.T) {
	t.Run("unknown agent denies with not found", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
		req := baseRequest()
		req.AgentName = "agent-ghost"

		_, err := e.Authorize(context.Background(), req)
		require.Error(t, err)
		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, "agent", services.GetDetails(err)["entity"])
	})

	t.Run("unknown model denies with not found", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
		req := baseRequest()
		req.ModelName = "gpt-imaginary"

		_, err := e.Authorize(context.Background(), req)
		require.Error(t, err)
		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, "model", services.GetDetails(err)["entity"])
	})

	t.Run("invalid tier kind denies with bad request", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
		req := baseRequest()
		req.TierKind = "paranoid"

		_, err := e.Authorize(context.Background(), req)
		require.Error(t, err)
		assert.True(t, services.IsBadRequestError(err))
		assert.Equal(t, services.ReasonMissingFields, services.GetReason(err))
	})
}

func TestAuthorizeGates(t *testing.T) {
	t.Run("missing entitlement denies forbidden", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: false}, &stubPatterns{connected: true})

		_, err := e.Authorize(context.Background(), baseRequest())
		require.Error(t, err)
		assert.True(t, services.IsForbiddenError(err))
		assert.Equal(t, services.ReasonNoEntitlement, services.GetReason(err))
	})

	t.Run("missing workflow connection denies forbidden", func(t *testing.T) {
		// Entitlement alone is not sufficient
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: false})

		_, err := e.Authorize(context.Background(), baseRequest())
		require.Error(t, err)
		assert.True(t, services.IsForbiddenError(err))
		assert.Equal(t, services.ReasonNoConnection, services.GetReason(err))
	})

	t.Run("triage agent refused outside the secured tier", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
		req := baseRequest()
		req.AgentName = models.TriageAgentName
		req.TierKind = models.TierUnsecured

		_, err := e.Authorize(context.Background(), req)
		require.Error(t, err)
		assert.True(t, services.IsBadRequestError(err))
		assert.Equal(t, services.ReasonTierNotAllowed, services.GetReason(err))
	})

	t.Run("triage agent allowed on the secured tier without content gate", func(t *testing.T) {
		// Patterns would not match the payload, but the triage agent skips
		// the content gate entirely
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `^never-matches$`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)
		req := baseRequest()
		req.AgentName = models.TriageAgentName

		decision, err := e.Authorize(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, int64(2), decision.AgentID)
	})
}

func TestAuthorizeContentGate(t *testing.T) {
	t.Run("empty payload skips the content gate", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `^never-matches$`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)
		req := baseRequest()
		req.Payload = ""

		_, err := e.Authorize(context.Background(), req)
		assert.NoError(t, err)
	})

	t.Run("empty pattern set allows", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})

		decision, err := e.Authorize(context.Background(), baseRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(1), decision.AgentID)
		assert.Equal(t, int64(10), decision.ModelID)
		assert.Equal(t, int64(100), decision.TierID)
	})

	t.Run("matching payload allows", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `hello`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		_, err := e.Authorize(context.Background(), baseRequest())
		assert.NoError(t, err)
	})

	t.Run("mismatch denies and lists every configured rule", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `^foo$`, Active: true},
			{ID: 2, Rule: `^bar$`, Active: true},
			{ID: 3, Rule: `^baz$`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		_, err := e.Authorize(context.Background(), baseRequest())
		require.Error(t, err)
		assert.True(t, services.IsBadRequestError(err))
		assert.Equal(t, services.ReasonPatternMismatch, services.GetReason(err))

		expected := services.GetDetails(err)["expected_patterns"]
		assert.Equal(t, []string{`^foo$`, `^bar$`, `^baz$`}, expected)
	})

	t.Run("broken rule is skipped and a later rule still matches", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `([unclosed`, Active: true},
			{ID: 2, Rule: `hello`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		_, err := e.Authorize(context.Background(), baseRequest())
		assert.NoError(t, err)
	})

	t.Run("all rules broken denies with the rules listed", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `([unclosed`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		_, err := e.Authorize(context.Background(), baseRequest())
		require.Error(t, err)
		assert.Equal(t, services.ReasonPatternMismatch, services.GetReason(err))
		assert.Equal(t, []string{`([unclosed`}, services.GetDetails(err)["expected_patterns"])
	})
}

func TestAuthorizeIdempotent(t *testing.T) {
	e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
	req := baseRequest()

	first, err := e.Authorize(context.Background(), req)
	require.NoError(t, err)

	second, err := e.Authorize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestValidateTriagePayload(t *testing.T) {
	decision := &Decision{AgentID: 2, ModelID: 10, TierID: 100}

	t.Run("empty payload allowed", func(t *testing.T) {
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, &stubPatterns{connected: true})
		assert.NoError(t, e.ValidateTriagePayload(context.Background(), decision, ""))
	})

	t.Run("mismatch denies with expected rules", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `^triage-only$`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		err := e.ValidateTriagePayload(context.Background(), decision, "free text")
		require.Error(t, err)
		assert.Equal(t, services.ReasonPatternMismatch, services.GetReason(err))
	})

	t.Run("match allows", func(t *testing.T) {
		patterns := &stubPatterns{connected: true, patterns: []models.Pattern{
			{ID: 1, Rule: `triage`, Active: true},
		}}
		e := newTestEngine(defaultCatalog(), &stubEntitlements{enabled: true}, patterns)

		assert.NoError(t, e.ValidateTriagePayload(context.Background(), decision, "a triage question"))
	})
}
