package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/middleware"
	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/services/access"
	"github.com/upb/agent-gateway/services/ledger"
	"github.com/upb/agent-gateway/services/providers"
	"github.com/upb/agent-gateway/utils"
	"go.uber.org/zap"
)

// Defaults applied when the request omits metadata
const (
	DefaultAgentName      = "agent-chat"
	defaultSecuredModel   = "gpt-4.1-mini"
	defaultUnsecuredModel = "gpt-4o-mini"
	defaultSystemPrompt   = "You are a helpful assistant that answers questions clearly and concisely."
	defaultTemperature    = 0.7
	defaultMaxTokens      = 800
)

// QueryMetadata selects the agent, tier and model for a query
type QueryMetadata struct {
	Agent string          `json:"agent"`
	Tier  models.TierKind `json:"tier"`
	Model string          `json:"model"`
}

// QueryRequest is the body of POST /api/query
type QueryRequest struct {
	Prompt      string         `json:"prompt"`
	Action      string         `json:"action,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Metadata    *QueryMetadata `json:"metadata,omitempty"`
}

// QueryResponse is the body of a successful query
type QueryResponse struct {
	Answer   string          `json:"answer"`
	Model    string          `json:"model"`
	Usage    providers.Usage `json:"usage"`
	Cost     *ledger.Receipt `json:"cost,omitempty"`
	Metadata QueryMetadata   `json:"metadata"`
}

// fillDefaults applies the default agent, tier and tier-based model when the
// request leaves them out
func (r *QueryRequest) fillDefaults() {
	if r.Metadata == nil {
		r.Metadata = &QueryMetadata{
			Agent: DefaultAgentName,
			Tier:  models.TierSecured,
		}
	}
	if r.Metadata.Agent == "" {
		r.Metadata.Agent = DefaultAgentName
	}
	if r.Metadata.Tier == "" {
		r.Metadata.Tier = models.TierSecured
	}
	if r.Metadata.Model == "" {
		if r.Metadata.Tier == models.TierSecured {
			r.Metadata.Model = defaultSecuredModel
		} else {
			r.Metadata.Model = defaultUnsecuredModel
		}
	}
	if r.Temperature == 0 {
		r.Temperature = defaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = defaultMaxTokens
	}
}

// QueryHandler processes gateway queries: authorize, dispatch, meter
func QueryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := deps.Logger

		identity := middleware.GetIdentityFromContext(ctx)
		cred := middleware.GetCredentialFromContext(ctx)
		if identity == nil || cred == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields, "Invalid request body", nil)
			return
		}
		req.fillDefaults()

		decision, err := deps.AccessEngine.Authorize(ctx, access.Request{
			IdentityID: identity.ID,
			AgentName:  req.Metadata.Agent,
			TierKind:   req.Metadata.Tier,
			ModelName:  req.Metadata.Model,
			Payload:    req.Prompt,
		})
		if err != nil {
			if deps.Metrics != nil {
				deps.Metrics.ObserveDenial(services.GetReason(err))
			}
			HandleServiceError(w, err, logger)
			return
		}

		// The triage agent has its own action path behind the supervisor
		if req.Metadata.Agent == models.TriageAgentName {
			handleTriage(w, r, deps, decision, &req)
			return
		}

		if req.Prompt == "" {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields, "A prompt is required", nil)
			return
		}

		model, err := deps.Repos.Catalog.GetModelByID(ctx, decision.ModelID)
		if err != nil || model == nil {
			HandleServiceError(w, services.Internal("failed to load model", err), logger)
			return
		}

		systemPrompt := defaultSystemPrompt
		if sp, err := deps.Repos.Catalog.GetSystemPrompt(ctx, decision.AgentID, decision.TierID); err != nil {
			// Fall back to the default prompt rather than failing the request
			logger.Warn("failed to load system prompt", zap.Error(err))
		} else if sp != "" {
			systemPrompt = sp
		}

		provider, err := deps.ProviderRegistry.Get(model.Provider)
		if err != nil {
			logger.Error("provider not available",
				zap.String("provider", model.Provider),
				zap.String("model", model.Name))
			_ = utils.WriteBadGateway(w, fmt.Sprintf("Provider %q is not available", model.Provider))
			return
		}

		resp, err := provider.ChatCompletion(ctx, &providers.ChatRequest{
			Model:        model.Name,
			SystemPrompt: systemPrompt,
			Prompt:       req.Prompt,
			Temperature:  req.Temperature,
			MaxTokens:    req.MaxTokens,
			User:         fmt.Sprintf("%d", identity.ID),
		})
		if err != nil {
			logger.Error("provider call failed",
				zap.String("provider", model.Provider),
				zap.Error(err))
			_ = utils.WriteBadGateway(w, "Upstream provider error")
			return
		}

		agentID := decision.AgentID
		receipt, err := deps.Ledger.Record(ctx, cred.ID, &agentID, decision.ModelID,
			resp.Usage.InputTokens, resp.Usage.OutputTokens)
		if err != nil {
			HandleServiceError(w, err, logger)
			return
		}

		respondJSON(w, http.StatusOK, QueryResponse{
			Answer: resp.Answer,
			Model:  resp.Model,
			Usage:  resp.Usage,
			Cost:   receipt,
			Metadata: QueryMetadata{
				Agent: req.Metadata.Agent,
				Tier:  req.Metadata.Tier,
				Model: req.Metadata.Model,
			},
		})
	}
}
