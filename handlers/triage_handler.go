package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/middleware"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/services/access"
	"github.com/upb/agent-gateway/services/triage"
	"github.com/upb/agent-gateway/utils"
	"go.uber.org/zap"
)

// TriageStatusResponse is the body of a triage control action
type TriageStatusResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TriageQueryResponse is the body of a triage query action
type TriageQueryResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// handleTriage dispatches the triage agent's action path. Control actions go
// straight to the supervisor; the query action validates its payload against
// the configured patterns first. Triage calls are not metered because the
// triage process reports no token usage.
func handleTriage(w http.ResponseWriter, r *http.Request, deps *app.Dependencies, decision *access.Decision, req *QueryRequest) {
	ctx := r.Context()
	logger := deps.Logger

	action := strings.ToLower(req.Action)
	if action == "" {
		action = "info"
	}

	switch action {
	case "start":
		status, err := deps.Triage.Start(ctx)
		if err != nil {
			logger.Error("triage start failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, "Triage supervisor error")
			return
		}
		respondJSON(w, http.StatusOK, triageStatusBody(status))

	case "stop":
		status, err := deps.Triage.Stop(ctx)
		if err != nil {
			logger.Error("triage stop failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, "Triage supervisor error")
			return
		}
		respondJSON(w, http.StatusOK, triageStatusBody(status))

	case "info":
		status, err := deps.Triage.Info(ctx)
		if err != nil {
			logger.Error("triage info failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, "Triage supervisor error")
			return
		}
		respondJSON(w, http.StatusOK, triageStatusBody(status))

	case "query":
		if req.Prompt == "" {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields,
				"A prompt is required for a triage query", nil)
			return
		}

		if err := deps.AccessEngine.ValidateTriagePayload(ctx, decision, req.Prompt); err != nil {
			if deps.Metrics != nil {
				deps.Metrics.ObserveDenial(services.GetReason(err))
			}
			HandleServiceError(w, err, logger)
			return
		}

		identity := middleware.GetIdentityFromContext(ctx)
		qreq := &triage.QueryRequest{
			Prompt: req.Prompt,
			Model:  req.Metadata.Model,
		}
		if identity != nil {
			qreq.User = fmt.Sprintf("%d", identity.ID)
		}

		resp, err := deps.Triage.Query(ctx, qreq)
		if err != nil {
			logger.Error("triage query failed", zap.Error(err))
			_ = utils.WriteBadGateway(w, "Triage agent error")
			return
		}

		respondJSON(w, http.StatusOK, TriageQueryResponse{
			Status:  "success",
			Message: resp.Answer,
			Model:   resp.Model,
		})

	default:
		_ = utils.WriteBadRequest(w, services.ReasonMissingFields,
			fmt.Sprintf("unknown triage action %q", req.Action), nil)
	}
}

func triageStatusBody(status *triage.Status) TriageStatusResponse {
	s := "success"
	if status.Error != "" {
		s = "error"
	}
	return TriageStatusResponse{
		Status:  s,
		Running: status.Running,
		Message: status.Message,
		Uptime:  status.Uptime,
		Error:   status.Error,
	}
}
