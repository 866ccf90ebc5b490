package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/utils"
)

const dateLayout = "2006-01-02"

// UsageStatsHandler serves the per-day usage projection with optional
// from/to/identity_id/agent_id/model_id filters
func UsageStatsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseUsageFilter(r)
		if err != nil {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields, err.Error(), nil)
			return
		}

		stats, err := deps.Ledger.Stats(r.Context(), filter)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, utils.SuccessResponse{Data: stats})
	}
}

// AcknowledgeNotificationHandler marks a credit notification as handled
func AcknowledgeNotificationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields, "Invalid notification id", nil)
			return
		}

		if err := deps.Ledger.AcknowledgeNotification(r.Context(), id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, utils.SuccessResponse{Message: "notification acknowledged"})
	}
}

func parseUsageFilter(r *http.Request) (models.UsageFilter, error) {
	var filter models.UsageFilter
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return filter, fmt.Errorf("invalid 'from' date, expected %s", dateLayout)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return filter, fmt.Errorf("invalid 'to' date, expected %s", dateLayout)
		}
		filter.To = &t
	}

	for param, dst := range map[string]**int64{
		"identity_id": &filter.IdentityID,
		"agent_id":    &filter.AgentID,
		"model_id":    &filter.ModelID,
	} {
		if v := q.Get(param); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return filter, fmt.Errorf("invalid '%s', expected an integer", param)
			}
			*dst = &id
		}
	}

	return filter, nil
}
