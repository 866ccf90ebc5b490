package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/utils"
	"go.uber.org/zap"
)

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// HandleServiceError maps domain errors to HTTP responses. Denials keep
// their reason code and details; internal faults are logged and answered
// with a generic message.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	reason := services.GetReason(err)
	details := services.GetDetails(err)

	switch {
	case services.IsNotFoundError(err):
		_ = utils.WriteNotFound(w, err.Error())

	case services.IsBadRequestError(err):
		_ = utils.WriteBadRequest(w, reason, err.Error(), details)

	case services.IsUnauthorizedError(err):
		_ = utils.WriteUnauthorized(w, err.Error())

	case services.IsForbiddenError(err):
		_ = utils.WriteForbidden(w, reason, err.Error())

	default:
		logger.Error("internal server error", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, services.ReasonMissingFields, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	_ = utils.WriteBadRequest(w, services.ReasonMissingFields, err.Error(), nil)
}
