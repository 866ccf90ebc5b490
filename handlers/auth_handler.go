package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/utils"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler verifies credentials and issues a JWT
func LoginHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, services.ReasonMissingFields, "Invalid request body", nil)
			return
		}

		if err := utils.ValidateStruct(req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		pair, err := deps.Auth.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, pair)
	}
}
