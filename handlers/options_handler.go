package handlers

import (
	"net/http"

	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/middleware"
	"github.com/upb/agent-gateway/utils"
)

// OptionsHandler returns the agents, tiers and models available to the
// authenticated client
func OptionsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity := middleware.GetIdentityFromContext(ctx)
		cred := middleware.GetCredentialFromContext(ctx)
		if identity == nil || cred == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		opts, err := deps.Options.List(ctx, identity.ID, cred.Balance)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		respondJSON(w, http.StatusOK, opts)
	}
}
