package middleware

import (
	"net/http"

	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/utils"
	"go.uber.org/zap"
)

// APIKeyMiddleware authenticates gateway requests by API key and admits only
// credentials with remaining credit
type APIKeyMiddleware struct {
	credentials repositories.CredentialRepository
	identities  repositories.IdentityRepository
	header      string
	logger      *zap.Logger
}

// NewAPIKeyMiddleware creates a new APIKeyMiddleware
func NewAPIKeyMiddleware(
	credentials repositories.CredentialRepository,
	identities repositories.IdentityRepository,
	header string,
	logger *zap.Logger,
) *APIKeyMiddleware {
	if header == "" {
		header = "X-API-Key"
	}
	return &APIKeyMiddleware{
		credentials: credentials,
		identities:  identities,
		header:      header,
		logger:      logger,
	}
}

// RequireAPIKey resolves the API key to its credential and identity, rejects
// exhausted balances up front, and stores both on the request context.
//
// The credit check here is an admission pre-check only. The authoritative
// debit happens in the ledger transaction after the provider call; a balance
// can still go negative between the two.
func (m *APIKeyMiddleware) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		key := r.Header.Get(m.header)
		if key == "" {
			m.logger.Warn("missing API key",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing API key")
			return
		}

		cred, err := m.credentials.GetActiveByKey(ctx, key)
		if err != nil {
			m.logger.Error("failed to look up API key",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		if cred == nil {
			m.logger.Warn("unknown or inactive API key",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Invalid or inactive API key")
			return
		}

		if !cred.HasCredit() {
			m.logger.Warn("API key has no credit",
				zap.String("request_id", requestID),
				zap.Int64("credential_id", cred.ID),
				zap.Float64("balance", cred.Balance))
			_ = utils.WriteForbidden(w, services.ReasonNoCredit, "No credit available for this API key")
			return
		}

		identity, err := m.identities.GetByID(ctx, cred.IdentityID)
		if err != nil {
			m.logger.Error("failed to load identity for credential",
				zap.String("request_id", requestID),
				zap.Int64("credential_id", cred.ID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		if identity == nil || !identity.Active {
			m.logger.Warn("identity missing or inactive for credential",
				zap.String("request_id", requestID),
				zap.Int64("credential_id", cred.ID))
			_ = utils.WriteUnauthorized(w, "Invalid or inactive API key")
			return
		}

		ctx = WithCredential(ctx, cred)
		ctx = WithIdentity(ctx, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
