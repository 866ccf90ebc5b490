package middleware

import (
	"context"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/services/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"

	// IdentityKey is the context key for the API-key authenticated identity
	IdentityKey contextKey = "identity"

	// CredentialKey is the context key for the authenticated credential
	CredentialKey contextKey = "credential"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetIdentityFromContext retrieves the authenticated identity from context
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

// WithIdentity adds an identity to the context
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetCredentialFromContext retrieves the authenticated credential from context
func GetCredentialFromContext(ctx context.Context) *models.Credential {
	if val := ctx.Value(CredentialKey); val != nil {
		if cred, ok := val.(*models.Credential); ok {
			return cred
		}
	}
	return nil
}

// WithCredential adds a credential to the context
func WithCredential(ctx context.Context, cred *models.Credential) context.Context {
	return context.WithValue(ctx, CredentialKey, cred)
}
