package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatching(t *testing.T) {
	t.Run("same type and reason match", func(t *testing.T) {
		err := Forbidden(ReasonNoEntitlement, "not entitled to this agent and model")
		assert.ErrorIs(t, err, Forbidden(ReasonNoEntitlement, ""))
	})

	t.Run("different reason does not match", func(t *testing.T) {
		err := Forbidden(ReasonNoEntitlement, "not entitled")
		assert.NotErrorIs(t, err, Forbidden(ReasonNoConnection, ""))
	})

	t.Run("empty target reason matches any reason of the type", func(t *testing.T) {
		err := Forbidden(ReasonPatternMismatch, "payload matched no pattern")
		assert.ErrorIs(t, err, NewDomainError(ErrorTypeForbidden, "", "", nil))
	})

	t.Run("matching survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("authorize: %w", Forbidden(ReasonTierNotAllowed, "tier not allowed"))
		assert.True(t, IsForbiddenError(err))
		assert.Equal(t, ReasonTierNotAllowed, GetReason(err))
	})
}

func TestDomainErrorClassification(t *testing.T) {
	cause := errors.New("connection reset")

	assert.True(t, IsNotFoundError(NotFound("agent", "agent not found")))
	assert.True(t, IsForbiddenError(Forbidden(ReasonNoCredit, "no credit")))
	assert.True(t, IsBadRequestError(BadRequest(ReasonMissingFields, "prompt is required")))
	assert.True(t, IsUnauthorizedError(ErrInvalidCredentials))
	assert.True(t, IsInternalError(Internal("query failed", cause)))

	assert.False(t, IsNotFoundError(cause))
	assert.False(t, IsInternalError(nil))
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ReasonStorageError, err.Reason)
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNotFoundCarriesEntityDetail(t *testing.T) {
	err := NotFound("model", "model not found")

	details := GetDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "model", details["entity"])
}

func TestWithDetailAccumulates(t *testing.T) {
	err := Forbidden(ReasonPatternMismatch, "payload matched no pattern").
		WithDetail("expected_patterns", []string{`^foo`}).
		WithDetail("model", "gpt-4.1-mini")

	details := GetDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, "gpt-4.1-mini", details["model"])
}

func TestGetReasonOnPlainError(t *testing.T) {
	assert.Empty(t, GetReason(errors.New("plain")))
	assert.Nil(t, GetDetails(errors.New("plain")))
}
