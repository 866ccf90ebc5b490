package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeBadRequest   ErrorType = "bad_request"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// Machine-readable reason codes carried by denials. Every user-visible
// denial names one of these alongside a human-readable message.
const (
	ReasonNoEntitlement   = "no_entitlement"
	ReasonNoConnection    = "no_connection"
	ReasonNoCredit        = "no_credit"
	ReasonTierNotAllowed  = "tier_not_allowed"
	ReasonPatternMismatch = "pattern_mismatch"
	ReasonMissingFields   = "missing_fields"
	ReasonStorageError    = "storage_error"
)

// DomainError represents a structured error with a category, a reason code
// and optional details
type DomainError struct {
	Type    ErrorType
	Reason  string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is: two domain errors match when their type and
// reason match
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Reason == "" || e.Reason == t.Reason)
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, reason, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// NotFound builds a not-found error naming the missing entity
func NotFound(entity, message string) *DomainError {
	e := NewDomainError(ErrorTypeNotFound, entity, message, nil)
	return e.WithDetail("entity", entity)
}

// Forbidden builds a forbidden error with a reason code
func Forbidden(reason, message string) *DomainError {
	return NewDomainError(ErrorTypeForbidden, reason, message, nil)
}

// BadRequest builds a bad-request error with a reason code
func BadRequest(reason, message string) *DomainError {
	return NewDomainError(ErrorTypeBadRequest, reason, message, nil)
}

// Internal wraps a fault (storage loss, timeout) as an internal error
func Internal(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeInternal, ReasonStorageError, message, err)
}

// Common sentinel errors

var (
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthorized, "invalid_credentials", "invalid credentials", nil)
	ErrInvalidAPIKey      = NewDomainError(ErrorTypeUnauthorized, "invalid_api_key", "invalid or inactive API key", nil)
	ErrInvalidToken       = NewDomainError(ErrorTypeUnauthorized, "invalid_token", "invalid or expired token", nil)
	ErrNoCredit           = Forbidden(ReasonNoCredit, "no credit available for this API key")
	ErrNotificationNotFound = NotFound("notification", "credit notification not found or already acknowledged")
)

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsBadRequestError checks if an error is a bad request error
func IsBadRequestError(err error) bool {
	return hasType(err, ErrorTypeBadRequest)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetReason returns the reason code of a domain error, or empty string
func GetReason(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	return ""
}

// GetDetails returns the details map of a domain error, or nil
func GetDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
