package models

import "time"

// Role identifiers as persisted in the roles table
const (
	RoleAdmin  int64 = 1
	RoleClient int64 = 2
)

// Identity represents a caller identity (a registered client or administrator).
// Deactivation is a soft flag; identities are never physically removed while
// referenced by usage history.
type Identity struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	RoleID       int64     `json:"role_id" db:"role_id"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the identity carries the administrator role
func (i *Identity) IsAdmin() bool {
	return i.RoleID == RoleAdmin
}
