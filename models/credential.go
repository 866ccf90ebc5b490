package models

import "time"

// Credential represents an API key: the unit against which usage is metered
// and entitlements are resolved. The balance is a signed amount; debits are
// not clamped at zero, so a balance may go negative after a large call.
type Credential struct {
	ID         int64     `json:"id" db:"id"`
	IdentityID int64     `json:"identity_id" db:"identity_id"`
	KeyValue   string    `json:"-" db:"key_value"`
	Active     bool      `json:"active" db:"active"`
	Balance    float64   `json:"balance" db:"balance"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// HasCredit reports whether the credential may be admitted to authorization.
// This is the pre-call check only; the ledger debit later in the request is a
// separate operation and may still drive the balance negative.
func (c *Credential) HasCredit() bool {
	return c.Balance > 0
}
