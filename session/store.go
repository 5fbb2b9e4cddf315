// Package session owns the client's authentication state: the persisted
// token record and the in-memory session lifecycle around it.
package session

import (
	"time"

	"github.com/Pery99/billpay/backend"
)

// Record is everything persisted for one authenticated session. All fields
// live and die together: expiry or logout invalidates the whole record.
type Record struct {
	Token        string        `json:"token"`
	ExpiresAt    time.Time     `json:"expires_at"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	Role         string        `json:"role,omitempty"`
	User         *backend.User `json:"user,omitempty"`
}

// Store persists the auth record. Implementations never report absence as
// an error: a missing or expired record is the (Record{}, false) return.
type Store interface {
	// Put writes the record, replacing any previous one.
	Put(rec Record) error
	// Get returns the current record. A record whose expiry has passed is
	// treated as absent and cleared from storage as a side effect.
	Get() (Record, bool)
	// Clear removes the record. Clearing an empty store is a no-op.
	Clear() error
}
