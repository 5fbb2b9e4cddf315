package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrUnauthorized marks a 401/403 response: the token is expired, invalid,
// or insufficient. Callers must treat the session as dead.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a business rejection from the backend (insufficient balance,
// invalid meter, duplicate email, ...). Its message is surfaced to the user
// verbatim and never destroys client state.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// ConnectionError wraps a transport-level failure. Session and pending
// payment state must be preserved when one is seen.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err represents a connectivity failure rather
// than a backend verdict.
func IsNetwork(err error) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsBusiness reports whether err is a backend business rejection.
func IsBusiness(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
