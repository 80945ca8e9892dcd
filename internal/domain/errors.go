package domain

import (
	"errors"
	"fmt"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// TransportError represents a connection-level failure (dial, read, write).
// Fatal to the session: there is no automatic reconnect.
type TransportError struct {
	Op  string // Operation that failed (e.g., "dial", "read", "write")
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) IsRetriable() bool {
	return false
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError represents a malformed or uncorrelated frame.
// Fatal: once correlation is broken the session must be discarded.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "protocol error: " + e.Reason + ": " + e.Err.Error()
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) IsRetriable() bool {
	return false
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AuthError represents a rejected or malformed credentials handshake.
// Terminal for the session instance; the caller must construct a new one.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "authentication failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) IsRetriable() bool {
	return false
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError represents bad local input. Rejected before anything
// touches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// ExchangeError represents a well-formed error response from the exchange.
// The order was not placed or cancelled; the caller may retry.
type ExchangeError struct {
	Code    int
	Message string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error %d: %s", e.Code, e.Message)
}

func (e *ExchangeError) IsRetriable() bool {
	return true
}

// StoreError represents a persistence failure. When it follows a trade that
// already executed on the exchange it is downgraded to a warning.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) IsRetriable() bool {
	return false
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotConnected is returned when an operation requires an open transport.
	ErrNotConnected = errors.New("session not connected")

	// ErrNotAuthenticated is returned when a private call is attempted before
	// the credentials handshake. Rejected locally, no network round trip.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrSessionClosed is returned for calls against a closed session.
	ErrSessionClosed = errors.New("session closed")
)
