package webos

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrClosed is returned when a request is made on a closed session.
	ErrClosed = errors.New("webos: session closed")

	// ErrPairingRejected is returned when the TV answers the register
	// handshake with an error (user declined the prompt, bad key).
	ErrPairingRejected = errors.New("webos: pairing rejected")

	// ErrNoKey is returned when registration succeeds without a client key.
	ErrNoKey = errors.New("webos: registered without client key")
)

// APIError is an error answer to an SSAP request.
type APIError struct {
	// URI is the request that failed.
	URI string

	// Message is the error text from the TV.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("webos [%s]: %s", e.URI, e.Message)
}

// DialError wraps a failure to reach or register with the TV.
type DialError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	return fmt.Sprintf("webos: dial %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	return e.Err
}
