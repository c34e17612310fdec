package remote

import (
	"errors"
	"fmt"
)

// TransportError reports that the remote service was unreachable or
// answered with something other than a usable response.
type TransportError struct {
	// Op names the remote operation (e.g. "fetch events").
	Op string
	// StatusCode is the HTTP status, or 0 if no response was received.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError reports that the identity provider rejected a request.
// Message is the provider-supplied reason (e.g. "EMAIL_EXISTS") and may be
// empty.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	case e.Message != "":
		return "auth: " + e.Message
	case e.Err != nil:
		return fmt.Sprintf("auth: %v", e.Err)
	default:
		return "auth: rejected"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuthError reports whether err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// AuthMessage returns the provider message carried by err, or "" if err
// carries none.
func AuthMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

// ErrSignedOut is returned by IdentityClient.Token when nobody is signed in.
var ErrSignedOut = errors.New("not signed in")

// ErrTokenExpired is returned by IdentityClient.Token when the signed-in
// principal's ID token has expired.
var ErrTokenExpired = errors.New("id token expired")
