package session

import "errors"

// ValidationError reports input rejected before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrBlankFields is returned by Login and SignUp when the email or password
// is empty or whitespace-only.
var ErrBlankFields = &ValidationError{Message: "Please fill in all fields"}

// ErrInFlight is returned by Login and SignUp while another login or sign-up
// is still waiting on the identity provider. The call is dropped and state is
// left unchanged.
var ErrInFlight = errors.New("authentication already in progress")

// Fallback messages used when the provider gives no reason.
const (
	MsgLoginFailed  = "Login failed"
	MsgSignUpFailed = "Sign up failed"
)

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
