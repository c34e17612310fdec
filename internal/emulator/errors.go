package emulator

// Provider error messages, as returned in error.message.
const (
	MsgEmailExists      = "EMAIL_EXISTS"
	MsgEmailNotFound    = "EMAIL_NOT_FOUND"
	MsgInvalidPassword  = "INVALID_PASSWORD"
	MsgWeakPassword     = "WEAK_PASSWORD : Password should be at least 6 characters"
	MsgInvalidEmail     = "INVALID_EMAIL"
	MsgMissingPassword  = "MISSING_PASSWORD"
	MsgInvalidAPIKey    = "API_KEY_INVALID"
	MsgUnauthenticated  = "UNAUTHENTICATED"
	MsgNotFound         = "NOT_FOUND"
	MsgInvalidArgument  = "INVALID_ARGUMENT"
	MsgUnknownTransform = "UNKNOWN_TRANSFORM"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// Error is a provider error with its HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
