package session

import "strings"

// Phase is the coarse state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAuthenticated
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session.
//
// IsLoading and IsAuthenticated are never both true. An empty ErrorMessage
// means no error.
type State struct {
	Email           string `json:"email"`
	Password        string `json:"-"`
	IsLoading       bool   `json:"is_loading"`
	ErrorMessage    string `json:"error_message,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// Phase derives the coarse phase from s.
func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.IsAuthenticated:
		return PhaseAuthenticated
	case s.ErrorMessage != "":
		return PhaseError
	default:
		return PhaseIdle
	}
}

func (s State) hasBlankField() bool {
	return strings.TrimSpace(s.Email) == "" || strings.TrimSpace(s.Password) == ""
}
