package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/myuni/internal/observe"
	"github.com/roach88/myuni/internal/remote"
)

// AuthSource verifies credentials with the identity provider.
// Implemented by *remote.IdentityClient.
type AuthSource interface {
	SignIn(ctx context.Context, email, password string) (remote.Principal, error)
	SignUp(ctx context.Context, email, password string) (remote.Principal, error)
	SignOut(ctx context.Context)
}

// ProfileWriter stores the profile of a newly registered user.
// Implemented by *remote.DocumentClient.
type ProfileWriter interface {
	CreateProfile(ctx context.Context, principalID, email string) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// Coordinator drives the session state machine.
//
// Thread-safety: all methods are safe for concurrent use.
type Coordinator struct {
	auth     AuthSource
	profiles ProfileWriter
	logger   *slog.Logger

	state *observe.Value[State]

	// mu serializes transitions. inFlight and gen are guarded by mu.
	mu       sync.Mutex
	inFlight bool
	gen      uint64
}

// New creates a Coordinator in the Idle phase.
func New(auth AuthSource, profiles ProfileWriter, opts ...Option) *Coordinator {
	c := &Coordinator{
		auth:     auth,
		profiles: profiles,
		logger:   slog.Default(),
		state:    observe.NewValue(State{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session snapshot.
func (c *Coordinator) State() State {
	return c.state.Get()
}

// Subscribe streams session snapshots, starting with the current one. The
// channel is closed when ctx is done or the Coordinator is closed.
func (c *Coordinator) Subscribe(ctx context.Context) <-chan State {
	return c.state.Subscribe(ctx)
}

// Close closes all subscription channels.
func (c *Coordinator) Close() {
	c.state.Close()
}

// EditEmail sets the email field and clears any error.
func (c *Coordinator) EditEmail(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Update(func(s State) State {
		s.Email = v
		s.ErrorMessage = ""
		return s
	})
}

// EditPassword sets the password field and clears any error.
func (c *Coordinator) EditPassword(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Update(func(s State) State {
		s.Password = v
		s.ErrorMessage = ""
		return s
	})
}

// Login verifies the entered credentials. It blocks until the identity
// provider answers and returns the error that put the session in the Error
// phase, if any.
func (c *Coordinator) Login(ctx context.Context) error {
	return c.authenticate(ctx, "login", c.auth.SignIn, MsgLoginFailed, nil)
}

// SignUp registers the entered credentials and, on success, writes the new
// user's profile before the session becomes authenticated.
//
// The profile write is awaited so callers exiting right after SignUp do not
// lose it, but its outcome never changes the session: a failure is logged and
// the session still becomes authenticated. The wait is bounded by ctx and the
// profile writer's own timeout.
func (c *Coordinator) SignUp(ctx context.Context) error {
	return c.authenticate(ctx, "signup", c.auth.SignUp, MsgSignUpFailed, c.writeProfile)
}

// Logout signs out with the identity provider and resets the session to a
// fresh Idle state. An authentication still in flight is discarded when it
// completes.
func (c *Coordinator) Logout(ctx context.Context) {
	c.auth.SignOut(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state.Set(State{})
	c.logger.Info("signed out")
}

type authFunc func(ctx context.Context, email, password string) (remote.Principal, error)

func (c *Coordinator) authenticate(
	ctx context.Context,
	op string,
	call authFunc,
	fallback string,
	onSuccess func(context.Context, remote.Principal, string),
) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrInFlight
	}
	cur := c.state.Get()
	if cur.hasBlankField() {
		c.state.Update(func(s State) State {
			s.ErrorMessage = ErrBlankFields.Message
			return s
		})
		c.mu.Unlock()
		return ErrBlankFields
	}
	c.inFlight = true
	gen := c.gen
	c.state.Update(func(s State) State {
		s.IsLoading = true
		s.IsAuthenticated = false
		s.ErrorMessage = ""
		return s
	})
	c.mu.Unlock()

	log := c.logger.With("op", op, "email", cur.Email)
	principal, err := call(ctx, cur.Email, cur.Password)
	if err == nil && onSuccess != nil {
		onSuccess(ctx, principal, cur.Email)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if gen != c.gen {
		log.Debug("discarding authentication result after logout")
		return err
	}

	if err != nil {
		msg := remote.AuthMessage(err)
		if msg == "" {
			msg = fallback
		}
		log.Warn("authentication failed", "error", err)
		c.state.Update(func(s State) State {
			s.IsLoading = false
			s.IsAuthenticated = false
			s.ErrorMessage = msg
			return s
		})
		return err
	}

	log.Info("authenticated", "principal_id", principal.ID)
	c.state.Update(func(s State) State {
		s.IsLoading = false
		s.IsAuthenticated = true
		s.ErrorMessage = ""
		return s
	})
	return nil
}

func (c *Coordinator) writeProfile(ctx context.Context, p remote.Principal, email string) {
	if err := c.profiles.CreateProfile(ctx, p.ID, email); err != nil {
		c.logger.Warn("profile write failed", "principal_id", p.ID, "error", err)
	}
}
