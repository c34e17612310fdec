package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/myuni/internal/remote"
	"github.com/roach88/myuni/internal/session"
	"github.com/roach88/myuni/internal/store"
)

// authOptions holds flags for login and signup.
type authOptions struct {
	*RootOptions
	Email    string
	Password string
}

// authView is the result of a successful login or signup.
type authView struct {
	Action      string    `json:"action"`
	Phase       string    `json:"phase"`
	Email       string    `json:"email"`
	PrincipalID string    `json:"principal_id"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

func (v authView) RenderText(w io.Writer) error {
	verb := "Logged in"
	if v.Action == "signup" {
		verb = "Signed up"
	}
	_, err := fmt.Fprintf(w, "%s as %s (%s)\n", verb, v.Email, v.PrincipalID)
	return err
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, "login", "Sign in with email and password", false)
}

// NewSignUpCommand creates the signup command.
func NewSignUpCommand(rootOpts *RootOptions) *cobra.Command {
	return newAuthCommand(rootOpts, "signup", "Create an account and sign in", true)
}

func newAuthCommand(rootOpts *RootOptions, use, short string, signUp bool) *cobra.Command {
	opts := &authOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

On success the session is saved to the local database and reused by later
commands until logout. A new account also gets a profile document.

Example:
  myuni ` + use + ` --email ada@example.edu --password secret1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(opts, cmd, use, signUp)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password")
	return cmd
}

func runAuth(opts *authOptions, cmd *cobra.Command, action string, signUp bool) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	sess := a.sessionCoordinator()
	defer sess.Close()

	sess.EditEmail(opts.Email)
	sess.EditPassword(opts.Password)

	if signUp {
		err = sess.SignUp(cmd.Context())
	} else {
		err = sess.Login(cmd.Context())
	}

	st := sess.State()
	if st.Phase() != session.PhaseAuthenticated {
		code := ErrCodeAuth
		switch {
		case session.IsValidationError(err):
			code = ErrCodeValidation
		case remote.IsTransportError(err):
			code = ErrCodeRemote
		}
		return NewExitError(ExitFailure, code, st.ErrorMessage)
	}

	p, ok := a.identity.Current()
	if !ok {
		return NewExitError(ExitFailure, ErrCodeAuth, "no principal after authentication")
	}
	err = a.store.SaveCredential(cmd.Context(), store.Credential{
		PrincipalID: p.ID,
		Email:       p.Email,
		IDToken:     p.IDToken,
		ExpiresAt:   p.ExpiresAt,
	})
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeStorage, "failed to save session", err)
	}

	return a.out.Success(authView{
		Action:      action,
		Phase:       st.Phase().String(),
		Email:       p.Email,
		PrincipalID: p.ID,
		ExpiresAt:   p.ExpiresAt,
	})
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.sessionCoordinator()
			defer sess.Close()
			sess.Logout(cmd.Context())

			if err := a.store.ClearCredential(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, ErrCodeStorage, "failed to clear session", err)
			}
			return a.out.Success("Logged out")
		},
	}
}

// whoamiView is the result of whoami.
type whoamiView struct {
	SignedIn    bool      `json:"signed_in"`
	Email       string    `json:"email,omitempty"`
	PrincipalID string    `json:"principal_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	Expired     bool      `json:"expired"`
}

func (v whoamiView) RenderText(w io.Writer) error {
	if !v.SignedIn {
		_, err := fmt.Fprintln(w, "Not signed in")
		return err
	}
	fmt.Fprintf(w, "Email:      %s\n", v.Email)
	fmt.Fprintf(w, "User ID:    %s\n", v.PrincipalID)
	switch {
	case v.ExpiresAt.IsZero():
		fmt.Fprintln(w, "Expires:    unknown")
	case v.Expired:
		fmt.Fprintf(w, "Expires:    %s (expired)\n", v.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "Expires:    %s\n", v.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return a.out.Success(a.whoami())
		},
	}
}

func (a *app) whoami() whoamiView {
	p, ok := a.identity.Current()
	if !ok {
		return whoamiView{}
	}
	return whoamiView{
		SignedIn:    true,
		Email:       p.Email,
		PrincipalID: p.ID,
		ExpiresAt:   p.ExpiresAt.UTC(),
		Expired:     p.Expired(a.now()),
	}
}
