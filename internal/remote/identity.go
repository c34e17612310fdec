package remote

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// IdentityClient authenticates against the identity provider and holds the
// signed-in principal.
//
// Thread-safety: IdentityClient is safe for concurrent use.
type IdentityClient struct {
	baseURL string
	cfg     clientConfig

	mu      sync.Mutex
	current *Principal
}

// NewIdentityClient creates a client for the identity provider at baseURL.
func NewIdentityClient(baseURL string, opts ...Option) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		cfg:     newClientConfig(opts),
	}
}

// SignIn verifies email and password. On success the principal becomes the
// current principal.
func (c *IdentityClient) SignIn(ctx context.Context, email, password string) (Principal, error) {
	return c.authenticate(ctx, "/v1/accounts:signInWithPassword", email, password)
}

// SignUp creates an account for email and password. On success the new
// principal becomes the current principal.
func (c *IdentityClient) SignUp(ctx context.Context, email, password string) (Principal, error) {
	return c.authenticate(ctx, "/v1/accounts:signUp", email, password)
}

// SignOut forgets the current principal. It never fails.
func (c *IdentityClient) SignOut(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// Current returns the signed-in principal.
func (c *IdentityClient) Current() (Principal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Principal{}, false
	}
	return *c.current, true
}

// Restore makes p the current principal without contacting the provider.
// Used to resume a persisted session.
func (c *IdentityClient) Restore(p Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &p
}

// Token implements oauth2.TokenSource with the current principal's ID token.
func (c *IdentityClient) Token() (*oauth2.Token, error) {
	p, ok := c.Current()
	if !ok {
		return nil, ErrSignedOut
	}
	if p.Expired(c.cfg.now()) {
		return nil, ErrTokenExpired
	}
	return &oauth2.Token{
		AccessToken: p.IDToken,
		TokenType:   "Bearer",
		Expiry:      p.ExpiresAt,
	}, nil
}

func (c *IdentityClient) authenticate(ctx context.Context, path, email, password string) (Principal, error) {
	u, err := endpoint(c.baseURL, path, c.cfg.apiKey)
	if err != nil {
		return Principal{}, &AuthError{Err: err}
	}

	req := CredentialsJSON{Email: email, Password: password, ReturnSecureToken: true}
	var resp AuthResponseJSON
	_, err = doJSON(ctx, c.cfg.httpClient, http.MethodPost, u, req, &resp)
	if err != nil {
		if msg, ok := providerMessage(err); ok {
			return Principal{}, &AuthError{Message: msg, Err: err}
		}
		return Principal{}, &TransportError{Op: "authenticate", Err: err}
	}

	if resp.LocalID == "" {
		return Principal{}, &AuthError{Message: "No user"}
	}

	p := Principal{
		ID:        resp.LocalID,
		Email:     resp.Email,
		IDToken:   resp.IDToken,
		ExpiresAt: tokenExpiry(resp.IDToken, resp.ExpiresIn, c.cfg.now()),
	}
	if p.Email == "" {
		p.Email = email
	}

	c.mu.Lock()
	c.current = &p
	c.mu.Unlock()

	return p, nil
}
