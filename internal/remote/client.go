package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single remote request.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Option configures a client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient  *http.Client
	apiKey      string
	timeout     time.Duration
	now         func() time.Time
	tokenSource oauth2.TokenSource

	eventsCollection string
	usersCollection  string
}

// WithHTTPClient sets the base HTTP client. Its Transport is reused for
// authenticated requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithAPIKey sets the project API key sent as the "key" query parameter.
func WithAPIKey(key string) Option {
	return func(cfg *clientConfig) {
		cfg.apiKey = key
	}
}

// WithTimeout sets the per-request timeout. Default: DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = d
	}
}

// WithCollections overrides the event and user collection names used by
// DocumentClient. Empty values keep the defaults.
func WithCollections(events, users string) Option {
	return func(cfg *clientConfig) {
		if events != "" {
			cfg.eventsCollection = events
		}
		if users != "" {
			cfg.usersCollection = users
		}
	}
}

// WithTokenSource authenticates DocumentClient writes with tokens from ts,
// typically an *IdentityClient.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(cfg *clientConfig) {
		cfg.tokenSource = ts
	}
}

// WithClock overrides the clock used for token expiry (for testing).
func WithClock(now func() time.Time) Option {
	return func(cfg *clientConfig) {
		cfg.now = now
	}
}

func newClientConfig(opts []Option) clientConfig {
	cfg := clientConfig{
		timeout:          DefaultTimeout,
		now:              time.Now,
		eventsCollection: DefaultEventsCollection,
		usersCollection:  DefaultUsersCollection,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{}
	}
	// Copy so the caller's client is never mutated.
	hc := *cfg.httpClient
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}
	cfg.httpClient = &hc
	return cfg
}

// endpoint joins base and path and appends the API key.
func endpoint(base, path, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if apiKey != "" {
		q := u.Query()
		q.Set("key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// statusError is the cause recorded for non-2xx responses.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// doJSON sends body (if non-nil) as JSON and decodes a 2xx response into
// out (if non-nil). Non-2xx responses return a *statusError carrying the
// provider message from the error body, if any.
func doJSON(ctx context.Context, hc *http.Client, method, rawURL string, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &statusError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// readErrorMessage extracts error.message from a provider error body.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body ErrorJSON
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error.Message
}

// providerMessage returns the provider message from a doJSON error.
func providerMessage(err error) (string, bool) {
	var se *statusError
	if errors.As(err, &se) {
		return se.Message, true
	}
	return "", false
}
