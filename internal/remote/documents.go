package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/roach88/myuni/internal/event"
)

// Default collection names.
const (
	DefaultEventsCollection = "events"
	DefaultUsersCollection  = "users"
)

// DocumentClient reads event documents and writes user profiles.
//
// Thread-safety: DocumentClient is safe for concurrent use.
type DocumentClient struct {
	baseURL string
	apiKey  string

	eventsCollection string
	usersCollection  string

	public *http.Client // unauthenticated reads
	authed *http.Client // bearer-token writes
}

// NewDocumentClient creates a client for the document store at baseURL.
func NewDocumentClient(baseURL string, opts ...Option) *DocumentClient {
	cfg := newClientConfig(opts)
	c := &DocumentClient{
		baseURL:          baseURL,
		apiKey:           cfg.apiKey,
		eventsCollection: cfg.eventsCollection,
		usersCollection:  cfg.usersCollection,
		public:           cfg.httpClient,
		authed:           cfg.httpClient,
	}
	if cfg.tokenSource != nil {
		hc := *cfg.httpClient
		hc.Transport = &oauth2.Transport{Source: cfg.tokenSource, Base: cfg.httpClient.Transport}
		c.authed = &hc
	}
	return c
}

// FetchAll returns every document in the event collection as a full
// snapshot. The returned slice is never nil on success.
func (c *DocumentClient) FetchAll(ctx context.Context) ([]event.Document, error) {
	const op = "fetch events"

	u, err := endpoint(c.baseURL, collectionPath(c.eventsCollection), c.apiKey)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	var list DocumentListJSON
	status, err := doJSON(ctx, c.public, http.MethodGet, u, nil, &list)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: status, Err: err}
	}

	docs := make([]event.Document, 0, len(list.Documents))
	for _, d := range list.Documents {
		docs = append(docs, event.Document(d.Fields))
	}
	return docs, nil
}

// CreateProfile writes the user profile document {email, createdAt} keyed
// by principalID. createdAt is set by the server clock.
func (c *DocumentClient) CreateProfile(ctx context.Context, principalID, email string) error {
	const op = "create profile"

	if principalID == "" {
		return &TransportError{Op: op, Err: errors.New("empty principal id")}
	}

	u, err := endpoint(c.baseURL, documentPath(c.usersCollection, principalID), c.apiKey)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	body := DocumentJSON{
		Fields:     map[string]any{"email": email},
		Transforms: map[string]string{"createdAt": TransformRequestTime},
	}
	status, err := doJSON(ctx, c.authed, http.MethodPut, u, body, nil)
	if err != nil {
		return &TransportError{Op: op, StatusCode: status, Err: err}
	}
	return nil
}

func collectionPath(collection string) string {
	return "/v1/collections/" + url.PathEscape(collection) + "/documents"
}

func documentPath(collection, id string) string {
	return collectionPath(collection) + "/" + url.PathEscape(id)
}
