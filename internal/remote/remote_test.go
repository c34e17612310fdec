package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/myuni/internal/event"
)

// fakeService is a minimal in-test implementation of both remote APIs.
type fakeService struct {
	mu        sync.Mutex
	documents []DocumentJSON
	failReads int // status to return from reads, 0 = ok
	profiles  map[string]DocumentJSON
	authHdrs  []string
	keys      []string
	accounts  map[string]string // email -> password
	token     string
}

func newFakeService() *fakeService {
	return &fakeService{
		profiles: make(map[string]DocumentJSON),
		accounts: make(map[string]string),
		token:    "opaque-token",
	}
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/collections/events/documents", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.keys = append(f.keys, r.URL.Query().Get("key"))
		if f.failReads != 0 {
			writeTestError(w, f.failReads, "UNAVAILABLE")
			return
		}
		_ = json.NewEncoder(w).Encode(DocumentListJSON{Documents: f.documents})
	})
	mux.HandleFunc("PUT /v1/collections/users/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHdrs = append(f.authHdrs, r.Header.Get("Authorization"))
		var doc DocumentJSON
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeTestError(w, http.StatusBadRequest, "INVALID_ARGUMENT")
			return
		}
		f.profiles[r.PathValue("id")] = doc
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("POST /v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req CredentialsJSON
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, exists := f.accounts[req.Email]; exists {
			writeTestError(w, http.StatusBadRequest, "EMAIL_EXISTS")
			return
		}
		f.accounts[req.Email] = req.Password
		_ = json.NewEncoder(w).Encode(AuthResponseJSON{
			LocalID: "uid-" + req.Email, Email: req.Email, IDToken: f.token, ExpiresIn: "3600",
		})
	})
	mux.HandleFunc("POST /v1/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req CredentialsJSON
		_ = json.NewDecoder(r.Body).Decode(&req)
		pw, ok := f.accounts[req.Email]
		if !ok {
			writeTestError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
			return
		}
		if pw != req.Password {
			writeTestError(w, http.StatusBadRequest, "INVALID_PASSWORD")
			return
		}
		_ = json.NewEncoder(w).Encode(AuthResponseJSON{
			LocalID: "uid-" + req.Email, Email: req.Email, IDToken: f.token, ExpiresIn: "3600",
		})
	})
	return mux
}

func writeTestError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorJSON{Error: ErrorDetailJSON{Code: status, Message: msg}})
}

func startFake(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := newFakeService()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return f, srv
}

// DocumentClient tests

func TestFetchAll_ReturnsDocumentFields(t *testing.T) {
	f, srv := startFake(t)
	f.documents = []DocumentJSON{
		{Name: "events/a", Fields: map[string]any{"title": "Fair", "time": "10:00", "place": "Quad", "description": "Job fair"}},
		{Name: "events/b", Fields: map[string]any{}},
	}

	c := NewDocumentClient(srv.URL)
	docs, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "Fair", docs[0]["title"])
	assert.Equal(t, event.Event{Title: "Fair", Time: "10:00", Place: "Quad", Description: "Job fair"},
		event.FromDocument(docs[0]))
	assert.Equal(t, event.DefaultTitle, event.FromDocument(docs[1]).Title)
}

func TestFetchAll_EmptyCollection(t *testing.T) {
	_, srv := startFake(t)

	docs, err := NewDocumentClient(srv.URL).FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFetchAll_SendsAPIKey(t *testing.T) {
	f, srv := startFake(t)

	_, err := NewDocumentClient(srv.URL, WithAPIKey("k-123")).FetchAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"k-123"}, f.keys)
}

func TestFetchAll_ServerErrorIsTransportError(t *testing.T) {
	f, srv := startFake(t)
	f.failReads = http.StatusServiceUnavailable

	_, err := NewDocumentClient(srv.URL).FetchAll(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "fetch events", te.Op)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, err.Error(), "UNAVAILABLE")
}

func TestFetchAll_UnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewDocumentClient(url, WithTimeout(time.Second)).FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsAuthError(err))
}

func TestFetchAll_MalformedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewDocumentClient(srv.URL).FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestFetchAll_CustomCollection(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"documents":[]}`))
	}))
	defer srv.Close()

	_, err := NewDocumentClient(srv.URL, WithCollections("campus_events", "")).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v1/collections/campus_events/documents", gotPath)
}

func TestCreateProfile_SendsBearerAndServerTimestamp(t *testing.T) {
	f, srv := startFake(t)
	identity := NewIdentityClient(srv.URL)
	identity.Restore(Principal{ID: "u1", Email: "a@b.com", IDToken: "tok-u1"})

	docs := NewDocumentClient(srv.URL, WithTokenSource(identity))
	err := docs.CreateProfile(context.Background(), "u1", "a@b.com")
	require.NoError(t, err)

	require.Contains(t, f.profiles, "u1")
	profile := f.profiles["u1"]
	assert.Equal(t, "a@b.com", profile.Fields["email"])
	assert.Equal(t, TransformRequestTime, profile.Transforms["createdAt"])
	assert.Equal(t, []string{"Bearer tok-u1"}, f.authHdrs)
}

func TestCreateProfile_SignedOutFails(t *testing.T) {
	f, srv := startFake(t)
	identity := NewIdentityClient(srv.URL)

	docs := NewDocumentClient(srv.URL, WithTokenSource(identity))
	err := docs.CreateProfile(context.Background(), "u1", "a@b.com")
	require.Error(t, err)

	assert.True(t, IsTransportError(err))
	assert.True(t, errors.Is(err, ErrSignedOut))
	assert.Empty(t, f.profiles)
}

func TestCreateProfile_EmptyPrincipal(t *testing.T) {
	_, srv := startFake(t)

	err := NewDocumentClient(srv.URL).CreateProfile(context.Background(), "", "a@b.com")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

// IdentityClient tests

func TestSignUpThenSignIn(t *testing.T) {
	_, srv := startFake(t)
	c := NewIdentityClient(srv.URL)
	ctx := context.Background()

	p, err := c.SignUp(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-a@b.com", p.ID)
	assert.Equal(t, "a@b.com", p.Email)

	c.SignOut(ctx)
	_, ok := c.Current()
	assert.False(t, ok)

	p2, err := c.SignIn(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, p2.ID)

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, p2, cur)
}

func TestSignUp_ProviderMessageSurfaces(t *testing.T) {
	f, srv := startFake(t)
	f.accounts["a@b.com"] = "x"

	_, err := NewIdentityClient(srv.URL).SignUp(context.Background(), "a@b.com", "secret1")
	require.Error(t, err)

	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "EMAIL_EXISTS", ae.Message)
	assert.Equal(t, "EMAIL_EXISTS", AuthMessage(err))
}

func TestSignIn_WrongPassword(t *testing.T) {
	f, srv := startFake(t)
	f.accounts["a@b.com"] = "right"
	c := NewIdentityClient(srv.URL)

	_, err := c.SignIn(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "INVALID_PASSWORD", AuthMessage(err))

	_, ok := c.Current()
	assert.False(t, ok, "failed sign-in must not set a principal")
}

func TestSignIn_UnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewIdentityClient(url).SignIn(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.Equal(t, "", AuthMessage(err))
}

func TestSignIn_MissingLocalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"a@b.com"}`))
	}))
	defer srv.Close()

	_, err := NewIdentityClient(srv.URL).SignIn(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "No user", AuthMessage(err))
}

func TestSignIn_ExpiryFromJWT(t *testing.T) {
	f, srv := startFake(t)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	f.token = signed
	f.accounts["a@b.com"] = "pw"

	p, err := NewIdentityClient(srv.URL).SignIn(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.True(t, p.ExpiresAt.Equal(exp), "ExpiresAt = %v, want %v", p.ExpiresAt, exp)
}

func TestSignIn_ExpiryFallsBackToExpiresIn(t *testing.T) {
	f, srv := startFake(t)
	f.accounts["a@b.com"] = "pw"
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	p, err := NewIdentityClient(srv.URL, WithClock(func() time.Time { return now })).
		SignIn(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	assert.True(t, p.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestToken_SignedOut(t *testing.T) {
	c := NewIdentityClient("http://unused")

	_, err := c.Token()
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestToken_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewIdentityClient("http://unused", WithClock(func() time.Time { return now }))
	c.Restore(Principal{ID: "u1", IDToken: "tok", ExpiresAt: now.Add(-time.Minute)})

	_, err := c.Token()
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestToken_Valid(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewIdentityClient("http://unused", WithClock(func() time.Time { return now }))
	c.Restore(Principal{ID: "u1", IDToken: "tok", ExpiresAt: now.Add(time.Hour)})

	tok, err := c.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
}

func TestPrincipal_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, Principal{}.Expired(now), "unknown expiry never expires")
	assert.True(t, Principal{ExpiresAt: now}.Expired(now))
	assert.False(t, Principal{ExpiresAt: now.Add(time.Second)}.Expired(now))
}

func TestAuthError_Messages(t *testing.T) {
	assert.Equal(t, "auth: EMAIL_EXISTS", (&AuthError{Message: "EMAIL_EXISTS"}).Error())
	assert.Equal(t, "auth: rejected", (&AuthError{}).Error())
	assert.Contains(t, (&AuthError{Err: errors.New("boom")}).Error(), "boom")
}

func TestEndpoint(t *testing.T) {
	u, err := endpoint("http://host:1/", "/v1/accounts:signUp", "")
	require.NoError(t, err)
	assert.Equal(t, "http://host:1/v1/accounts:signUp", u)

	u, err = endpoint("http://host:1", "/v1/collections/events/documents", "a b")
	require.NoError(t, err)
	assert.Equal(t, "http://host:1/v1/collections/events/documents?key=a+b", u)
}
