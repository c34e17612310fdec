package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/myuni/internal/event"
	"github.com/roach88/myuni/internal/remote"
)

// FakeEventSource is a programmable remote event source.
//
// Gate, if set, blocks every FetchAll until a value is received or ctx is
// done, which lets tests hold a cycle in flight.
type FakeEventSource struct {
	mu    sync.Mutex
	docs  []event.Document
	err   error
	calls int

	Gate chan struct{}
}

// NewFakeEventSource creates a source that returns docs.
func NewFakeEventSource(docs ...event.Document) *FakeEventSource {
	return &FakeEventSource{docs: docs}
}

// SetDocuments replaces the snapshot returned by later fetches.
func (f *FakeEventSource) SetDocuments(docs ...event.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = docs
}

// SetError makes later fetches fail with err (nil to recover).
func (f *FakeEventSource) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns how many fetches have started.
func (f *FakeEventSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FetchAll implements eventsync.Source.
func (f *FakeEventSource) FetchAll(ctx context.Context) ([]event.Document, error) {
	f.mu.Lock()
	f.calls++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &remote.TransportError{Op: "fetch events", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]event.Document, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

// AuthCall records one call to FakeAuthSource.
type AuthCall struct {
	Method   string // "SignIn", "SignUp" or "SignOut"
	Email    string
	Password string
}

// FakeAuthSource is a programmable identity provider.
//
// By default every SignIn and SignUp succeeds with a principal whose ID is
// PrincipalID (or "uid-{email}" if empty).
type FakeAuthSource struct {
	mu    sync.Mutex
	calls []AuthCall

	PrincipalID string
	// Err, if set, is returned by SignIn and SignUp.
	Err error
	// Gate, if set, blocks SignIn and SignUp until a value is received.
	Gate chan struct{}
}

// Calls returns a copy of the recorded calls.
func (f *FakeAuthSource) Calls() []AuthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AuthCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// SignIn implements session.AuthSource.
func (f *FakeAuthSource) SignIn(ctx context.Context, email, password string) (remote.Principal, error) {
	return f.authenticate(ctx, "SignIn", email, password)
}

// SignUp implements session.AuthSource.
func (f *FakeAuthSource) SignUp(ctx context.Context, email, password string) (remote.Principal, error) {
	return f.authenticate(ctx, "SignUp", email, password)
}

// SignOut implements session.AuthSource.
func (f *FakeAuthSource) SignOut(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, AuthCall{Method: "SignOut"})
}

func (f *FakeAuthSource) authenticate(ctx context.Context, method, email, password string) (remote.Principal, error) {
	f.mu.Lock()
	f.calls = append(f.calls, AuthCall{Method: method, Email: email, Password: password})
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return remote.Principal{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return remote.Principal{}, f.Err
	}
	id := f.PrincipalID
	if id == "" {
		id = "uid-" + email
	}
	return remote.Principal{ID: id, Email: email, IDToken: "token-" + id}, nil
}

// ProfileCall records one call to FakeProfileWriter.
type ProfileCall struct {
	PrincipalID string
	Email       string
}

// FakeProfileWriter records profile writes and optionally fails them.
type FakeProfileWriter struct {
	mu    sync.Mutex
	calls []ProfileCall

	Err error
	// Gate, if set, blocks CreateProfile until a value is received or ctx is
	// done.
	Gate chan struct{}
}

// ErrProfileWrite is a ready-made failure for FakeProfileWriter.Err.
var ErrProfileWrite = errors.New("profile write failed")

// CreateProfile implements session.ProfileWriter.
func (f *FakeProfileWriter) CreateProfile(ctx context.Context, principalID, email string) error {
	f.mu.Lock()
	f.calls = append(f.calls, ProfileCall{PrincipalID: principalID, Email: email})
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Err
}

// Calls returns a copy of the recorded calls.
func (f *FakeProfileWriter) Calls() []ProfileCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ProfileCall, len(f.calls))
	copy(out, f.calls)
	return out
}
