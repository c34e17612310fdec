package emulator

import (
	"log/slog"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/myuni/internal/remote"
)

// DefaultTokenTTL is the lifetime of minted ID tokens.
const DefaultTokenTTL = time.Hour

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Emulator) {
		e.logger = l
	}
}

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option {
	return func(e *Emulator) {
		e.now = now
	}
}

// WithAPIKey requires every request to carry ?key=k.
func WithAPIKey(k string) Option {
	return func(e *Emulator) {
		e.apiKey = k
	}
}

// WithTokenTTL sets the lifetime of minted ID tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(e *Emulator) {
		e.tokenTTL = d
	}
}

// WithIDGenerator overrides how user and document ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(e *Emulator) {
		e.newID = gen
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(e *Emulator) {
		e.bcryptCost = cost
	}
}

type account struct {
	id           string
	email        string
	passwordHash []byte
}

type document struct {
	id      string
	fields  map[string]any
	created time.Time
	updated time.Time
}

type collection struct {
	order []string
	docs  map[string]*document
}

// Emulator holds the in-memory accounts and document collections.
//
// Thread-safety: all methods are safe for concurrent use.
type Emulator struct {
	secret     []byte
	apiKey     string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger

	mu          sync.RWMutex
	accounts    map[string]*account // by lower-cased email
	collections map[string]*collection
}

// New creates an empty Emulator that signs ID tokens with secret.
func New(secret string, opts ...Option) *Emulator {
	e := &Emulator{
		secret:      []byte(secret),
		tokenTTL:    DefaultTokenTTL,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      slog.Default(),
		accounts:    make(map[string]*account),
		collections: make(map[string]*collection),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateAccount registers email/password and returns the new user id.
func (e *Emulator) CreateAccount(email, password string) (string, error) {
	return e.createAccount("", email, password)
}

func (e *Emulator) createAccount(id, email, password string) (string, error) {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgInvalidEmail}
	}
	if password == "" {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgMissingPassword}
	}
	if len(password) < MinPasswordLength {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgWeakPassword}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.bcryptCost)
	if err != nil {
		return "", &Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}

	key := strings.ToLower(email)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.accounts[key]; ok {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgEmailExists}
	}
	if id == "" {
		id = e.newID()
	}
	e.accounts[key] = &account{id: id, email: email, passwordHash: hash}
	return id, nil
}

// Authenticate checks email/password and returns the matching user id.
func (e *Emulator) Authenticate(email, password string) (string, error) {
	e.mu.RLock()
	acct, ok := e.accounts[strings.ToLower(email)]
	e.mu.RUnlock()

	if !ok {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgEmailNotFound}
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return "", &Error{Status: http.StatusBadRequest, Message: MsgInvalidPassword}
	}
	return acct.id, nil
}

// PutDocument creates or replaces collection/id. Transforms are applied
// after fields; a REQUEST_TIME transform sets the field to the server clock.
func (e *Emulator) PutDocument(coll, id string, fields map[string]any, transforms map[string]string) (remote.DocumentJSON, error) {
	now := e.now().UTC()

	merged := make(map[string]any, len(fields)+len(transforms))
	for k, v := range fields {
		merged[k] = v
	}
	for field, t := range transforms {
		switch t {
		case remote.TransformRequestTime:
			merged[field] = now.Format(time.RFC3339Nano)
		default:
			return remote.DocumentJSON{}, &Error{Status: http.StatusBadRequest, Message: MsgUnknownTransform}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.collectionLocked(coll)
	if id == "" {
		id = e.newID()
	}
	d, ok := c.docs[id]
	if !ok {
		d = &document{id: id, created: now}
		c.docs[id] = d
		c.order = append(c.order, id)
	}
	d.fields = merged
	d.updated = now
	return toJSON(coll, d), nil
}

// Document returns collection/id.
func (e *Emulator) Document(coll, id string) (remote.DocumentJSON, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.collections[coll]
	if !ok {
		return remote.DocumentJSON{}, false
	}
	d, ok := c.docs[id]
	if !ok {
		return remote.DocumentJSON{}, false
	}
	return toJSON(coll, d), true
}

// Documents returns every document in collection in insertion order. An
// unknown collection is empty.
func (e *Emulator) Documents(coll string) []remote.DocumentJSON {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := []remote.DocumentJSON{}
	c, ok := e.collections[coll]
	if !ok {
		return out
	}
	for _, id := range c.order {
		out = append(out, toJSON(coll, c.docs[id]))
	}
	return out
}

// DeleteDocument removes collection/id and reports whether it existed.
func (e *Emulator) DeleteDocument(coll, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.collections[coll]
	if !ok {
		return false
	}
	if _, ok := c.docs[id]; !ok {
		return false
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	return true
}

func (e *Emulator) collectionLocked(name string) *collection {
	c, ok := e.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]*document)}
		e.collections[name] = c
	}
	return c
}

func toJSON(coll string, d *document) remote.DocumentJSON {
	fields := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		fields[k] = v
	}
	return remote.DocumentJSON{
		Name:       coll + "/" + d.id,
		Fields:     fields,
		CreateTime: d.created.Format(time.RFC3339Nano),
		UpdateTime: d.updated.Format(time.RFC3339Nano),
	}
}
