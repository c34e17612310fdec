package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/myuni/internal/remote"
)

type ctxKey int

const claimsKey ctxKey = iota

const maxBody = 1 << 20

// Handler returns the HTTP API.
func (e *Emulator) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(e.requestLogger)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(e.requireAPIKey)

	mux.Post("/v1/accounts:signUp", e.handleSignUp)
	mux.Post("/v1/accounts:signInWithPassword", e.handleSignIn)

	mux.Route("/v1/collections/{collection}/documents", func(sr chi.Router) {
		sr.Get("/", e.handleList)
		sr.Get("/{id}", e.handleGet)

		sr.Group(func(w chi.Router) {
			w.Use(e.requireToken)
			w.Post("/", e.handleCreate)
			w.Put("/{id}", e.handlePut)
			w.Delete("/{id}", e.handleDelete)
		})
	})

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (e *Emulator) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           e.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("emulator listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	e.logger.Info("emulator stopped")
	return nil
}

func (e *Emulator) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req remote.CredentialsJSON
	if !decodeBody(w, r, &req) {
		return
	}
	uid, err := e.CreateAccount(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	e.logger.Info("account created", "uid", uid, "email", req.Email)
	e.writeAuthResponse(w, uid, req.Email)
}

func (e *Emulator) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req remote.CredentialsJSON
	if !decodeBody(w, r, &req) {
		return
	}
	uid, err := e.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	e.writeAuthResponse(w, uid, req.Email)
}

func (e *Emulator) writeAuthResponse(w http.ResponseWriter, uid, email string) {
	tok, _, err := e.MintToken(uid, email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.AuthResponseJSON{
		LocalID:   uid,
		Email:     email,
		IDToken:   tok,
		ExpiresIn: strconv.Itoa(int(e.tokenTTL / time.Second)),
	})
}

func (e *Emulator) handleList(w http.ResponseWriter, r *http.Request) {
	docs := e.Documents(chi.URLParam(r, "collection"))
	writeJSON(w, http.StatusOK, remote.DocumentListJSON{Documents: docs})
}

func (e *Emulator) handleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := e.Document(chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, &Error{Status: http.StatusNotFound, Message: MsgNotFound})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (e *Emulator) handleCreate(w http.ResponseWriter, r *http.Request) {
	e.write(w, r, "", http.StatusCreated)
}

func (e *Emulator) handlePut(w http.ResponseWriter, r *http.Request) {
	e.write(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (e *Emulator) write(w http.ResponseWriter, r *http.Request, id string, status int) {
	var body remote.DocumentJSON
	if !decodeBody(w, r, &body) {
		return
	}
	coll := chi.URLParam(r, "collection")
	d, err := e.PutDocument(coll, id, body.Fields, body.Transforms)
	if err != nil {
		writeError(w, err)
		return
	}
	if c, ok := r.Context().Value(claimsKey).(*Claims); ok {
		e.logger.Debug("document written", "name", d.Name, "uid", c.Subject)
	}
	writeJSON(w, status, d)
}

func (e *Emulator) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !e.DeleteDocument(chi.URLParam(r, "collection"), chi.URLParam(r, "id")) {
		writeError(w, &Error{Status: http.StatusNotFound, Message: MsgNotFound})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *Emulator) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.apiKey != "" && r.Method != http.MethodOptions && r.URL.Query().Get("key") != e.apiKey {
			writeError(w, &Error{Status: http.StatusForbidden, Message: MsgInvalidAPIKey})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (e *Emulator) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, &Error{Status: http.StatusUnauthorized, Message: MsgUnauthenticated})
			return
		}
		claims, err := e.VerifyToken(raw)
		if err != nil {
			e.logger.Debug("rejected token", "error", err)
			writeError(w, &Error{Status: http.StatusUnauthorized, Message: MsgUnauthenticated})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func (e *Emulator) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		e.logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(out); err != nil {
		writeError(w, &Error{Status: http.StatusBadRequest, Message: MsgInvalidArgument})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	writeJSON(w, pe.Status, remote.ErrorJSON{
		Error: remote.ErrorDetailJSON{Code: pe.Status, Message: pe.Message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
