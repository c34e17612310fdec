package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/myuni/internal/config"
	"github.com/roach88/myuni/internal/eventsync"
	"github.com/roach88/myuni/internal/remote"
	"github.com/roach88/myuni/internal/session"
	"github.com/roach88/myuni/internal/store"
)

// app is the wiring shared by commands: config, logger, local store and
// remote clients.
type app struct {
	opts     *RootOptions
	cfg      config.Config
	logger   *slog.Logger
	out      *OutputFormatter
	store    *store.Store
	identity *remote.IdentityClient
	docs     *remote.DocumentClient
}

// loadConfig reads config and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

func newLogger(opts *RootOptions, cfg config.Config, w io.Writer) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openApp loads config, opens the database and builds the remote clients.
// A persisted credential is restored into the identity client.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStorage, "failed to open database", err)
	}

	clientOpts := []remote.Option{
		remote.WithAPIKey(cfg.Remote.APIKey),
		remote.WithTimeout(cfg.Remote.Timeout),
		remote.WithCollections(cfg.Remote.EventsCollection, cfg.Remote.UsersCollection),
	}
	if opts.Now != nil {
		clientOpts = append(clientOpts, remote.WithClock(opts.Now))
	}
	identity := remote.NewIdentityClient(cfg.Remote.BaseURL, clientOpts...)
	docs := remote.NewDocumentClient(cfg.Remote.BaseURL, append(clientOpts, remote.WithTokenSource(identity))...)

	a := &app{
		opts:     opts,
		cfg:      cfg,
		logger:   logger,
		out:      newFormatter(opts, cmd),
		store:    st,
		identity: identity,
		docs:     docs,
	}

	cred, found, err := st.LoadCredential(cmd.Context())
	if err != nil {
		a.close()
		return nil, WrapExitError(ExitCommandError, ErrCodeStorage, "failed to load credentials", err)
	}
	if found {
		identity.Restore(remote.Principal{
			ID:        cred.PrincipalID,
			Email:     cred.Email,
			IDToken:   cred.IDToken,
			ExpiresAt: cred.ExpiresAt,
		})
		logger.Debug("restored session", "principal_id", cred.PrincipalID)
	}
	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

func (a *app) now() time.Time {
	if a.opts.Now != nil {
		return a.opts.Now()
	}
	return time.Now()
}

func (a *app) syncCoordinator() *eventsync.Coordinator {
	opts := []eventsync.Option{eventsync.WithLogger(a.logger)}
	if a.opts.RunIDs != nil {
		opts = append(opts, eventsync.WithRunIDGenerator(a.opts.RunIDs))
	}
	if a.opts.Now != nil {
		opts = append(opts, eventsync.WithClock(a.opts.Now))
	}
	return eventsync.New(a.docs, a.store, opts...)
}

func (a *app) sessionCoordinator() *session.Coordinator {
	return session.New(a.identity, a.docs, session.WithLogger(a.logger))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when
// parent is done.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
