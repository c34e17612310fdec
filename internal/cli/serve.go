package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/myuni/internal/emulator"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
	Seed   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local remote-service emulator",
		Long: `Run an in-memory document store and identity provider that speak the
same protocol as the remote service, for development and demos.

Example:
  myuni serve --seed ./seed.yaml
  myuni serve --listen 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides emulator.listen)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "seed YAML file (overrides emulator.seed)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	listen := opts.Listen
	if listen == "" {
		listen = cfg.Emulator.Listen
	}
	seedPath := opts.Seed
	if seedPath == "" {
		seedPath = cfg.Emulator.Seed
	}

	emuOpts := []emulator.Option{
		emulator.WithLogger(logger),
		emulator.WithAPIKey(cfg.Remote.APIKey),
	}
	if opts.Now != nil {
		emuOpts = append(emuOpts, emulator.WithClock(opts.Now))
	}
	emu := emulator.New(cfg.Emulator.JWTSecret, emuOpts...)

	if seedPath != "" {
		seed, err := emulator.LoadSeed(seedPath)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeServe, "failed to load seed", err)
		}
		if err := emu.Apply(seed); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeServe, "failed to apply seed", err)
		}
		logger.Info("seed applied", "path", seedPath, "accounts", len(seed.Accounts), "collections", len(seed.Collections))
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	if err := emu.Serve(ctx, listen); err != nil {
		return WrapExitError(ExitFailure, ErrCodeServe, "emulator failed", err)
	}
	return nil
}
