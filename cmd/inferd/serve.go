package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inferd/internal/api"
	"inferd/internal/auth"
	"inferd/internal/config"
	"inferd/internal/inference"
	"inferd/internal/journal"
	"inferd/internal/registry"
	"inferd/internal/slogutil"
	"inferd/internal/version"
)

type serveOptions struct {
	host    string
	port    int
	noReset bool
	engine  string
	delay   time.Duration
}

func newServeCmd(configPath *string) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the inferd HTTP API server.

Flags override the environment, which overrides the config file.

Examples:
  inferd serve
  inferd serve --port 8080 --no-reset
  inferd serve --engine openai --config /etc/inferd/inferd.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "Host to bind to (default from config: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Port to listen on (default from config: 5010)")
	cmd.Flags().BoolVar(&opts.noReset, "no-reset", false, "Disable POST /v1/reset")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "Inference engine: simulated, openai, anthropic")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "Simulated engine delay (e.g. 100ms)")
	return cmd
}

// applyServeFlags copies the flags the user actually set over cfg.
func applyServeFlags(cmd *cobra.Command, opts *serveOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("no-reset") && opts.noReset {
		cfg.Server.EnableReset = false
	}
	if flags.Changed("engine") {
		cfg.Inference.Engine = opts.engine
	}
	if flags.Changed("delay") {
		cfg.Inference.DelayMs = int(opts.delay.Milliseconds())
	}
}

// app is a fully wired server and the collaborators that outlive requests.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *api.Server
	registry *registry.Registry
	engine   inference.Engine
	verifier *auth.Verifier
	journal  *journal.Journal
}

// buildApp wires the registry, engine, verifier, journal and metrics into
// an api.Server. The caller must Close the result.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	engine, err := inference.New(cfg.Inference)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		// the environment's model name is picked up again on every reset
		registry: registry.New(func() string { return config.ResolveModelName(cfg.Model.Name) }),
		engine:   engine,
		verifier: auth.NewVerifier(cfg.Auth.APIKey, cfg.Auth.APIKeyHash),
	}

	if cfg.Journal.Enabled {
		a.journal, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
	}

	var metrics *api.MetricsCollector
	if cfg.Metrics.Enabled {
		metrics = api.NewMetricsCollector()
	}

	a.server = api.NewServer(cfg, api.Deps{
		Registry: a.registry,
		Engine:   engine,
		Verifier: a.verifier,
		Journal:  a.journal,
		Metrics:  metrics,
		Logger:   logger,
	})
	return a, nil
}

// Close releases the journal.
func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func (a *app) logBoot() {
	a.logger.Info("inferd starting",
		"version", version.Info(),
		"addr", a.server.Addr(),
		"model", a.registry.ModelName(),
		"engine", a.engine.Name(),
		"reset_enabled", a.cfg.Server.EnableReset,
		"metrics_enabled", a.cfg.Metrics.Enabled,
	)
	if a.verifier.Configured() {
		a.logger.Info("API key detected", "mode", a.verifier.Mode())
	} else {
		a.logger.Warn("API key missing; every completion request will be rejected",
			"env", "API_KEY")
	}
	if a.journal != nil {
		a.logger.Info("Journal enabled", "path", a.journal.Path())
	}
}

// logSummary reports the registry totals at shutdown.
func (a *app) logSummary() {
	st := a.registry.Stats()
	a.logger.Info("Shutdown summary",
		"total_inferences", st.InferenceCount,
		"active_sessions", st.ActiveSessions,
		"uptime_seconds", int64(st.Uptime.Seconds()),
	)
}

func runServe(cmd *cobra.Command, configPath string, opts *serveOptions) error {
	result, err := config.LoadConfigWithDetails(configPath)
	if err != nil {
		return err
	}
	cfg := result.Config
	applyServeFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer, err := slogutil.Setup(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	if result.ConfigPath != "" {
		logger.Info("Loaded config", "path", result.ConfigPath)
	}
	for _, ov := range result.EnvOverrides {
		logger.Debug("Environment override", "env", ov.EnvVar, "path", ov.Path, "value", ov.FromValue)
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.logBoot()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Start()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "inferd listening on http://%s\n", a.server.Addr())

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err.Error())
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())

		timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := a.server.Shutdown(ctx)
		a.logSummary()
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		logger.Info("Server stopped gracefully")
	}

	return nil
}
