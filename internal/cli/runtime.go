package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/collabflow/internal/apiclient"
	"github.com/roach88/collabflow/internal/config"
	"github.com/roach88/collabflow/internal/integration"
	"github.com/roach88/collabflow/internal/notify"
	"github.com/roach88/collabflow/internal/store"
	"github.com/roach88/collabflow/internal/workflow"
)

// runtime is everything a workflow command needs, built from config.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *integration.Service
	orch    *workflow.Orchestrator
	store   *store.Store
}

// Close releases the audit database.
func (r *runtime) Close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Error("error closing database", "error", err)
	}
}

// runtimeOption adjusts how newRuntime wires a command.
type runtimeOption func(*runtimeSettings)

type runtimeSettings struct {
	logToasts bool
	sinks     []workflow.EventSink
}

// withLogToasts sends progress notifications through the logger instead of
// printing them on stderr.
func withLogToasts() runtimeOption {
	return func(s *runtimeSettings) { s.logToasts = true }
}

// withSinks adds sinks that receive every event after the notifier and the
// audit recorder.
func withSinks(sinks ...workflow.EventSink) runtimeOption {
	return func(s *runtimeSettings) { s.sinks = append(s.sinks, sinks...) }
}

// newRuntime wires client, service, orchestrator and sinks.
func (o *RootOptions) newRuntime(cmd *cobra.Command, opts ...runtimeOption) (*runtime, error) {
	var settings runtimeSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd, cfg)

	client, err := newAPIClient(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create API client", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}

	registry := workflow.NewRegistry()
	var toaster notify.Toaster = notify.NewWriterToaster(cmd.ErrOrStderr())
	if settings.logToasts {
		toaster = notify.LogToaster{Logger: logger}
	}
	sinks := []workflow.EventSink{notify.NewNotifier(toaster)}
	if cfg.Database != "" {
		st, err := openStore(cfg.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		rt.store = st
		sinks = append(sinks, store.NewRecorder(st, registry.Get, logger))
		logger.Debug("audit trail enabled", "path", cfg.Database)
	}
	sinks = append(sinks, settings.sinks...)

	orchOpts := []workflow.Option{
		workflow.WithSink(notify.Multi(sinks...)),
		workflow.WithLogger(logger),
		workflow.WithCancelPropagation(cfg.CancelPropagation),
		workflow.WithIDGenerator(o.IDs),
		workflow.WithNow(o.Now),
	}
	rt.orch = workflow.New(registry, orchOpts...)

	browser := o.Browser
	if browser == nil {
		browser = &integration.ConsoleBrowser{Out: cmd.ErrOrStderr(), In: cmd.InOrStdin()}
	}
	rt.service = integration.NewService(client,
		integration.WithBrowser(browser),
		integration.WithTiming(cfg.Timing()),
		integration.WithLogger(logger),
	)
	return rt, nil
}

func newAPIClient(cfg *config.Config, logger *slog.Logger) (*apiclient.Client, error) {
	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		apiclient.WithLogger(logger),
	}
	if cfg.API.TokenFile != "" {
		if _, err := os.Stat(cfg.API.TokenFile); err == nil {
			opts = append(opts, apiclient.WithTokenSource(apiclient.FileTokenSource(cfg.API.TokenFile)))
		} else if errors.Is(err, os.ErrNotExist) {
			logger.Warn("token file not found; requests are unauthenticated", "path", cfg.API.TokenFile)
		} else {
			return nil, fmt.Errorf("stat token file: %w", err)
		}
	}
	return apiclient.New(cfg.API.BaseURL, opts...)
}

// openStore creates the database directory if needed.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return store.Open(path)
}
