// Package app wires configuration, telemetry, the inventory plugin and the
// reconciler into a ready Handler. Both entrypoints build exactly one App
// per process.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/rouse/internal/config"
	"github.com/yairfalse/rouse/internal/handler"
	"github.com/yairfalse/rouse/internal/plugin"
	"github.com/yairfalse/rouse/internal/plugin/aws"
	"github.com/yairfalse/rouse/internal/reconciler"
	"github.com/yairfalse/rouse/internal/telemetry"
)

// App holds the process-wide components.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Telemetry *telemetry.Provider
	Handler   *handler.Handler
}

// PluginFactory builds the inventory plugin for a config.
type PluginFactory func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (plugin.Plugin, error)

// ErrNoRegion is returned when neither config nor the SDK chain yields a
// region.
var ErrNoRegion = errors.New("no AWS region configured: set [aws] region or AWS_REGION")

// AWSPlugin is the default PluginFactory.
func AWSPlugin(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (plugin.Plugin, error) {
	p, err := aws.New(ctx, aws.Config{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	// EC2 calls would fail on every invocation without one.
	if p.Region() == "" {
		return nil, ErrNoRegion
	}
	return p, nil
}

// New builds an App. The logger is created first so that every later
// failure can be reported through it.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, factory PluginFactory) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	p, err := factory(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init %s plugin: %w", cfg.Provider, err)
	}
	plugin.Register(p)

	inv, ok := plugin.Get(cfg.Provider)
	if !ok {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("provider %q not registered (have %v)", cfg.Provider, plugin.Names())
	}

	rec := reconciler.New(inv,
		reconciler.WithLogger(logger.With().Str("component", "reconciler").Logger()),
		reconciler.WithTracer(tp.Tracer()),
		reconciler.WithMetrics(tp),
		reconciler.WithTimeout(cfg.Reconcile.Timeout),
		reconciler.WithPollInterval(cfg.Reconcile.PollInterval),
	)

	logger.Debug().
		Str("provider", inv.Name()).
		Dur("timeout", cfg.Reconcile.Timeout).
		Dur("poll_interval", cfg.Reconcile.PollInterval).
		Msg("rouse initialised")

	return &App{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tp,
		Handler:   handler.New(rec, logger),
	}, nil
}

// Flush exports buffered telemetry, bounded by a short timeout.
func (a *App) Flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := a.Telemetry.ForceFlush(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("telemetry flush failed")
	}
}

// Close shuts down telemetry.
func (a *App) Close(ctx context.Context) error {
	return a.Telemetry.Shutdown(ctx)
}
