// Package reconciler converges a tag requirement onto a single running,
// addressed instance.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/rouse/internal/filter"
	"github.com/yairfalse/rouse/pkg/instance"
)

const (
	// DefaultTimeout bounds a single reconciliation.
	DefaultTimeout = 60 * time.Second
	// DefaultPollInterval is the pause between inventory polls.
	DefaultPollInterval = time.Second
)

// Inventory is the instance inventory/control service.
type Inventory interface {
	// ListInstances returns every instance the caller can see.
	ListInstances(ctx context.Context) ([]instance.Instance, error)

	// StartInstances asks the provider to start the given instances.
	// It does not wait for them to come up.
	StartInstances(ctx context.Context, ids []string) error
}

// Reconciler runs the observe-then-act loop for one request at a time.
// It holds no state between calls to Reconcile.
type Reconciler struct {
	inventory    Inventory
	logger       zerolog.Logger
	tracer       trace.Tracer
	metrics      Metrics
	clock        Clock
	timeout      time.Duration
	pollInterval time.Duration
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used at decision points.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithTracer sets the tracer for reconciliation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Reconciler) { r.tracer = tracer }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithClock replaces the wall clock. Used for testing.
func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithTimeout sets the overall time budget.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.timeout = d }
}

// WithPollInterval sets the pause between polls.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reconciler) { r.pollInterval = d }
}

// New creates a Reconciler over the given inventory.
func New(inv Inventory, opts ...Option) *Reconciler {
	r := &Reconciler{
		inventory:    inv,
		logger:       zerolog.Nop(),
		tracer:       otel.Tracer("rouse/reconciler"),
		metrics:      noopMetrics{},
		clock:        realClock{},
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile finds an instance carrying every required tag, starts it if it
// is stopped, and waits until it is running with a public address.
func (r *Reconciler) Reconcile(ctx context.Context, tags instance.TagRequirement) (*instance.Result, error) {
	f, err := filter.New(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ctx, span := r.tracer.Start(ctx, "reconcile", trace.WithAttributes(
		attribute.Int("rouse.tags", len(tags)),
		attribute.String("rouse.timeout", r.timeout.String()),
	))
	defer span.End()

	start := r.clock.Now()
	result, err := r.run(ctx, f, start)
	r.metrics.RecordReconcile(ctx, r.clock.Now().Sub(start), Kind(err))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("rouse.instance_id", result.ID),
		attribute.Int("rouse.actions", len(result.Actions)),
	)
	return result, nil
}

func (r *Reconciler) run(ctx context.Context, f *filter.Filter, start time.Time) (*instance.Result, error) {
	actions := []string{}
	logger := r.logger.With().Ctx(ctx).Logger()

	for iteration := 1; ; iteration++ {
		if elapsed := r.clock.Now().Sub(start); elapsed >= r.timeout {
			logger.Warn().
				Dur("elapsed", elapsed).
				Int("iterations", iteration-1).
				Strs("actions", actions).
				Msg("no running instance before timeout")
			return nil, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}

		r.metrics.RecordIteration(ctx)

		inventory, err := r.inventory.ListInstances(ctx)
		if err != nil {
			return nil, upstreamError("list instances", err)
		}

		views := project(f.Apply(inventory))
		if len(views) == 0 {
			logger.Info().
				Int("inventory", len(inventory)).
				Interface("tags", f.Required()).
				Msg("no instances match tags")
			return nil, ErrNoMatchingInstances
		}

		if v, ok := firstRunning(views); ok {
			if v.PublicIP == "" {
				return nil, fmt.Errorf("%w for running instance %s", ErrMissingAddress, v.ID)
			}
			logger.Info().
				Str("instance_id", v.ID).
				Str("ip", v.PublicIP).
				Int("iteration", iteration).
				Msg("instance running")
			return &instance.Result{
				ID:       v.ID,
				State:    v.State,
				PublicIP: v.PublicIP,
				Actions:  actions,
			}, nil
		}

		if stopped := stoppedIDs(views); len(stopped) > 0 {
			if err := r.inventory.StartInstances(ctx, stopped); err != nil {
				return nil, upstreamError(fmt.Sprintf("start instances %v", stopped), err)
			}
			for _, id := range stopped {
				actions = append(actions, "Starting instance "+id)
				logger.Info().Str("instance_id", id).Int("iteration", iteration).Msg("starting instance")
			}
			r.metrics.RecordStartActions(ctx, len(stopped))
		}

		logger.Debug().
			Int("iteration", iteration).
			Int("matched", len(views)).
			Msg("waiting for instance")

		if err := r.clock.Sleep(ctx, r.pollInterval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, fmt.Errorf("poll sleep: %w", err)
		}
	}
}

// upstreamError wraps an inventory failure. A caller deadline that expires
// inside the call is a timeout, not an upstream fault.
func upstreamError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// project builds views, skipping records without an id or state.
func project(instances []instance.Instance) []instance.View {
	views := make([]instance.View, 0, len(instances))
	for _, inst := range instances {
		if v, ok := instance.NewView(inst); ok {
			views = append(views, v)
		}
	}
	return views
}

func firstRunning(views []instance.View) (instance.View, bool) {
	for _, v := range views {
		if v.State == instance.StateRunning {
			return v, true
		}
	}
	return instance.View{}, false
}

func stoppedIDs(views []instance.View) []string {
	var ids []string
	for _, v := range views {
		if v.State == instance.StateStopped {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
