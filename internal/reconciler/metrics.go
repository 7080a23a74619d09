package reconciler

import (
	"context"
	"time"
)

// Metrics receives reconciliation measurements.
type Metrics interface {
	RecordIteration(ctx context.Context)
	RecordStartActions(ctx context.Context, count int)
	RecordReconcile(ctx context.Context, d time.Duration, kind string)
}

type noopMetrics struct{}

func (noopMetrics) RecordIteration(context.Context) {}

func (noopMetrics) RecordStartActions(context.Context, int) {}

func (noopMetrics) RecordReconcile(context.Context, time.Duration, string) {}
