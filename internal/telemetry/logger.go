package telemetry

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// NewLogger creates the process-wide JSON logger. It is built once at
// startup and handed to the components that log. timestamp adds a time
// field; leave it off where the log sink stamps events itself.
func NewLogger(service, level string, timestamp bool) zerolog.Logger {
	return newLogger(os.Stdout, service, level, timestamp)
}

func newLogger(w io.Writer, service, level string, timestamp bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	lctx := zerolog.New(w).Level(lvl).With()
	if timestamp {
		lctx = lctx.Timestamp()
	}

	return lctx.Str("service", service).
		Logger().
		Hook(OTELHook{})
}
