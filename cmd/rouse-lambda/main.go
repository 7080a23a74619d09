// rouse-lambda - wake a tagged EC2 instance from AWS Lambda.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/yairfalse/rouse/internal/app"
	"github.com/yairfalse/rouse/internal/config"
	"github.com/yairfalse/rouse/internal/handler"
	"github.com/yairfalse/rouse/internal/telemetry"
)

func main() {
	cfg, err := config.LoadOrDefault(os.Getenv("ROUSE_CONFIG"))
	if err != nil {
		bootstrap := zerolog.New(os.Stdout)
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}

	logger := telemetry.NewLogger(cfg.OTEL.ServiceName, cfg.Log.Level, cfg.Log.Timestamp)

	// One App per sandbox, reused across invocations.
	a, err := app.New(context.Background(), cfg, logger, app.AWSPlugin)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise")
	}

	lambda.Start(func(ctx context.Context, req handler.Request) (handler.Response, error) {
		defer a.Flush(ctx)
		return a.Handler.Handle(ctx, req)
	})
}
