package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/rouse/internal/app"
	"github.com/yairfalse/rouse/internal/config"
	"github.com/yairfalse/rouse/internal/handler"
	"github.com/yairfalse/rouse/internal/telemetry"
)

var (
	wakeTags    []string
	configPath  string
	wakeTimeout time.Duration
	debug       bool
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Start the instance matching the given tags and print its address",
	Long: `Find the EC2 instance carrying every --tag, start it if it is stopped,
and wait until it is running with a public address.

Examples:
  # Wake the arm64 dev box
  rouse wake --tag devcontainer=arm64.medium

  # Require several tags, wait up to two minutes
  rouse wake --tag env=dev --tag team=infra --timeout 2m

  # Use a config file
  rouse wake --config ./rouse.toml --tag devcontainer=arm64.medium`,
	RunE: runWake,
}

func init() {
	rootCmd.AddCommand(wakeCmd)

	wakeCmd.Flags().StringArrayVarP(&wakeTags, "tag", "t", nil, "Required tag as key=value (repeatable)")
	wakeCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	wakeCmd.Flags().DurationVar(&wakeTimeout, "timeout", 0, "Override the reconcile timeout")
	wakeCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func runWake(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	req, err := parseTags(wakeTags)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if wakeTimeout > 0 {
		cfg.Reconcile.Timeout = wakeTimeout
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logger := telemetry.NewLogger(cfg.OTEL.ServiceName, cfg.Log.Level, true).Output(os.Stderr)

	a, err := app.New(ctx, cfg, logger, app.AWSPlugin)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	resp, err := a.Handler.Handle(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// parseTags turns key=value flags into a request, keeping flag order.
// Values may contain '='.
func parseTags(raw []string) (handler.Request, error) {
	req := handler.Request{Tags: make([]handler.TagInput, 0, len(raw))}
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return handler.Request{}, fmt.Errorf("invalid tag %q: expected key=value", kv)
		}
		req.Tags = append(req.Tags, handler.TagInput{Key: key, Value: value})
	}
	return req, nil
}
