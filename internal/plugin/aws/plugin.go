// Package aws implements the EC2 inventory plugin for rouse.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/yairfalse/rouse/internal/plugin"
)

var _ plugin.Plugin = (*Plugin)(nil)

// Plugin lists and starts EC2 instances in one region.
type Plugin struct {
	region    string
	ec2Client EC2API
	logger    zerolog.Logger
}

// Config holds AWS plugin configuration.
type Config struct {
	Region  string
	Profile string
	Logger  zerolog.Logger
}

// New creates a new AWS plugin. An empty region falls back to the SDK's
// default resolution (AWS_REGION in Lambda).
func New(ctx context.Context, cfg Config) (*Plugin, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Plugin{
		region:    awsCfg.Region,
		ec2Client: ec2.NewFromConfig(awsCfg),
		logger:    cfg.Logger.With().Str("plugin", "aws").Str("region", awsCfg.Region).Logger(),
	}, nil
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "aws"
}

// Region returns the region the plugin talks to.
func (p *Plugin) Region() string {
	return p.region
}

// wrapAPIError annotates err with the AWS error code when there is one.
func wrapAPIError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (%s): %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
