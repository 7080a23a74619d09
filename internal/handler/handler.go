// Package handler adapts wake requests to the reconciler. It is shared by
// the Lambda entrypoint and the CLI.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yairfalse/rouse/internal/reconciler"
	"github.com/yairfalse/rouse/pkg/instance"
)

// TagInput is one required tag in a request.
type TagInput struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// Request is the invocation payload.
type Request struct {
	Tags []TagInput `json:"tags" validate:"required,min=1,dive"`
}

// Response is returned on success.
type Response struct {
	RequestID string   `json:"req_id"`
	ID        string   `json:"id"`
	State     string   `json:"state"`
	IP        string   `json:"ip"`
	Actions   []string `json:"actions"`
}

// Reconciler converges a tag requirement onto a running instance.
type Reconciler interface {
	Reconcile(ctx context.Context, tags instance.TagRequirement) (*instance.Result, error)
}

// Handler validates requests and runs one reconciliation per call.
type Handler struct {
	reconciler Reconciler
	logger     zerolog.Logger
	validate   *validator.Validate
}

// New creates a Handler.
func New(r Reconciler, logger zerolog.Logger) *Handler {
	return &Handler{
		reconciler: r,
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handle serves one invocation.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	reqID := requestID(ctx)
	logger := h.logger.With().Str("req_id", reqID).Ctx(ctx).Logger()

	if err := h.validate.Struct(req); err != nil {
		err = fmt.Errorf("%w: %s", reconciler.ErrInvalidRequest, describeValidation(err))
		logger.Warn().Err(err).Msg("rejected request")
		return Response{}, err
	}

	tags := req.Requirement()
	logger.Info().Interface("tags", tags).Msg("wake requested")

	result, err := h.reconciler.Reconcile(ctx, tags)
	if err != nil {
		logger.Error().Err(err).Str("kind", reconciler.Kind(err)).Msg("wake failed")
		return Response{}, err
	}

	logger.Info().
		Str("instance_id", result.ID).
		Str("ip", result.PublicIP).
		Int("actions", len(result.Actions)).
		Msg("wake succeeded")

	return Response{
		RequestID: reqID,
		ID:        result.ID,
		State:     string(result.State),
		IP:        result.PublicIP,
		Actions:   result.Actions,
	}, nil
}

// Requirement converts the request tags, keeping their order.
func (r Request) Requirement() instance.TagRequirement {
	tags := make(instance.TagRequirement, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, instance.Tag{Key: t.Key, Value: t.Value})
	}
	return tags
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "min":
			if fe.Field() == "Tags" {
				msgs = append(msgs, "at least one tag is required")
				continue
			}
			msgs = append(msgs, fmt.Sprintf("%s is required", strings.ToLower(fe.Namespace())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Namespace()), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
