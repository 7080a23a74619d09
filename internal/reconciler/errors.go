package reconciler

import (
	"context"
	"errors"
)

// Error kinds. Every one of them is terminal for the invocation.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstream            = errors.New("upstream call failed")
	ErrNoMatchingInstances = errors.New("no instances found")
	ErrTimeout             = errors.New("timed out waiting for a running instance")
	ErrMissingAddress      = errors.New("no address found")
)

// Error kind labels used in logs and metrics.
const (
	KindNone           = "none"
	KindInvalidRequest = "invalid_request"
	KindUpstream       = "upstream"
	KindNoMatch        = "no_match"
	KindTimeout        = "timeout"
	KindMissingAddress = "missing_address"
	KindCanceled       = "canceled"
	KindInternal       = "internal"
)

// Kind returns the label of the error kind err belongs to.
func Kind(err error) string {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrNoMatchingInstances):
		return KindNoMatch
	case errors.Is(err, ErrMissingAddress):
		return KindMissingAddress
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
