package model

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrRateLimited signals the provider rejected the call for quota reasons.
	ErrRateLimited = errors.New("model rate limited")
	// ErrTimeout signals the call exceeded its deadline.
	ErrTimeout = errors.New("model timeout")
	// ErrProvider signals any other provider or transport failure.
	ErrProvider = errors.New("model provider error")
	// ErrMalformedOutput signals a completion that cannot be interpreted.
	ErrMalformedOutput = errors.New("model returned malformed output")
)

// ClassifyStatus maps an HTTP status returned by a provider to a sentinel.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return ErrProvider
	}
}

// ClassifyContext maps context errors to ErrTimeout, returning nil for
// anything else.
func ClassifyContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return nil
}
