package model

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps m so that at most perMinute calls start per minute,
// allowing bursts of up to burst calls. A non-positive perMinute returns m
// unchanged. Waiting honours ctx; a wait that cannot complete fails with
// ErrRateLimited.
func RateLimited(m Model, perMinute float64, burst int) Model {
	if perMinute <= 0 {
		return m
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedModel{
		next:    m,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60.0), burst),
	}
}

type rateLimitedModel struct {
	next    Model
	limiter *rate.Limiter
}

func (r *rateLimitedModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return r.next.Generate(ctx, req)
}

func (r *rateLimitedModel) Info() Info { return r.next.Info() }
