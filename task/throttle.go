package task

import (
	"context"

	"github.com/flowforge/durable/chain"
	"golang.org/x/time/rate"
)

// ThrottleMiddleware rate-limits task execution using a token bucket,
// blocking until a token is available before calling next (SPEC_FULL.md §11
// domain stack: golang.org/x/time/rate wired into the middleware surface of
// spec §4.4 step 5 / §6 "Middleware").
type ThrottleMiddleware struct {
	limiter *rate.Limiter
}

// NewThrottleMiddleware returns a ThrottleMiddleware allowing ratePerSecond
// executions per second with the given burst.
func NewThrottleMiddleware(ratePerSecond float64, burst int) *ThrottleMiddleware {
	return &ThrottleMiddleware{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

func (m *ThrottleMiddleware) Call(inst *Instance, next NextFunc) (*chain.Result, error) {
	if err := m.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}
	return next(inst)
}
