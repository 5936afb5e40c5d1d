package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy is an exponential backoff retry policy.
type Policy struct {
	// Name identifies the operation in retry logs.
	Name string
	// Attempts is the total number of tries, first included. Default 3.
	Attempts int
	// Backoff is the delay before the first retry. Default 500ms.
	Backoff time.Duration
	// MaxBackoff caps any single delay. Default 10s.
	MaxBackoff time.Duration
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64
	// Retryable picks which errors are retried. Nil uses IsTransient.
	Retryable func(err error) bool
}

// NewPolicy builds a Policy from plain config values, keeping defaults for
// non-positive inputs.
func NewPolicy(name string, attempts, backoffMs int) Policy {
	p := Policy{Name: name, Attempts: 3, Backoff: 500 * time.Millisecond, MaxBackoff: 10 * time.Second, Jitter: 0.2}
	if attempts > 0 {
		p.Attempts = attempts
	}
	if backoffMs > 0 {
		p.Backoff = time.Duration(backoffMs) * time.Millisecond
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. It returns the last error.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := RetryVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryVal is Retry for functions that return a value.
func RetryVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var err error
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= p.Attempts {
			return zero, err
		}

		delay := p.delay(attempt)
		zap.L().Warn("resilience: retrying",
			zap.String("operation", p.Name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Backoff <= 0 {
		p.Backoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// delay returns the sleep before retry number attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	d := math.Min(float64(p.Backoff)*math.Pow(2, float64(attempt-1)), float64(p.MaxBackoff))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(0, d))
}
