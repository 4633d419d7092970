package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"newsanalyst/internal/model"
)

// ErrRateLimitExceeded is returned when a caller's deadline elapses
// before a rate-limit token becomes available.
var ErrRateLimitExceeded = errors.New("rate limit exceeded before deadline")

const retryBaseDelay = 500 * time.Millisecond

// Dispatcher wraps every outbound backend call with a per-backend token
// bucket, bounded exponential-backoff retry on transient failures, and a
// hard per-call timeout.
type Dispatcher struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter

	ratePerSec  rate.Limit
	burst       int
	callTimeout time.Duration
	maxRetries  int
	log         *zap.Logger

	// sleep is injectable for backoff tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a dispatcher from the rate-limit and dispatch configuration.
func New(rl model.RateLimitConfig, dc model.DispatchConfig, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}
	retries := dc.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	return &Dispatcher{
		buckets:     make(map[string]*rate.Limiter),
		ratePerSec:  rate.Limit(rl.RequestsPerMinute / 60.0),
		burst:       burst,
		callTimeout: dc.CallTimeout,
		maxRetries:  retries,
		log:         log,
		sleep:       sleepCtx,
	}
}

// Do executes call against the named backend under rate limiting, retry,
// and the per-call timeout. Transient failures are retried up to the
// attempt cap with exponential backoff; permanent failures surface
// immediately. A call that outlives its per-call timeout is converted to
// a timeout failure for that backend.
func (d *Dispatcher) Do(ctx context.Context, backend string, call func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < d.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			d.log.Debug("retrying backend call",
				zap.String("backend", backend),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			if err := d.sleep(ctx, backoff); err != nil {
				return err
			}
		}

		if err := d.waitToken(ctx, backend); err != nil {
			return err
		}

		lastErr = d.attempt(ctx, backend, call)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !model.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// attempt runs one call under the per-call timeout, converting a hang
// into a typed timeout failure.
func (d *Dispatcher) attempt(ctx context.Context, backend string, call func(ctx context.Context) error) error {
	callCtx := ctx
	cancel := func() {}
	if d.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
	}
	defer cancel()

	err := call(callCtx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &model.BackendError{Kind: model.BackendTimeout, Backend: backend, Err: err}
	}
	return err
}

// waitToken suspends until a token is available or the caller deadline
// elapses, in which case the call fails with ErrRateLimitExceeded.
func (d *Dispatcher) waitToken(ctx context.Context, backend string) error {
	if err := d.bucket(backend).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// bucket returns the token bucket for a backend, creating it on first use.
func (d *Dispatcher) bucket(backend string) *rate.Limiter {
	d.mu.RLock()
	l, ok := d.buckets[backend]
	d.mu.RUnlock()
	if ok {
		return l
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.buckets[backend]; ok {
		return l
	}
	l = rate.NewLimiter(d.ratePerSec, d.burst)
	d.buckets[backend] = l
	return l
}

// Allow reports whether a token is immediately available without consuming
// the caller's deadline.
func (d *Dispatcher) Allow(backend string) bool {
	return d.bucket(backend).Allow()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
