// Package retrylimit retries calls against a remote API with exponential
// backoff and an adaptive rate limit that shrinks on overload and grows back
// on success.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultConfig(), func() error {
//	    return doSomeWork()
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a token bucket whose rate moves between min and max.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
}

// NewAdaptiveLimiter creates a limiter starting at initial requests per
// second. stepUp is added after a success, stepDown multiplies the rate after
// an overload.
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max1(int(initial))),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate unless an overload happened in the last 10s.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > 10*time.Second {
		a.adjust(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjust(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) adjust(limit rate.Limit) {
	if limit > a.maxLimit {
		limit = a.maxLimit
	} else if limit < a.minLimit {
		limit = a.minLimit
	}
	if limit != a.limiter.Limit() {
		a.limiter.SetLimit(limit)
		a.limiter.SetBurst(max1(int(limit)))
	}
}

// StatusError is an error that carries an HTTP status code.
type StatusError interface {
	error
	StatusCode() int
}

// ErrAttemptsExceeded is returned when every attempt failed.
var ErrAttemptsExceeded = errors.New("max attempts exceeded")

// Fatal marks err so that Do stops retrying and returns it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

type fatalError struct{ err error }

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

// Classifier reports whether err means the remote side is overloaded.
type Classifier func(error) bool

// Overloaded is the default Classifier: 429 and 5xx.
func Overloaded(err error) bool {
	code, ok := StatusOf(err)
	return ok && (code == http.StatusTooManyRequests || code >= 500 && code < 600)
}

// StatusOf extracts the status code from the first StatusError in err's chain.
func StatusOf(err error) (int, bool) {
	var se StatusError
	if errors.As(err, &se) {
		return se.StatusCode(), true
	}
	return 0, false
}

// Config controls Do.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	Classifier     Classifier
	Logger         zerolog.Logger
}

// DefaultConfig returns five attempts with backoff from 500ms to 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		Classifier:     Overloaded,
		Logger:         zerolog.Nop(),
	}
}

// Do calls fn until it succeeds, returns an error wrapped by Fatal, ctx is
// done or cfg.MaxAttempts is reached. lim may be nil.
func Do(ctx context.Context, lim *AdaptiveLimiter, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Classifier == nil {
		cfg.Classifier = Overloaded
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				cfg.Logger.Debug().Int("attempt", attempt).Msg("succeeded after retry")
			}
			return nil
		}

		var fatal *fatalError
		if errors.As(err, &fatal) {
			return fatal.err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if code, ok := StatusOf(err); ok && code == http.StatusTooManyRequests {
			wait = cfg.RateLimitDelay
		}
		if cfg.Classifier(err) && lim != nil {
			lim.RateLimited()
		}
		if cfg.Jitter {
			wait = jitter(wait)
		}

		cfg.Logger.Warn().Err(err).Int("attempt", attempt).Dur("sleep", wait).Msg("request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w (%d): %w", ErrAttemptsExceeded, cfg.MaxAttempts, lastErr)
}

// jitter adds up to 25% to d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d/4)))
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
