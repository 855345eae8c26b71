package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrMaxRetriesExceeded is returned once every attempt has failed
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor of 0.1 means ±10% around the computed interval
	JitterFactor float64
}

// DefaultConfig suits short storage writes on the request path:
// 100ms, 200ms, 400ms
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops retrying immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result contains the outcome of a retried operation
type Result struct {
	// Err is nil on success, the unwrapped permanent error, ctx.Err(), or
	// ErrMaxRetriesExceeded
	Err       error
	Attempts  int
	LastError error
}

// Callback is invoked before sleeping ahead of the next attempt
type Callback func(attempt int, err error, next time.Duration)

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the retry budget is spent
func Do(ctx context.Context, cfg *Config, op Operation, onRetry Callback) *Result {
	cfg = normalize(cfg)
	result := &Result{}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		result.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			result.Err = nil
			return result
		}
		result.LastError = err

		var permErr *PermanentError
		if errors.As(err, &permErr) {
			result.Err = permErr.Err
			return result
		}

		if attempt == cfg.MaxRetries {
			break
		}

		wait := backoff(cfg, attempt)
		if onRetry != nil {
			onRetry(attempt+1, err, wait)
		}

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-time.After(wait):
		}
	}

	result.Err = ErrMaxRetriesExceeded
	return result
}

func normalize(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	c := *cfg
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	c.JitterFactor = math.Max(0, math.Min(1, c.JitterFactor))
	return &c
}

func backoff(cfg *Config, attempt int) time.Duration {
	interval := float64(cfg.InitialInterval) * math.Pow(cfg.Multiplier, float64(attempt))

	if cfg.JitterFactor > 0 {
		jitter := interval * cfg.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}

	if interval > float64(cfg.MaxInterval) {
		interval = float64(cfg.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(cfg.InitialInterval)
	}
	return time.Duration(interval)
}
