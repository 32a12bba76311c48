// Package retry bounds waits on eventually-consistent AWS state with
// exponential backoff and an overall deadline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a wait exhausts its attempts or deadline.
var ErrTimeout = errors.New("timed out waiting for condition")

// Config is the retry policy for a single wait.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Timeout caps the whole wait. Zero means only MaxRetries applies.
	Timeout time.Duration
}

// DefaultConfig waits up to ten minutes for a resource to disappear.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   60,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Timeout:      10 * time.Minute,
	}
}

// Option is a functional option applied on top of a Config.
type Option func(*Config)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) { c.InitialDelay = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) { c.Multiplier = m }
}

// WithTimeout caps the total wait.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// Apply returns a copy of c with opts applied.
func (c Config) Apply(opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Do runs operation until it succeeds, returns a Fatal error, or the policy
// is exhausted. Exhaustion wraps both ErrTimeout and the last error.
func Do(ctx context.Context, cfg Config, operation func(context.Context) error) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, attempt+1, lastErr)
		}
		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, attempt+1, lastErr)
			}
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		if cfg.Multiplier > 1 {
			delay = time.Duration(float64(delay) * cfg.Multiplier)
		}
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, cfg.MaxRetries+1, lastErr)
}

// errPending marks a condition that has not been met yet.
var errPending = errors.New("condition not met")

// Poll waits until cond reports true. An error from cond stops the wait.
func Poll(ctx context.Context, cfg Config, cond func(context.Context) (bool, error)) error {
	return Do(ctx, cfg, func(ctx context.Context) error {
		done, err := cond(ctx)
		if err != nil {
			return Fatal(err)
		}
		if !done {
			return errPending
		}
		return nil
	})
}

// FatalError wraps an error to mark it as non-retryable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err is non-retryable.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
