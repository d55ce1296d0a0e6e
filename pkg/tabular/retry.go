package tabular

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds how hard the wrapper tries before giving up.
type RetryPolicy struct {
	// Attempts is the total number of tries for idempotent calls.
	Attempts int
	// BaseDelay doubles after every failed attempt.
	BaseDelay time.Duration
	// MaxFailures consecutive unavailability errors open the breaker.
	// Zero disables the breaker.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open.
	ResetTimeout time.Duration
}

// DefaultRetryPolicy suits a remote spreadsheet API with per-minute quotas.
// A confirm-payment holds its locks across several of these retried calls;
// lock.RedisLocker renews its lease while held, so the lock TTL does not cap
// how long that may take.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		BaseDelay:    200 * time.Millisecond,
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// WithRetry wraps b so reads, header writes and cell updates are retried on
// ErrUnavailable with exponential backoff. Appends and deletes are attempted
// once: a timed-out append may still have landed, and repeating it would
// duplicate the row.
func WithRetry(b Backend, p RetryPolicy) Backend {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return &retryBackend{
		inner:   b,
		policy:  p,
		breaker: NewCircuitBreaker(p.MaxFailures, p.ResetTimeout),
	}
}

type retryBackend struct {
	inner   Backend
	policy  RetryPolicy
	breaker *CircuitBreaker
}

// Breaker exposes the breaker for health reporting.
func (r *retryBackend) Breaker() *CircuitBreaker { return r.breaker }

func (r *retryBackend) do(ctx context.Context, idempotent bool, fn func() error) error {
	attempts := 1
	if idempotent {
		attempts = r.policy.Attempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := r.policy.BaseDelay << (i - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("tabular: retry aborted: %w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(delay):
			}
		}

		if bErr := r.breaker.Allow(); bErr != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, bErr)
		}
		err = fn()
		r.breaker.Record(err)

		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrStaleHandle)
}

func (r *retryBackend) Collection(ctx context.Context, name string) (Collection, error) {
	var c Collection
	err := r.do(ctx, true, func() (err error) {
		c, err = r.inner.Collection(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &retryCollection{inner: c, r: r}, nil
}

func (r *retryBackend) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	var c Collection
	err := r.do(ctx, true, func() (err error) {
		c, err = r.inner.EnsureCollection(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &retryCollection{inner: c, r: r}, nil
}

func (r *retryBackend) Ping(ctx context.Context) error {
	return r.do(ctx, false, func() error { return r.inner.Ping(ctx) })
}

func (r *retryBackend) Close(ctx context.Context) error { return r.inner.Close(ctx) }

type retryCollection struct {
	inner Collection
	r     *retryBackend
}

func (c *retryCollection) Name() string { return c.inner.Name() }

func (c *retryCollection) ReadHeader(ctx context.Context) (header []string, err error) {
	err = c.r.do(ctx, true, func() (err error) {
		header, err = c.inner.ReadHeader(ctx)
		return err
	})
	return header, err
}

func (c *retryCollection) WriteHeader(ctx context.Context, header []string) error {
	return c.r.do(ctx, true, func() error { return c.inner.WriteHeader(ctx, header) })
}

func (c *retryCollection) ReadAllRows(ctx context.Context) (rows [][]string, err error) {
	err = c.r.do(ctx, true, func() (err error) {
		rows, err = c.inner.ReadAllRows(ctx)
		return err
	})
	return rows, err
}

func (c *retryCollection) AppendRow(ctx context.Context, values []string) error {
	return c.r.do(ctx, false, func() error { return c.inner.AppendRow(ctx, values) })
}

func (c *retryCollection) UpdateCell(ctx context.Context, row, col int, value string) error {
	return c.r.do(ctx, true, func() error { return c.inner.UpdateCell(ctx, row, col, value) })
}

func (c *retryCollection) UpdateRow(ctx context.Context, row int, values []string) error {
	return c.r.do(ctx, true, func() error { return WriteRow(ctx, c.inner, row, values) })
}

func (c *retryCollection) DeleteRow(ctx context.Context, row int) error {
	return c.r.do(ctx, false, func() error { return c.inner.DeleteRow(ctx, row) })
}
