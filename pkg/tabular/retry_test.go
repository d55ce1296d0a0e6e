package tabular

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails the first n writes of op with ErrUnavailable.
func flakyBackend(op string, n int32) (*MemoryBackend, *atomic.Int32) {
	b := NewMemoryBackend()
	var calls atomic.Int32
	b.BeforeWrite = func(got, _ string) error {
		if got != op {
			return nil
		}
		if calls.Add(1) <= n {
			return fmt.Errorf("flaky: %w", ErrUnavailable)
		}
		return nil
	}
	return b, &calls
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
}

func TestWithRetry_RetriesIdempotentWrites(t *testing.T) {
	ctx := context.Background()
	mem, calls := flakyBackend("header", 2)
	b := WithRetry(mem, fastPolicy())

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)
	require.NoError(t, c.WriteHeader(ctx, []string{"id"}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWithRetry_GivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	mem, calls := flakyBackend("header", 10)
	b := WithRetry(mem, fastPolicy())

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)
	assert.ErrorIs(t, c.WriteHeader(ctx, []string{"id"}), ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWithRetry_AppendIsAttemptedOnce(t *testing.T) {
	ctx := context.Background()
	mem, calls := flakyBackend("append", 1)
	b := WithRetry(mem, fastPolicy())

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)
	assert.ErrorIs(t, c.AppendRow(ctx, []string{"1"}), ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWithRetry_StaleHandleIsNotRetried(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	b := WithRetry(mem, fastPolicy())

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)
	mem.Drop("Orders")

	_, err = c.ReadAllRows(ctx)
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestWithRetry_UpdateRowUsesInnerRowWriter(t *testing.T) {
	ctx := context.Background()
	b := WithRetry(NewMemoryBackend(), fastPolicy())

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)
	require.NoError(t, c.AppendRow(ctx, []string{"1", "pending"}))
	require.NoError(t, WriteRow(ctx, c, 2, []string{"1", "paid"}))

	rows, err := c.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "paid"}}, rows)
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	unavailable := fmt.Errorf("down: %w", ErrUnavailable)

	require.NoError(t, cb.Allow())
	cb.Record(unavailable)
	require.NoError(t, cb.Allow())
	cb.Record(unavailable)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen, "only one probe while half-open")

	cb.Record(nil)
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_IgnoresDomainErrors(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	require.NoError(t, cb.Allow())
	cb.Record(errors.New("row out of range"))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_DisabledWhenZero(t *testing.T) {
	cb := NewCircuitBreaker(0, time.Minute)
	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Allow())
		cb.Record(ErrUnavailable)
	}
	assert.Equal(t, StateClosed, cb.State())
}
