package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/workerpool"
)

func TestPool_RunsEveryJob(t *testing.T) {
	pool := workerpool.New(3)
	defer pool.Shutdown()

	var (
		wg  sync.WaitGroup
		ran atomic.Int64
	)
	wg.Add(40)
	for range 40 {
		require.NoError(t, pool.Do(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 40, ran.Load())
}

func TestPool_SurvivesPanickingJob(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	require.NoError(t, pool.Do(func() { panic("bad job") }))

	done := make(chan struct{})
	require.NoError(t, pool.Do(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestPool_ShutdownDrainsAndRejects(t *testing.T) {
	pool := workerpool.New(2)

	var ran atomic.Int64
	for range 10 {
		require.NoError(t, pool.Do(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		}))
	}
	pool.Shutdown()
	pool.Shutdown()

	assert.EqualValues(t, 10, ran.Load())
	assert.ErrorIs(t, pool.Do(func() {}), workerpool.ErrPoolClosed)
}

func TestBatch_CollectsErrors(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()

	errOffline := errors.New("backend offline")
	var ran atomic.Int64

	b := pool.Batch(context.Background())
	for i := range 10 {
		b.Go(func(context.Context) error {
			ran.Add(1)
			switch i {
			case 3:
				return errOffline
			case 7:
				panic("bad row")
			}
			return nil
		})
	}

	err := b.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, errOffline)
	assert.Contains(t, err.Error(), "task panicked: bad row")
	assert.EqualValues(t, 10, ran.Load())
}

func TestBatch_NoErrors(t *testing.T) {
	pool := workerpool.New(3)
	defer pool.Shutdown()

	b := pool.Batch(context.Background())
	for range 5 {
		b.Go(func(context.Context) error { return nil })
	}
	assert.NoError(t, b.Wait())
}

func TestBatch_CancelledContextSkipsTasks(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int64
	b := pool.Batch(ctx)
	b.Go(func(context.Context) error { ran.Add(1); return nil })
	assert.ErrorIs(t, b.Wait(), context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestBatch_ClosedPool(t *testing.T) {
	pool := workerpool.New(1)
	pool.Shutdown()

	b := pool.Batch(context.Background())
	b.Go(func(context.Context) error { return nil })
	assert.ErrorIs(t, b.Wait(), workerpool.ErrPoolClosed)
}
