package lock

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeepAlive_RenewsUntilStopped(t *testing.T) {
	var calls atomic.Int64
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		keepAlive(stop, 2*time.Millisecond, func() (bool, error) {
			calls.Add(1)
			return true, nil
		}, "order:1")
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not stop after release")
	}

	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestKeepAlive_StopsWhenLeaseLost(t *testing.T) {
	var calls atomic.Int64
	done := make(chan struct{})
	go func() {
		keepAlive(make(chan struct{}), time.Millisecond, func() (bool, error) {
			if calls.Add(1) == 1 {
				return false, errors.New("redis: connection reset")
			}
			return false, nil
		}, "product:7")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept renewing a lost lease")
	}
	assert.EqualValues(t, 2, calls.Load())
}
