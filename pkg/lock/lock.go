// Package lock serialises work on shared records.
//
// The record store takes "collection:<name>" around every write; the order
// engine takes "order:<id>" around each transition and "product:<id>" around
// stock check-and-decrement. Two drivers exist:
//
//   - MemoryLocker: keyed mutexes, one process
//   - RedisLocker: SET NX PX with a token-checked release, many processes
//
// Acquire blocks until the lock is held or ctx is done.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNotAcquired is returned when ctx ends before the lock is obtained.
var ErrNotAcquired = errors.New("lock: not acquired")

// Release gives a lock back. Calling it more than once is a no-op.
type Release func()

// Locker hands out exclusive locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Key builds a lock key such as "product:7" or "user:123456789".
func Key[ID ~int | ~int64](kind string, id ID) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// AcquireAll takes every key in sorted order, so two callers locking
// overlapping sets can never deadlock. Duplicates are taken once. On failure
// the locks already held are released.
func AcquireAll(ctx context.Context, l Locker, keys ...string) (Release, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]Release, 0, len(sorted))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		rel, err := l.Acquire(ctx, k)
		if err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, rel)
	}
	return releaseAll, nil
}
