package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shashiranjanraj/beanleaf/pkg/queue"
)

// ─── Job types ────────────────────────────────────────────────────────────────

var echoCalls atomic.Int32

type echoJob struct {
	Val string `json:"val"`
}

func (j *echoJob) Handle(context.Context) error {
	echoCalls.Add(1)
	return nil
}

var failAttempts atomic.Int32

type failJob struct{}

func (j *failJob) Handle(context.Context) error {
	failAttempts.Add(1)
	return errors.New("always fails")
}

func newManager(t *testing.T, opts ...queue.Option) (*queue.Manager, context.CancelFunc) {
	t.Helper()
	opts = append([]queue.Option{queue.WithBackoff(time.Millisecond)}, opts...)
	m := queue.New(queue.NewMemoryDriver(), opts...)
	m.Register("echo", func() queue.Job { return &echoJob{} })
	m.Register("fail", func() queue.Job { return &failJob{} })

	ctx, cancel := context.WithCancel(context.Background())
	m.StartWorkers(ctx, 2)
	t.Cleanup(func() {
		cancel()
		m.Wait()
	})
	return m, cancel
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestDispatchAndProcess(t *testing.T) {
	m, _ := newManager(t)
	before := echoCalls.Load()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Dispatch(context.Background(), "echo", &echoJob{Val: "hello"}))
	}

	assert.Eventually(t, func() bool { return echoCalls.Load()-before == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, m.FailedJobs())
}

func TestFailedJobRetry(t *testing.T) {
	m, _ := newManager(t, queue.WithMaxRetry(2))
	before := failAttempts.Load()

	require.NoError(t, m.Dispatch(context.Background(), "fail", &failJob{}))

	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), failAttempts.Load()-before)

	f := m.FailedJobs()[0]
	assert.Equal(t, "fail", f.Type)
	assert.Equal(t, 2, f.Attempts)
	assert.EqualError(t, f.Err, "always fails")
}

func TestFailedJobPersistedWithGorm(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "jobs.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	store, err := queue.NewGormFailedStore(db)
	require.NoError(t, err)

	m, _ := newManager(t, queue.WithMaxRetry(1), queue.WithFailedStore(store))
	require.NoError(t, m.Dispatch(context.Background(), "fail", &failJob{}))

	assert.Eventually(t, func() bool {
		recs, err := store.Recent(context.Background(), 10)
		return err == nil && len(recs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	recs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "fail", recs[0].JobType)
	assert.Equal(t, "always fails", recs[0].Error)
}

func TestUnregisteredJobIsDropped(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.Dispatch(context.Background(), "mystery", &echoJob{}))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, m.FailedJobs())
}

func TestMemoryDriver_Full(t *testing.T) {
	d := queue.NewMemoryDriver()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, d.Push(ctx, []byte("x")))
	}
	assert.ErrorIs(t, d.Push(ctx, []byte("x")), queue.ErrQueueFull)
	assert.Equal(t, 1000, d.Len())

	got, err := d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
