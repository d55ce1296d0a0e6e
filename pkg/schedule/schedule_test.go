package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/schedule"
)

func counting(n *atomic.Int32) schedule.Task {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestInterval_RunsOncePerPeriod(t *testing.T) {
	ctx := context.Background()
	s := schedule.New(schedule.WithLogger(logger.Discard()))
	var runs atomic.Int32
	require.NoError(t, s.Every(10).Minutes().Name("digest").Run(counting(&runs)))

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.RunDue(ctx, t0)
	s.RunDue(ctx, t0.Add(5*time.Minute))
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())

	s.RunDue(ctx, t0.Add(10*time.Minute))
	s.Wait()
	assert.EqualValues(t, 2, runs.Load())
	assert.Equal(t, []string{"digest  [10m0s]"}, s.List())
}

func TestCron_MatchesOncePerMinute(t *testing.T) {
	ctx := context.Background()
	s := schedule.New(schedule.WithLogger(logger.Discard()))
	var runs atomic.Int32
	require.NoError(t, s.Cron("30 21 * * 1-5").Run(counting(&runs)))

	friday := time.Date(2026, 3, 6, 21, 30, 0, 0, time.UTC)
	s.RunDue(ctx, friday)
	s.RunDue(ctx, friday.Add(20*time.Second))
	s.RunDue(ctx, friday.Add(time.Minute))
	s.RunDue(ctx, friday.AddDate(0, 0, 1)) // saturday
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())
}

func TestCron_Lists(t *testing.T) {
	ctx := context.Background()
	s := schedule.New(schedule.WithLogger(logger.Discard()))
	var runs atomic.Int32
	require.NoError(t, s.Cron("0,15,*/20 * * * *").Run(counting(&runs)))

	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	for _, m := range []int{0, 15, 20, 21, 40} {
		s.RunDue(ctx, base.Add(time.Duration(m)*time.Minute))
	}
	s.Wait()
	assert.EqualValues(t, 4, runs.Load())
}

func TestRun_RejectsBadSchedules(t *testing.T) {
	s := schedule.New()
	noop := func(context.Context) error { return nil }
	assert.Error(t, s.Cron("* * *").Run(noop))
	assert.Error(t, s.Cron("61 * * * *").Run(noop))
	assert.Error(t, s.Cron("*/0 * * * *").Run(noop))
	assert.Error(t, s.Interval(0).Run(noop))
	assert.Empty(t, s.List())
}

func TestWithoutOverlapping(t *testing.T) {
	ctx := context.Background()
	s := schedule.New(schedule.WithLogger(logger.Discard()))
	release := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Every(1).Seconds().WithoutOverlapping().Run(func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}))

	t0 := time.Now()
	s.RunDue(ctx, t0)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.RunDue(ctx, t0.Add(2*time.Second))
	close(release)
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())
}

func TestFailingAndPanickingTasksAreContained(t *testing.T) {
	ctx := context.Background()
	s := schedule.New(schedule.WithLogger(logger.Discard()))
	var after atomic.Int32
	require.NoError(t, s.Every(1).Hours().Run(func(context.Context) error { return errors.New("sheet offline") }))
	require.NoError(t, s.Every(1).Hours().Run(func(context.Context) error { panic("boom") }))
	require.NoError(t, s.Every(1).Hours().Run(counting(&after)))

	s.RunDue(ctx, time.Now())
	s.Wait()
	assert.EqualValues(t, 1, after.Load())
}

func TestStart_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := schedule.New(schedule.WithTick(5*time.Millisecond), schedule.WithLogger(logger.Discard()))
	var runs atomic.Int32
	require.NoError(t, s.Every(1).Hours().Run(counting(&runs)))

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
