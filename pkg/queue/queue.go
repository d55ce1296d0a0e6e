// Package queue runs background jobs with retries.
//
// Usage:
//
//	q := queue.New(queue.NewMemoryDriver())
//	q.Register("notify", func() queue.Job { return &NotifyJob{} })
//	q.StartWorkers(ctx, 2)
//	_ = q.Dispatch(ctx, "notify", &NotifyJob{ChatID: 1, Text: "ready"})
//
// Jobs travel as JSON envelopes, so any driver that moves bytes (channel,
// Redis list) can carry them between processes.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	// Handle executes the job. Return a non-nil error to signal failure.
	Handle(ctx context.Context) error
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// Manager owns a driver, the job registry and the failed-job log.
type Manager struct {
	mu        sync.RWMutex
	driver    Driver
	registry  map[string]func() Job
	failed    []FailedJob
	maxRetry  int
	backoff   time.Duration
	failStore FailedStore
	wg        sync.WaitGroup
}

// FailedStore persists jobs that exhausted their retries.
type FailedStore interface {
	SaveFailed(ctx context.Context, f FailedJob, payload []byte) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRetry sets how many attempts a job gets.
func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetry = n
		}
	}
}

// WithBackoff sets the base delay between attempts. Attempt n waits n×d.
func WithBackoff(d time.Duration) Option {
	return func(m *Manager) { m.backoff = d }
}

// WithFailedStore persists exhausted jobs in addition to the in-memory log.
func WithFailedStore(s FailedStore) Option {
	return func(m *Manager) { m.failStore = s }
}

// New creates a manager on top of d.
func New(d Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Register makes a job type available for decoding by name.
// Call this once at boot for every job type.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch pushes job onto the queue under the registered name.
func (m *Manager) Dispatch(ctx context.Context, name string, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}

	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()

	return d.Push(ctx, env)
}

// ------------------- Worker -------------------

// StartWorkers launches n concurrent workers. They run until ctx is
// cancelled; Wait blocks until they have all returned.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

// Wait blocks until every worker has stopped.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, env envelope) {
	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		attempts = attempt
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed, retrying",
				"type", env.Type, "attempt", attempt, "error", err)
			if attempt < m.maxRetry && !sleep(ctx, time.Duration(attempt)*m.backoff) {
				break
			}
			continue
		}
		metrics.RecordQueueJob(env.Type, "success", start)
		logger.Debug("queue: job processed", "type", env.Type)
		return
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	m.persistFailed(ctx, FailedJob{
		Type: env.Type, Job: job, Err: lastErr, FailedAt: time.Now(), Attempts: attempts,
	}, env.Payload)
	logger.Error("queue: job exhausted retries", "type", env.Type, "error", lastErr)
}

// persistFailed records the failure in memory and, when configured, in the
// failed-job store.
func (m *Manager) persistFailed(ctx context.Context, f FailedJob, payload []byte) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	store := m.failStore
	m.mu.Unlock()

	if store == nil {
		return
	}
	if err := store.SaveFailed(context.WithoutCancel(ctx), f, payload); err != nil {
		logger.Error("queue: failed to persist failed job", "type", f.Type, "error", err)
	}
}

// FailedJobs returns a snapshot of all failed jobs.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

// sleep waits for d or until ctx ends. Reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
