// Package schedule runs periodic background tasks such as the daily sales
// digest.
//
// Usage:
//
//	s := schedule.New()
//	s.Every(24).Hours().Name("sales-digest").WithoutOverlapping().Run(sendDigest)
//	s.Cron("0 21 * * *").Name("backup").Run(backup)
//
//	go s.Start(ctx) // blocks until ctx is cancelled
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
)

// Task is the function signature for a scheduled task.
type Task func(ctx context.Context) error

// entry represents a single scheduled job.
type entry struct {
	id        string
	interval  time.Duration
	cronExpr  string // "" unless using Cron()
	task      Task
	lastRun   time.Time
	lastCron  time.Time // minute of the last cron match
	running   bool      // overlap guard
	noOverlap bool
	mu        sync.Mutex
}

// Scheduler owns a set of entries and dispatches them from one ticker.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	tick    time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets how often the scheduler looks for due tasks.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New returns an empty scheduler that ticks every second.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{tick: time.Second, log: logger.L}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule is a fluent builder for a single entry before it is registered.
type Schedule struct {
	s *Scheduler
	e *entry
}

// ------------------- Builders -------------------

// Every starts a fluent builder with n units.
func (s *Scheduler) Every(n int) *FreqBuilder { return &FreqBuilder{s: s, n: n} }

// Interval schedules a task every d.
func (s *Scheduler) Interval(d time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: d}}
}

// EveryMinute schedules the task to run every 60 seconds.
func (s *Scheduler) EveryMinute() *Schedule { return s.Every(1).Minutes() }

// Hourly schedules the task to run every hour.
func (s *Scheduler) Hourly() *Schedule { return s.Every(1).Hours() }

// Daily schedules the task to run every 24 hours.
func (s *Scheduler) Daily() *Schedule { return s.Every(24).Hours() }

// Cron schedules using a 5-field cron expression (min hour dom mon dow).
func (s *Scheduler) Cron(expr string) *Schedule {
	return &Schedule{s: s, e: &entry{cronExpr: expr}}
}

// FreqBuilder picks the unit for Every.
type FreqBuilder struct {
	s *Scheduler
	n int
}

func (f *FreqBuilder) Seconds() *Schedule { return f.s.Interval(time.Duration(f.n) * time.Second) }
func (f *FreqBuilder) Minutes() *Schedule { return f.s.Interval(time.Duration(f.n) * time.Minute) }
func (f *FreqBuilder) Hours() *Schedule   { return f.s.Interval(time.Duration(f.n) * time.Hour) }
func (f *FreqBuilder) Days() *Schedule    { return f.s.Interval(time.Duration(f.n) * 24 * time.Hour) }

// ------------------- Schedule chainable options -------------------

// WithoutOverlapping prevents a new run if the previous one is still executing.
func (b *Schedule) WithoutOverlapping() *Schedule {
	b.e.noOverlap = true
	return b
}

// Name gives the entry an identifier for logging.
func (b *Schedule) Name(id string) *Schedule {
	b.e.id = id
	return b
}

// Run registers the task. An invalid cron expression or a non-positive
// interval is rejected.
func (b *Schedule) Run(fn Task) error {
	if b.e.cronExpr != "" {
		if err := validateCron(b.e.cronExpr); err != nil {
			return err
		}
	} else if b.e.interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive, got %s", b.e.interval)
	}
	b.e.task = fn

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// ------------------- Scheduler loop -------------------

// Start dispatches due tasks until ctx is cancelled, then waits for
// running tasks to return.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.log.Info("schedule: scheduler started", "tasks", len(s.List()))

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			s.RunDue(ctx, now)
		}
	}
}

// RunDue dispatches every entry due at now. Interval entries run on the
// first call and then once per interval.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := make([]*entry, len(s.entries))
	copy(current, s.entries)
	s.mu.Unlock()

	for _, e := range current {
		if e.due(now) {
			s.dispatch(ctx, e, now)
		}
	}
}

// Wait blocks until every dispatched task has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cronExpr != "" {
		minute := now.Truncate(time.Minute)
		if minute.Equal(e.lastCron) || !matchCron(e.cronExpr, now) {
			return false
		}
		e.lastCron = minute
		return true
	}
	if e.lastRun.IsZero() {
		return true // first run
	}
	return now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		s.log.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				s.log.Error("schedule: task panicked", "id", e.id, "panic", r)
			}
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			s.log.Error("schedule: task failed", "id", e.id, "error", err)
			return
		}
		s.log.Debug("schedule: task done", "id", e.id, "duration", time.Since(start))
	}()
}

// List returns all registered entries (for CLI display).
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}

// ------------------- Minimal cron parser -------------------
// Supports 5-field cron: minute hour dom month dow
// Each field: * | number | */step | number-number | comma list of those

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

func validateCron(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("schedule: cron %q needs 5 fields", expr)
	}
	for i, f := range fields {
		for _, part := range strings.Split(f, ",") {
			if !validPart(part, cronBounds[i][0], cronBounds[i][1]) {
				return fmt.Errorf("schedule: cron %q: bad field %q", expr, f)
			}
		}
	}
	return nil
}

func validPart(part string, lo, hi int) bool {
	switch {
	case part == "*":
		return true
	case strings.HasPrefix(part, "*/"):
		step, err := strconv.Atoi(part[2:])
		return err == nil && step > 0
	case strings.Contains(part, "-"):
		a, b, _ := strings.Cut(part, "-")
		x, err1 := strconv.Atoi(a)
		y, err2 := strconv.Atoi(b)
		return err1 == nil && err2 == nil && x >= lo && y <= hi && x <= y
	default:
		n, err := strconv.Atoi(part)
		return err == nil && n >= lo && n <= hi
	}
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		if !matchField(f, vals[i]) {
			return false
		}
	}
	return true
}

func matchField(field string, val int) bool {
	for _, part := range strings.Split(field, ",") {
		if matchPart(part, val) {
			return true
		}
	}
	return false
}

func matchPart(part string, val int) bool {
	switch {
	case part == "*":
		return true
	case strings.HasPrefix(part, "*/"):
		step, _ := strconv.Atoi(part[2:])
		return step > 0 && val%step == 0
	case strings.Contains(part, "-"):
		a, b, _ := strings.Cut(part, "-")
		lo, _ := strconv.Atoi(a)
		hi, _ := strconv.Atoi(b)
		return val >= lo && val <= hi
	default:
		n, err := strconv.Atoi(part)
		return err == nil && n == val
	}
}
