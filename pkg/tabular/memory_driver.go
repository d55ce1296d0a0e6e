package tabular

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryBackend is an in-process grid store. Not durable across restarts.
// Handles address collections by name, so Rename and Drop make existing
// handles stale the same way renaming a worksheet does.
type MemoryBackend struct {
	mu      sync.RWMutex
	tables  map[string]*memTable
	offline atomic.Bool

	// BeforeWrite, when set, is called before every mutating call with the
	// operation name ("append", "update", "delete", "header") and the
	// collection name. A non-nil error aborts the write.
	BeforeWrite func(op, collection string) error
}

type memTable struct {
	header []string
	rows   [][]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: map[string]*memTable{}}
}

// SetOffline makes every call fail with ErrUnavailable until reset.
func (b *MemoryBackend) SetOffline(off bool) { b.offline.Store(off) }

// Rename moves a collection to a new name.
func (b *MemoryBackend) Rename(from, to string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tables[from]; ok {
		delete(b.tables, from)
		b.tables[to] = t
	}
}

// Drop removes a collection.
func (b *MemoryBackend) Drop(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tables, name)
}

// Names lists the existing collections in sorted order.
func (b *MemoryBackend) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.tables))
	for n := range b.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (b *MemoryBackend) check() error {
	if b.offline.Load() {
		return fmt.Errorf("tabular/memory: %w", ErrUnavailable)
	}
	return nil
}

func (b *MemoryBackend) Collection(_ context.Context, name string) (Collection, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	_, ok := b.tables[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tabular/memory: %q: %w", name, ErrCollectionNotFound)
	}
	return &memCollection{b: b, name: name}, nil
}

func (b *MemoryBackend) EnsureCollection(_ context.Context, name string) (Collection, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	if _, ok := b.tables[name]; !ok {
		b.tables[name] = &memTable{}
	}
	b.mu.Unlock()
	return &memCollection{b: b, name: name}, nil
}

func (b *MemoryBackend) Ping(context.Context) error  { return b.check() }
func (b *MemoryBackend) Close(context.Context) error { return nil }

// memCollection resolves its table by name on every call.
type memCollection struct {
	b    *MemoryBackend
	name string
}

func (c *memCollection) Name() string { return c.name }

// table returns the live table, holding the backend lock in the given mode.
// The caller must call the returned release func.
func (c *memCollection) table(write bool) (*memTable, func(), error) {
	if err := c.b.check(); err != nil {
		return nil, nil, err
	}
	if write {
		c.b.mu.Lock()
	} else {
		c.b.mu.RLock()
	}
	release := c.b.mu.Unlock
	if !write {
		release = c.b.mu.RUnlock
	}
	t, ok := c.b.tables[c.name]
	if !ok {
		release()
		return nil, nil, fmt.Errorf("tabular/memory: %q: %w", c.name, ErrStaleHandle)
	}
	return t, release, nil
}

func (c *memCollection) beforeWrite(op string) error {
	if c.b.BeforeWrite == nil {
		return nil
	}
	return c.b.BeforeWrite(op, c.name)
}

func (c *memCollection) ReadHeader(context.Context) ([]string, error) {
	t, release, err := c.table(false)
	if err != nil {
		return nil, err
	}
	defer release()
	return append([]string{}, t.header...), nil
}

func (c *memCollection) WriteHeader(_ context.Context, header []string) error {
	if err := c.beforeWrite("header"); err != nil {
		return err
	}
	t, release, err := c.table(true)
	if err != nil {
		return err
	}
	defer release()
	t.header = append([]string{}, header...)
	return nil
}

func (c *memCollection) ReadAllRows(context.Context) ([][]string, error) {
	t, release, err := c.table(false)
	if err != nil {
		return nil, err
	}
	defer release()
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string{}, r...)
	}
	return out, nil
}

func (c *memCollection) AppendRow(_ context.Context, values []string) error {
	if err := c.beforeWrite("append"); err != nil {
		return err
	}
	t, release, err := c.table(true)
	if err != nil {
		return err
	}
	defer release()
	t.rows = append(t.rows, append([]string{}, values...))
	return nil
}

func (c *memCollection) UpdateCell(_ context.Context, row, col int, value string) error {
	if err := c.beforeWrite("update"); err != nil {
		return err
	}
	if col < 1 {
		return fmt.Errorf("tabular/memory: column %d: %w", col, ErrRowOutOfRange)
	}
	t, release, err := c.table(true)
	if err != nil {
		return err
	}
	defer release()

	if row == HeaderRow {
		t.header = padTo(t.header, col)
		t.header[col-1] = value
		return nil
	}
	idx, err := dataIndex(row, len(t.rows))
	if err != nil {
		return fmt.Errorf("tabular/memory: row %d: %w", row, err)
	}
	t.rows[idx] = padTo(t.rows[idx], col)
	t.rows[idx][col-1] = value
	return nil
}

func (c *memCollection) UpdateRow(_ context.Context, row int, values []string) error {
	if err := c.beforeWrite("update"); err != nil {
		return err
	}
	t, release, err := c.table(true)
	if err != nil {
		return err
	}
	defer release()

	idx, err := dataIndex(row, len(t.rows))
	if err != nil {
		return fmt.Errorf("tabular/memory: row %d: %w", row, err)
	}
	t.rows[idx] = append([]string{}, values...)
	return nil
}

func (c *memCollection) DeleteRow(_ context.Context, row int) error {
	if err := c.beforeWrite("delete"); err != nil {
		return err
	}
	t, release, err := c.table(true)
	if err != nil {
		return err
	}
	defer release()

	idx, err := dataIndex(row, len(t.rows))
	if err != nil {
		return fmt.Errorf("tabular/memory: row %d: %w", row, err)
	}
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}
