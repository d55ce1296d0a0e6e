// Package recordstore turns a tabular backend into a small record database:
// named collections of string-valued records with store-assigned integer ids,
// field lookups, update-in-place and safe initialisation.
//
// The backend has no query language, no counters and no transactions, so
// every lookup is a full scan and ids are max(id)+1. Writes to one
// collection are serialised through a lock.Locker under the key
// "collection:<name>"; with a RedisLocker that holds across processes too.
//
//	store := recordstore.New(backend, lock.NewMemoryLocker(), logger.L)
//	_ = store.EnsureCollection(ctx, "Products", []string{"id", "name", "price"})
//	rec, _ := store.Add(ctx, "Products", recordstore.Record{"name": "Latte", "price": "4.5"})
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/metrics"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

// Store is the record database. Build one per process with New and share it.
type Store struct {
	backend tabular.Backend
	locker  lock.Locker
	log     *slog.Logger

	mu      sync.RWMutex
	handles map[string]tabular.Collection
	schemas map[string][]string
}

// New wires a store to its backend and lock service.
func New(backend tabular.Backend, locker lock.Locker, log *slog.Logger) *Store {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		backend: backend,
		locker:  locker,
		log:     log,
		handles: map[string]tabular.Collection{},
		schemas: map[string][]string{},
	}
}

// ─── Handles ─────────────────────────────────────────────────────────────────

// handle returns the cached collection handle, resolving it on first use.
// With create set, a missing collection is created.
func (s *Store) handle(ctx context.Context, name string, create bool) (tabular.Collection, error) {
	s.mu.RLock()
	c, ok := s.handles[name]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	var err error
	if create {
		c, err = s.backend.EnsureCollection(ctx, name)
	} else {
		c, err = s.backend.Collection(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.handles[name]; ok {
		return existing, nil
	}
	s.handles[name] = c
	return c, nil
}

// fail evicts the cached handle when the backend reports it stale and maps
// err onto the store's error taxonomy.
func (s *Store) fail(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tabular.ErrStaleHandle) {
		s.mu.Lock()
		delete(s.handles, name)
		s.mu.Unlock()
		s.log.Warn("recordstore: stale collection handle evicted", "collection", name, "op", op)
	}
	return classify(op, name, err)
}

func (s *Store) lockCollection(ctx context.Context, name string) (lock.Release, error) {
	rel, err := s.locker.Acquire(ctx, "collection:"+name)
	if err != nil {
		return nil, fmt.Errorf("recordstore: lock %s: %w", name, err)
	}
	return rel, nil
}

// ─── Schema ──────────────────────────────────────────────────────────────────

// EnsureCollection creates the collection with fields as its header when it
// is absent, and writes the header when the collection exists without one.
// Existing headers and data rows are never touched, so repeated calls are
// harmless.
func (s *Store) EnsureCollection(ctx context.Context, name string, fields []string) (err error) {
	defer metrics.ObserveBackendOp("ensure", time.Now(), &err)

	s.mu.Lock()
	s.schemas[name] = append([]string(nil), fields...)
	s.mu.Unlock()

	rel, err := s.lockCollection(ctx, name)
	if err != nil {
		return err
	}
	defer rel()

	c, err := s.handle(ctx, name, true)
	if err != nil {
		return s.fail("ensure", name, err)
	}

	header, err := c.ReadHeader(ctx)
	if err != nil {
		return s.fail("ensure", name, err)
	}
	if !isBlank(header) {
		if !equalFields(header, fields) {
			s.log.Warn("recordstore: existing header differs from schema",
				"collection", name, "header", header, "schema", fields)
		}
		return nil
	}

	if err := c.WriteHeader(ctx, fields); err != nil {
		return s.fail("ensure", name, err)
	}
	s.log.Info("recordstore: header written", "collection", name)
	return nil
}

// Schema returns the fields registered for name by EnsureCollection.
func (s *Store) Schema(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.schemas[name]...)
}

// Collections lists every registered collection in sorted order.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.schemas))
	for n := range s.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Header reads the live header row of a collection.
func (s *Store) Header(ctx context.Context, name string) ([]string, error) {
	c, err := s.handle(ctx, name, false)
	if err != nil {
		return nil, s.fail("header", name, err)
	}
	header, err := c.ReadHeader(ctx)
	if err != nil {
		return nil, s.fail("header", name, err)
	}
	return header, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

type snapshot struct {
	c       tabular.Collection
	header  []string
	records []Record
}

// load reads the header and every data row. records[i] lives on physical row
// i+2.
func (s *Store) load(ctx context.Context, name string, create bool) (*snapshot, error) {
	c, err := s.handle(ctx, name, create)
	if err != nil {
		return nil, err
	}
	header, err := c.ReadHeader(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := c.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{c: c, header: header}
	if isBlank(header) {
		if len(rows) > 0 {
			return nil, fmt.Errorf("recordstore: %s has %d rows but no header: %w", name, len(rows), ErrSchemaMissing)
		}
		return snap, nil
	}

	snap.records = make([]Record, len(rows))
	for i, r := range rows {
		snap.records[i] = fromRow(header, r)
	}
	return snap, nil
}

func (s *Store) maxID(name string, snap *snapshot) int {
	highest := 0
	for i, rec := range snap.records {
		raw := rec[IDField]
		id, ok := parseID(raw)
		if !ok {
			if raw != "" {
				s.log.Warn("recordstore: skipping unparseable id", "collection", name, "row", i+tabular.HeaderRow+1, "id", raw)
			}
			continue
		}
		if id > highest {
			highest = id
		}
	}
	return highest
}

// NextID returns one more than the largest id in the collection, or 1 when it
// is empty. It scans every row. Two callers racing without holding the
// collection lock can observe the same value; Add holds it.
func (s *Store) NextID(ctx context.Context, name string) (id int, err error) {
	defer metrics.ObserveBackendOp("next_id", time.Now(), &err)

	snap, err := s.load(ctx, name, false)
	if err != nil {
		return 0, s.fail("next_id", name, err)
	}
	return s.maxID(name, snap) + 1, nil
}

// FindOne returns the first record whose field equals value, compared as
// text, together with its physical row number (2 or more).
func (s *Store) FindOne(ctx context.Context, name, field, value string) (rec Record, row int, err error) {
	defer metrics.ObserveBackendOp("find", time.Now(), &err)

	snap, err := s.load(ctx, name, false)
	if err != nil {
		return nil, 0, s.fail("find", name, err)
	}
	for i, r := range snap.records {
		if r[field] == value {
			return r, i + tabular.HeaderRow + 1, nil
		}
	}
	return nil, 0, fmt.Errorf("recordstore: %s %s=%q: %w", name, field, value, ErrNotFound)
}

// GetAll returns every record in row order. An empty or header-only
// collection yields an empty slice.
func (s *Store) GetAll(ctx context.Context, name string) (recs []Record, err error) {
	defer metrics.ObserveBackendOp("get_all", time.Now(), &err)

	snap, err := s.load(ctx, name, false)
	if err != nil {
		return nil, s.fail("get_all", name, err)
	}
	if snap.records == nil {
		return []Record{}, nil
	}
	return snap.records, nil
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Add assigns the next id to rec, appends it in header order and returns the
// stored record. When the collection has no header yet, the registered
// schema (or rec's own fields) is written first.
func (s *Store) Add(ctx context.Context, name string, rec Record) (stored Record, err error) {
	defer metrics.ObserveBackendOp("add", time.Now(), &err)

	rel, err := s.lockCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rel()

	snap, err := s.load(ctx, name, true)
	if err != nil {
		return nil, s.fail("add", name, err)
	}

	stored = rec.Clone()
	stored[IDField] = strconv.Itoa(s.maxID(name, snap) + 1)

	header := snap.header
	if isBlank(header) {
		header = s.Schema(name)
		if len(header) == 0 {
			header = headerFromRecord(stored)
		}
		if err := snap.c.WriteHeader(ctx, header); err != nil {
			_ = s.fail("add", name, err)
			return nil, fmt.Errorf("recordstore: add %s: write header: %w: %w", name, ErrSchemaMissing, err)
		}
	}

	if err := snap.c.AppendRow(ctx, stored.row(header)); err != nil {
		return nil, s.fail("add", name, err)
	}
	return stored, nil
}

// Update rewrites the row holding id with rec's fields in header order.
// Fields absent from rec are written empty. Reports whether a row was found.
func (s *Store) Update(ctx context.Context, name string, id int, rec Record) (found bool, err error) {
	defer metrics.ObserveBackendOp("update", time.Now(), &err)

	rel, err := s.lockCollection(ctx, name)
	if err != nil {
		return false, err
	}
	defer rel()

	snap, err := s.load(ctx, name, false)
	if err != nil {
		return false, s.fail("update", name, err)
	}
	if isBlank(snap.header) {
		return false, fmt.Errorf("recordstore: update %s: no header row: %w", name, ErrSchemaMissing)
	}

	row, ok := rowOf(snap, id)
	if !ok {
		return false, nil
	}

	values := rec.Clone()
	values[IDField] = strconv.Itoa(id)
	if err := tabular.WriteRow(ctx, snap.c, row, values.row(snap.header)); err != nil {
		return false, s.fail("update", name, err)
	}
	return true, nil
}

// Delete removes the row holding id. Reports whether a row was found.
func (s *Store) Delete(ctx context.Context, name string, id int) (found bool, err error) {
	defer metrics.ObserveBackendOp("delete", time.Now(), &err)

	rel, err := s.lockCollection(ctx, name)
	if err != nil {
		return false, err
	}
	defer rel()

	snap, err := s.load(ctx, name, false)
	if err != nil {
		return false, s.fail("delete", name, err)
	}

	row, ok := rowOf(snap, id)
	if !ok {
		return false, nil
	}
	if err := snap.c.DeleteRow(ctx, row); err != nil {
		return false, s.fail("delete", name, err)
	}
	return true, nil
}

// rowOf finds the physical row of id. Ids are compared numerically so "7"
// and "7.0" address the same record.
func rowOf(snap *snapshot, id int) (int, bool) {
	for i, r := range snap.records {
		if got, ok := parseID(r[IDField]); ok && got == id {
			return i + tabular.HeaderRow + 1, true
		}
	}
	return 0, false
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return classify("ping", "", err)
	}
	return nil
}

// Close drops cached handles and releases the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.handles = map[string]tabular.Collection{}
	s.mu.Unlock()
	return s.backend.Close(ctx)
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
