// Package backup exports every collection of the record store as CSV onto a
// storage disk.
//
//	backups/20260301T090000Z/Orders.csv
//	backups/20260301T090000Z/Products.csv
//	...
package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/storage"
	"github.com/shashiranjanraj/beanleaf/pkg/workerpool"
)

// Layout is the timestamp format of a backup directory.
const Layout = "20060102T150405Z"

// Exporter writes snapshots of a store.
type Exporter struct {
	store   *recordstore.Store
	disk    storage.Disk
	workers int
	now     func() time.Time
}

type Option func(*Exporter)

// WithWorkers bounds how many collections are exported at once.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

func New(store *recordstore.Store, disk storage.Disk, opts ...Option) *Exporter {
	e := &Exporter{store: store, disk: disk, workers: 2, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Result describes one finished backup.
type Result struct {
	Dir   string
	Files []string
	Rows  int
}

// Run exports every registered collection into a fresh directory. A failure
// on one collection does not stop the others; their errors are joined.
func (e *Exporter) Run(ctx context.Context) (Result, error) {
	res := Result{Dir: path.Join("backups", e.now().UTC().Format(Layout))}
	names := e.store.Collections()
	if len(names) == 0 {
		return res, fmt.Errorf("backup: no collections registered")
	}

	pool := workerpool.New(e.workers)
	defer pool.Shutdown()

	rows := make([]int, len(names))
	b := pool.Batch(ctx)
	for i, name := range names {
		b.Go(func(ctx context.Context) error {
			n, err := e.export(ctx, name, path.Join(res.Dir, name+".csv"))
			rows[i] = n
			return err
		})
	}
	err := b.Wait()

	for i, name := range names {
		res.Rows += rows[i]
		res.Files = append(res.Files, path.Join(res.Dir, name+".csv"))
	}
	if err != nil {
		return res, err
	}
	logger.WithCtx(ctx).Info("backup: written", "dir", res.Dir, "collections", len(names), "rows", res.Rows)
	return res, nil
}

func (e *Exporter) export(ctx context.Context, name, file string) (int, error) {
	header, err := e.store.Header(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("backup %s: %w", name, err)
	}
	records, err := e.store.GetAll(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("backup %s: %w", name, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return 0, err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, field := range header {
			row[i] = rec[field]
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}

	if err := e.disk.Put(ctx, file, &buf); err != nil {
		return 0, fmt.Errorf("backup %s: %w", name, err)
	}
	return len(records), nil
}
