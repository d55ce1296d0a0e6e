// Package tabular defines the narrow contract a remote tabular service must
// satisfy to back the record store, plus the drivers that implement it.
//
// A Backend resolves named collections (worksheets, tables, document
// collections). A Collection is a grid of string cells addressed the way a
// spreadsheet is: row 1 is the header, data starts at row 2, columns are
// 1-based.
//
// Drivers:
//   - "memory"  in-process grid (tests, local runs)
//   - "sheets"  Google Sheets spreadsheet, one worksheet per collection
//   - "sql"     any gorm dialect (sqlite, postgres, mysql, sqlserver)
//   - "mongo"   MongoDB, one document collection per collection
//
// Wrap a driver with WithRetry to get bounded retries and a circuit breaker.
package tabular

import (
	"context"
	"errors"
)

var (
	// ErrCollectionNotFound is returned when resolving a collection that does
	// not exist yet.
	ErrCollectionNotFound = errors.New("tabular: collection not found")

	// ErrStaleHandle is returned when a previously resolved handle no longer
	// points at a live collection (renamed or dropped behind our back).
	ErrStaleHandle = errors.New("tabular: stale collection handle")

	// ErrUnavailable marks a failure talking to the remote service.
	ErrUnavailable = errors.New("tabular: backend unavailable")

	// ErrRowOutOfRange is returned when addressing a row that does not exist.
	ErrRowOutOfRange = errors.New("tabular: row out of range")
)

// HeaderRow is the physical row holding the header; data starts right below.
const HeaderRow = 1

// Backend resolves named collections.
type Backend interface {
	// Collection resolves an existing collection. Returns
	// ErrCollectionNotFound when it does not exist.
	Collection(ctx context.Context, name string) (Collection, error)

	// EnsureCollection creates the collection if absent and returns its
	// handle. It never touches existing cells.
	EnsureCollection(ctx context.Context, name string) (Collection, error)

	// Ping verifies the remote service is reachable.
	Ping(ctx context.Context) error

	// Close releases driver resources.
	Close(ctx context.Context) error
}

// Collection is a resolved handle to one named grid.
type Collection interface {
	Name() string

	// ReadHeader returns row 1, or an empty slice if it is blank.
	ReadHeader(ctx context.Context) ([]string, error)

	// WriteHeader overwrites row 1.
	WriteHeader(ctx context.Context, header []string) error

	// ReadAllRows returns every data row. Element i is physical row i+2.
	// Trailing empty cells may be trimmed by the driver.
	ReadAllRows(ctx context.Context) ([][]string, error)

	// AppendRow adds a row after the last data row.
	AppendRow(ctx context.Context, values []string) error

	// UpdateCell writes one cell. row and col are 1-based.
	UpdateCell(ctx context.Context, row, col int, value string) error

	// DeleteRow removes a data row, shifting the rows below it up.
	DeleteRow(ctx context.Context, row int) error
}

// RowWriter is implemented by drivers that can rewrite a whole row in one
// round trip.
type RowWriter interface {
	UpdateRow(ctx context.Context, row int, values []string) error
}

// WriteRow rewrites row using a single call when the collection supports it
// and cell by cell otherwise.
func WriteRow(ctx context.Context, c Collection, row int, values []string) error {
	if rw, ok := c.(RowWriter); ok {
		return rw.UpdateRow(ctx, row, values)
	}
	for i, v := range values {
		if err := c.UpdateCell(ctx, row, i+1, v); err != nil {
			return err
		}
	}
	return nil
}

// dataIndex converts a physical row number to an index into the data rows.
func dataIndex(row, count int) (int, error) {
	idx := row - HeaderRow - 1
	if idx < 0 || idx >= count {
		return 0, ErrRowOutOfRange
	}
	return idx, nil
}

// padTo returns cells extended with empty strings to at least n entries.
func padTo(cells []string, n int) []string {
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells
}
