// Package storage writes backup files to a local directory or an
// S3-compatible bucket (AWS S3, MinIO, R2, Spaces).
//
//	m, err := storage.FromConfig(ctx)
//	err = m.Default().Put(ctx, "backups/20260301T090000Z/Orders.csv", r)
//
// Paths are always slash separated, whatever the driver.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get for a missing file.
var ErrNotExist = errors.New("storage: file does not exist")

// Disk is the filesystem driver interface.
type Disk interface {
	// Put writes r to path, replacing any existing file.
	Put(ctx context.Context, path string, r io.Reader) error

	// Get opens the file at path. The caller must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// List returns every file under prefix, recursively, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
