package recordstore

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

var (
	// ErrBackendUnavailable means the remote service could not be reached or
	// a cached handle went stale. The whole operation may be retried.
	ErrBackendUnavailable = errors.New("recordstore: backend unavailable")

	// ErrSchemaMissing means a collection has no header row (or does not
	// exist) and one could not be created.
	ErrSchemaMissing = errors.New("recordstore: schema missing")

	// ErrNotFound is returned by FindOne when no row matches.
	ErrNotFound = errors.New("recordstore: record not found")
)

// classify maps a backend error onto the store's taxonomy.
func classify(op, collection string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrSchemaMissing), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, tabular.ErrCollectionNotFound):
		return fmt.Errorf("recordstore: %s %s: %w: %w", op, collection, ErrSchemaMissing, err)
	default:
		return fmt.Errorf("recordstore: %s %s: %w: %w", op, collection, ErrBackendUnavailable, err)
	}
}
