package tabular_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

// exerciseCollection runs the shared contract every driver must satisfy.
func exerciseCollection(t *testing.T, b tabular.Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Collection(ctx, "Products")
	require.ErrorIs(t, err, tabular.ErrCollectionNotFound)

	c, err := b.EnsureCollection(ctx, "Products")
	require.NoError(t, err)
	assert.Equal(t, "Products", c.Name())

	header, err := c.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Empty(t, header)

	require.NoError(t, c.WriteHeader(ctx, []string{"id", "name", "price"}))
	header, err = c.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, header)

	require.NoError(t, c.AppendRow(ctx, []string{"1", "Latte", "4.5"}))
	require.NoError(t, c.AppendRow(ctx, []string{"2", "Mocha", "5"}))
	require.NoError(t, c.AppendRow(ctx, []string{"3", "Tea", "2"}))

	rows, err := c.ReadAllRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Mocha", rows[1][1])

	// Row 3 is the second data row.
	require.NoError(t, c.UpdateCell(ctx, 3, 3, "5.25"))
	require.NoError(t, tabular.WriteRow(ctx, c, 4, []string{"3", "Green Tea", "2.5"}))

	rows, err = c.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5.25", rows[1][2])
	assert.Equal(t, []string{"3", "Green Tea", "2.5"}, rows[2])

	require.NoError(t, c.DeleteRow(ctx, 2))
	rows, err = c.ReadAllRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0][0])

	assert.ErrorIs(t, c.DeleteRow(ctx, 9), tabular.ErrRowOutOfRange)
	assert.ErrorIs(t, c.UpdateCell(ctx, 9, 1, "x"), tabular.ErrRowOutOfRange)

	again, err := b.EnsureCollection(ctx, "Products")
	require.NoError(t, err)
	rows, err = again.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "EnsureCollection must not touch existing rows")

	require.NoError(t, b.Ping(ctx))
}

func TestMemoryBackend_Contract(t *testing.T) {
	exerciseCollection(t, tabular.NewMemoryBackend())
}

func TestMemoryBackend_HeaderCellUpdate(t *testing.T) {
	ctx := context.Background()
	b := tabular.NewMemoryBackend()
	c, err := b.EnsureCollection(ctx, "Users")
	require.NoError(t, err)

	require.NoError(t, c.UpdateCell(ctx, tabular.HeaderRow, 2, "name"))
	header, err := c.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "name"}, header)
}

func TestMemoryBackend_RenameMakesHandleStale(t *testing.T) {
	ctx := context.Background()
	b := tabular.NewMemoryBackend()
	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)

	b.Rename("Orders", "Orders (old)")

	_, err = c.ReadAllRows(ctx)
	assert.ErrorIs(t, err, tabular.ErrStaleHandle)
	assert.ErrorIs(t, c.AppendRow(ctx, []string{"1"}), tabular.ErrStaleHandle)
	assert.Equal(t, []string{"Orders (old)"}, b.Names())

	b.Drop("Orders (old)")
	assert.Empty(t, b.Names())
}

func TestMemoryBackend_Offline(t *testing.T) {
	ctx := context.Background()
	b := tabular.NewMemoryBackend()
	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)

	b.SetOffline(true)
	_, err = c.ReadHeader(ctx)
	assert.ErrorIs(t, err, tabular.ErrUnavailable)
	assert.ErrorIs(t, b.Ping(ctx), tabular.ErrUnavailable)

	b.SetOffline(false)
	assert.NoError(t, b.Ping(ctx))
}

func TestMemoryBackend_BeforeWriteHook(t *testing.T) {
	ctx := context.Background()
	b := tabular.NewMemoryBackend()
	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)

	boom := errors.New("boom")
	var seen []string
	b.BeforeWrite = func(op, collection string) error {
		seen = append(seen, op+":"+collection)
		if op == "append" {
			return boom
		}
		return nil
	}

	require.NoError(t, c.WriteHeader(ctx, []string{"id"}))
	assert.ErrorIs(t, c.AppendRow(ctx, []string{"1"}), boom)
	assert.Equal(t, []string{"header:Orders", "append:Orders"}, seen)

	rows, err := c.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
