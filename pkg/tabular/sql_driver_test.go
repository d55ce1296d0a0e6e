package tabular_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/database"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

func newSQLBackend(t *testing.T) *tabular.SQLBackend {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "tabular.db")
	db, err := database.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)

	b, err := tabular.NewSQLBackend(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestSQLBackend_Contract(t *testing.T) {
	exerciseCollection(t, newSQLBackend(t))
}

func TestSQLBackend_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b := newSQLBackend(t)

	users, err := b.EnsureCollection(ctx, "Users")
	require.NoError(t, err)
	orders, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)

	require.NoError(t, users.AppendRow(ctx, []string{"1", "alice"}))
	require.NoError(t, orders.AppendRow(ctx, []string{"10", "pending"}))
	require.NoError(t, orders.AppendRow(ctx, []string{"11", "paid"}))

	rows, err := users.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "alice"}}, rows)

	require.NoError(t, orders.DeleteRow(ctx, 2))
	rows, err = orders.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"11", "paid"}}, rows)
}

func TestSQLBackend_RenamedCollectionIsStale(t *testing.T) {
	ctx := context.Background()
	b := newSQLBackend(t)

	c, err := b.EnsureCollection(ctx, "Orders")
	require.NoError(t, err)

	require.NoError(t, b.DB().Exec("UPDATE tabular_collections SET name = ? WHERE name = ?", "Archive", "Orders").Error)

	_, err = c.ReadHeader(ctx)
	assert.ErrorIs(t, err, tabular.ErrStaleHandle)

	_, err = b.Collection(ctx, "Orders")
	assert.ErrorIs(t, err, tabular.ErrCollectionNotFound)
}
