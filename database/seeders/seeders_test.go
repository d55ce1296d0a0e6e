package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/database/seeders"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

func TestRunAll_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	repos := repositories.New(recordstore.New(tabular.NewMemoryBackend(), lock.NewMemoryLocker(), logger.Discard()), nil)
	require.NoError(t, repos.Init(ctx))

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(ctx, repos, &out))
	assert.Contains(t, out.String(), "Running seeder: catalog")

	require.NoError(t, seeders.RunAll(ctx, repos, &out))
	products, err := repos.Products.All(ctx, false)
	require.NoError(t, err)
	assert.Len(t, products, len(seeders.StarterMenu))
	assert.Equal(t, "Espresso", products[0].Name)
	assert.Equal(t, 1, products[0].ID)
}
